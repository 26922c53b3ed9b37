package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/pianistbot/pianist/pkg/player"
	"github.com/pianistbot/pianist/pkg/robot"
)

type PracticeCommand struct {
	Hardware  HardwareOptions  `group:"Hardware"`
	Poses     PoseOptions      `group:"Poses"`
	Hand      HandOptions      `group:"Hand"`
	Motion    ArmMotionOptions `group:"Arm motion"`
	MaxLoops  int              `long:"max-loops" description:"Stop after this many passes (0 = run until interrupted)"`
	Dashboard bool             `long:"dashboard" description:"Show the live latency dashboard"`
	Stay      bool             `long:"stay" description:"Leave the arm at the play center instead of parking"`
}

func (c *PracticeCommand) Execute(args []string) error {
	logger := newLogger(c.Hardware.Verbose)
	handPort := runPrecheck(c.Hardware, logger)
	arm, hand := buildActuators(c.Hardware, handPort)

	cfg := buildPlayerConfig(c.Poses, c.Hand, c.Motion, !c.Stay, logger)
	cfg.MaxLoops = c.MaxLoops

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Dashboard {
		// The TUI owns the terminal; the dashboard shows progress instead
		// of the logger.
		logger.SetOutput(io.Discard)
		return runDashboard(ctx, stop, arm, hand, cfg, logger)
	}

	fmt.Println(headerStyle.Render("Pianist Practice"))
	if c.MaxLoops > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("up to %d loops, Ctrl-C to stop early", c.MaxLoops)))
	} else {
		fmt.Println(dimStyle.Render("running until Ctrl-C"))
	}
	fmt.Println()

	p := player.New(arm, hand, cfg, logger)
	drainProgress(p)

	if err := p.Practice(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("practice failed: %v", err)))
		os.Exit(1)
	}
	fmt.Println(successStyle.Render("Practice session ended."))
	return nil
}

func runDashboard(ctx context.Context, cancel context.CancelFunc, arm robot.Arm, hand robot.Hand, cfg player.Config, logger *log.Logger) error {
	p := player.New(arm, hand, cfg, logger)

	done := make(chan error, 1)
	go func() {
		done <- p.Practice(ctx)
	}()

	prog := tea.NewProgram(initialPracticeModel(p, cancel), tea.WithAltScreen())

	// Close the TUI once the routine ends on its own.
	go func() {
		err := <-done
		done <- err
		prog.Send(routineDoneMsg{})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("dashboard: %v", err)
	}

	// The TUI exited on a keypress; stop the routine and wait for teardown.
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("practice failed: %v", err)))
		os.Exit(1)
	}
	fmt.Println(successStyle.Render("Practice session ended."))
	return nil
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// One color per finger motor index.
var fingerColors = map[int]string{
	0: "196", // red
	1: "208", // orange
	2: "226", // yellow
	3: "46",  // green
	4: "51",  // cyan
	5: "201", // magenta
}

var (
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type practiceModel struct {
	player   *player.Player
	cancel   context.CancelFunc
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	loop     int
	quitting bool
}

// Messages from the player
type eventMsg player.Event
type progressMsg string
type routineDoneMsg struct{}

func waitForEvent(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-p.Events()
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func waitForProgress(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-p.Logs()
		if !ok {
			return nil
		}
		return progressMsg(line)
	}
}

func initialPracticeModel(p *player.Player, cancel context.CancelFunc) practiceModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 200), // press latency in ms
	)

	for finger, color := range fingerColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(fingerLabel(finger), runes.ThinLineStyle, style)
	}

	return practiceModel{
		player: p,
		cancel: cancel,
		chart:  &chart,
	}
}

func fingerLabel(finger int) string {
	return fmt.Sprintf("finger %d", finger)
}

func (m *practiceModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *practiceModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *practiceModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func (m practiceModel) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.player),
		waitForProgress(m.player),
	)
}

func (m practiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case eventMsg:
		e := player.Event(msg)
		m.loop = e.Loop
		if e.Action == "press" {
			m.chart.PushDataSet(fingerLabel(e.Finger), float64(e.Latency.Milliseconds()))
			m.chart.DrawAll()
		}
		return m, waitForEvent(m.player)

	case progressMsg:
		m.addLog(string(msg))
		return m, waitForProgress(m.player)

	case routineDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m practiceModel) View() string {
	if m.quitting {
		return "Practice stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(headerStyle.Render("Pianist Practice"))
	sb.WriteString(fmt.Sprintf(" - loop %d", m.loop))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart: press latency per finger, in milliseconds
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderFingerLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to stop")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderFingerLegend() string {
	var items []string
	for finger := 0; finger < robot.MotorCount; finger++ {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(fingerColors[finger])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+fingerLabel(finger))
	}
	return strings.Join(items, "  ")
}
