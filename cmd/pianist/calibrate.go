package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pianistbot/pianist/pkg/calibration"
	"github.com/pianistbot/pianist/pkg/hwcheck"
	"github.com/pianistbot/pianist/pkg/player"
	"github.com/pianistbot/pianist/pkg/robot"
)

type CalibrateCommand struct {
	Hardware    HardwareOptions `group:"Hardware"`
	Home        string          `long:"home" description:"Home pose, six joint angles in degrees (comma separated)"`
	Report      string          `long:"report" default:"play_center_calibration_results.json" description:"Where to write the results"`
	SweepDelta  float64         `long:"sweep-delta" default:"10" description:"Base-joint pan offset for the sweep, in degrees"`
	Cycles      int             `long:"cycles" default:"3" description:"Timed sweep passes per candidate"`
	Speed       float64         `long:"speed" default:"60" description:"Joint speed in deg/s"`
	Accel       float64         `long:"acc" default:"600" description:"Joint acceleration in deg/s²"`
	ExecuteFlag bool            `long:"execute" description:"Skip the confirmation prompt"`
	MoveToBest  bool            `long:"move-to-best" description:"End at the winning pose instead of home"`
}

func (c *CalibrateCommand) Execute(args []string) error {
	logger := newLogger(c.Hardware.Verbose)

	home := player.DefaultHome
	if c.Home != "" {
		parsed, err := parsePoseFlag("--home", c.Home)
		if err != nil {
			fatalf("%v", err)
		}
		home = parsed
	}

	fmt.Println(headerStyle.Render("Play-Center Calibration"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d candidates, sweep ±%.0f°, %d cycles",
		len(calibration.DefaultCandidates()), c.SweepDelta, c.Cycles)))
	fmt.Println()

	if !c.ExecuteFlag {
		var proceed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("The arm will sweep through every candidate pose. Clear the workspace first.").
					Affirmative("Start").
					Negative("Abort").
					Value(&proceed),
			),
		)
		if err := form.Run(); err != nil || !proceed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Calibration only moves the arm; the hand stays out of it.
	result := hwcheck.Run(c.Hardware.ArmAddr, c.Hardware.HandPort, 2*time.Second)
	if !result.ArmReachable {
		fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("arm unreachable at %s: %v", result.ArmAddr, result.ArmErr)))
		if !c.Hardware.Force {
			fmt.Fprintln(os.Stderr, errorStyle.Render("hardware precheck failed (use --force to run anyway)"))
			os.Exit(1)
		}
	}

	arm := robot.NewXArm(robot.XArmConfig{Addr: c.Hardware.ArmAddr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := arm.Connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("connect arm: %v", err)))
		os.Exit(1)
	}
	defer arm.Disconnect()

	engine := calibration.NewEngine(logger)
	engine.SweepDelta = c.SweepDelta
	engine.Cycles = c.Cycles
	engine.Speed = c.Speed
	engine.Accel = c.Accel

	report, err := engine.Run(ctx, arm, home)
	if err != nil && !errors.Is(err, calibration.ErrNoValidCandidates) {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("calibration failed: %v", err)))
		os.Exit(1)
	}

	fmt.Println()
	printResultsTable(report)
	fmt.Println()

	if report.Best == nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("no candidate completed its benchmark; nothing to persist"))
		os.Exit(1)
	}

	if err := report.Write(c.Report); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("persist report: %v", err)))
		os.Exit(1)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Winner: %s (score %.3f)", report.Best.Name, report.Best.TotalScore)))
	fmt.Printf("Results written to %s\n", c.Report)

	if c.MoveToBest {
		if err := arm.MoveJoints(ctx, report.Best.Pose, c.Speed, c.Accel, true); err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("could not move to winner: %v", err)))
		}
	}
	return nil
}

func printResultsTable(report *calibration.Report) {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableOKStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableFailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(report.All))
	ok := make([]bool, 0, len(report.All))
	for _, c := range report.All {
		ok = append(ok, c.OK)
		if !c.OK {
			rows = append(rows, []string{c.Name, "failed", "-", "-", "-", c.Reason})
			continue
		}
		rows = append(rows, []string{
			c.Name,
			fmt.Sprintf("%.3f", c.TotalScore),
			fmt.Sprintf("%.2fs", float64(c.MeanSegmentTime)),
			fmt.Sprintf("%.3fs", float64(c.StdSegmentTime)),
			fmt.Sprintf("%.2f", c.MarginRaw),
			"",
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Candidate", "Score", "Mean", "Stdev", "Margin", "Note").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 1 && row >= 0 && row < len(ok) {
				if ok[row] {
					return tableOKStyle
				}
				return tableFailStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
}
