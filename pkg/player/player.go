// Package player choreographs the note routines: startup self-test, bounded
// note test and the continuous practice loop. Every routine runs through the
// same lifecycle so that teardown always forces the hand open and parks the
// arm no matter how the routine ended.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pianistbot/pianist/pkg/robot"
)

// Defaults shared by the CLI and tests.
const (
	DefaultOpenValue      = 1000
	DefaultCloseReference = 120
	DefaultDownFraction   = 0.40
	DefaultPressHold      = 50 * time.Millisecond
	DefaultReleaseHold    = 50 * time.Millisecond
	DefaultArmSpeed       = 80.0
	DefaultArmAccel       = 800.0

	StartupArmSpeed = 40.0
	StartupArmAccel = 400.0
	StartupHandHold = 350 * time.Millisecond

	minFullOpenHold   = 200 * time.Millisecond
	minSingleOpenHold = 40 * time.Millisecond
)

// DefaultHome is the parked pose the arm returns to after every routine.
var DefaultHome = robot.JointPose{0, 0, 0, 0, 90, -45}

// DefaultPlayCenter is the factory play-center pose, used until a calibrated
// pose is available.
var DefaultPlayCenter = robot.JointPose{0, -17, -28, 0, 75, -45}

// DefaultFingers is the default press order.
var DefaultFingers = robot.FingerOrder{3, 2, 1, 0}

// Config holds the knobs for a Player. Zero values fall back to the package
// defaults, so an unset field is indistinguishable from an explicit zero:
// the all-zero pose, a zero OpenValue or a zero DownFraction cannot be
// configured here. Callers that accept such values from users must reject
// them before building the Config (the CLI does).
type Config struct {
	Home       robot.JointPose
	PlayCenter robot.JointPose
	Fingers    robot.FingerOrder

	OpenValue      int
	CloseReference int
	DownFraction   float64
	PressHold      time.Duration
	ReleaseHold    time.Duration
	CycleHold      time.Duration

	ArmSpeed float64
	ArmAccel float64

	// ReturnHome parks the arm after a routine that ran to completion. An
	// interrupted or failed routine always parks regardless.
	ReturnHome bool

	// MaxLoops bounds the practice loop; zero or negative means unbounded.
	MaxLoops int
}

func (c Config) withDefaults() Config {
	var zero robot.JointPose
	if c.Home == zero {
		c.Home = DefaultHome
	}
	if c.PlayCenter == zero {
		c.PlayCenter = DefaultPlayCenter
	}
	if c.Fingers == nil {
		c.Fingers = DefaultFingers
	}
	if c.OpenValue == 0 {
		c.OpenValue = DefaultOpenValue
	}
	if c.CloseReference == 0 {
		c.CloseReference = DefaultCloseReference
	}
	if c.DownFraction == 0 {
		c.DownFraction = DefaultDownFraction
	}
	if c.PressHold == 0 {
		c.PressHold = DefaultPressHold
	}
	if c.ReleaseHold == 0 {
		c.ReleaseHold = DefaultReleaseHold
	}
	if c.CycleHold == 0 {
		c.CycleHold = StartupHandHold
	}
	if c.ArmSpeed == 0 {
		c.ArmSpeed = DefaultArmSpeed
	}
	if c.ArmAccel == 0 {
		c.ArmAccel = DefaultArmAccel
	}
	return c
}

// Event is one observable step of a routine, published on Events for the
// dashboard.
type Event struct {
	Loop    int
	Finger  int
	Action  string // "press" or "release"
	Latency time.Duration
}

// Player runs note routines against an arm and a hand.
type Player struct {
	arm    robot.Arm
	hand   robot.Hand
	cfg    Config
	logger *log.Logger

	events chan Event
	logs   chan string
}

// New creates a Player. A nil logger discards log output.
func New(arm robot.Arm, hand robot.Hand, cfg Config, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Player{
		arm:    arm,
		hand:   hand,
		cfg:    cfg.withDefaults(),
		logger: logger,
		events: make(chan Event, 64),
		logs:   make(chan string, 64),
	}
}

// Events returns the stream of press/release events. The channel never
// blocks the routine; old events are dropped when the reader falls behind.
func (p *Player) Events() <-chan Event { return p.events }

// Logs returns human-readable progress lines for the dashboard.
func (p *Player) Logs() <-chan string { return p.logs }

func (p *Player) sendEvent(e Event) {
	select {
	case p.events <- e:
	default:
		select {
		case <-p.events:
		default:
		}
		select {
		case p.events <- e:
		default:
		}
	}
}

func (p *Player) sendLog(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	select {
	case p.logs <- line:
	default:
		select {
		case <-p.logs:
		default:
		}
		select {
		case p.logs <- line:
		default:
		}
	}
}

// Startup runs the self-test: move to home, open the hand, reinforce the
// open per finger and cycle every motor once. The arm stays at home.
func (p *Player) Startup(ctx context.Context) error {
	return p.run(ctx, p.cfg.Home, true, StartupArmSpeed, StartupArmAccel, func(ctx context.Context) error {
		p.sendLog("self-test: cycling all hand motors")
		return p.hand.CycleAllMotors(ctx, p.cfg.OpenValue, p.cfg.CloseReference, p.cfg.CycleHold)
	})
}

// NoteTest plays the finger sequence a fixed number of times from the play
// center.
func (p *Player) NoteTest(ctx context.Context, loops int) error {
	if loops <= 0 {
		return fmt.Errorf("note test needs at least one loop, got %d", loops)
	}
	return p.run(ctx, p.cfg.PlayCenter, p.cfg.ReturnHome, p.cfg.ArmSpeed, p.cfg.ArmAccel, func(ctx context.Context) error {
		return p.noteLoop(ctx, loops)
	})
}

// Practice plays the finger sequence from the play center until the context
// is cancelled or MaxLoops is reached.
func (p *Player) Practice(ctx context.Context) error {
	return p.run(ctx, p.cfg.PlayCenter, p.cfg.ReturnHome, p.cfg.ArmSpeed, p.cfg.ArmAccel, func(ctx context.Context) error {
		return p.noteLoop(ctx, p.cfg.MaxLoops)
	})
}

// run is the shared lifecycle: connect arm, move to the working pose,
// connect hand, force it fully open, run the routine body, then tear down.
// Teardown always runs and always leaves the hand open; the arm parks at
// home unless the routine completed cleanly with ReturnHome disabled.
func (p *Player) run(ctx context.Context, target robot.JointPose, returnHome bool, speed, accel float64, body func(context.Context) error) (err error) {
	var (
		armUp       bool
		handUp      bool
		completed   bool
		interrupted bool
	)

	defer func() {
		cleanup := context.Background()
		if handUp {
			if openErr := p.forceFullOpen(cleanup); openErr != nil {
				p.logger.Warn("teardown: could not force hand open", "err", openErr)
			}
			p.hand.Disconnect()
		}
		if armUp {
			if interrupted || returnHome || !completed {
				if homeErr := p.arm.MoveJoints(cleanup, p.cfg.Home, speed, accel, true); homeErr != nil {
					p.logger.Warn("teardown: could not park arm", "err", homeErr)
				}
			}
			p.arm.Disconnect()
		}
	}()

	if err := p.arm.Connect(ctx); err != nil {
		return fmt.Errorf("connect arm: %w", err)
	}
	armUp = true
	p.sendLog("arm connected, moving to %s", target)

	if err := p.arm.MoveJoints(ctx, target, speed, accel, true); err != nil {
		return fmt.Errorf("move to working pose: %w", err)
	}

	if err := p.hand.Connect(ctx); err != nil {
		return fmt.Errorf("connect hand: %w", err)
	}
	handUp = true

	if err := p.forceFullOpen(ctx); err != nil {
		return fmt.Errorf("open hand: %w", err)
	}

	err = body(ctx)
	if errors.Is(err, context.Canceled) {
		// Operator stop, not a fault. Teardown still parks the arm.
		interrupted = true
		completed = true
		p.logger.Info("routine interrupted, tearing down")
		return nil
	}
	if err != nil {
		return err
	}
	completed = true
	return nil
}

// forceFullOpen drives every motor to the open value, reinforces each one
// individually, then commands the combined open once more.
func (p *Player) forceFullOpen(ctx context.Context) error {
	fullHold := p.cfg.ReleaseHold
	if fullHold < minFullOpenHold {
		fullHold = minFullOpenHold
	}
	singleHold := p.cfg.ReleaseHold / 2
	if singleHold < minSingleOpenHold {
		singleHold = minSingleOpenHold
	}

	if err := p.hand.SetAllMotors(ctx, p.cfg.OpenValue, fullHold); err != nil {
		return err
	}
	for _, finger := range p.cfg.Fingers {
		if err := p.hand.MoveSingleMotor(ctx, finger, p.cfg.OpenValue, singleHold); err != nil {
			return err
		}
	}
	return p.hand.SetAllMotors(ctx, p.cfg.OpenValue, fullHold)
}

// noteLoop presses and releases each finger in order. maxLoops <= 0 runs
// until ctx is cancelled. Cancellation is observed between loops, so the
// current pass always finishes and never leaves a finger down.
func (p *Player) noteLoop(ctx context.Context, maxLoops int) error {
	strike := robot.StrikeValue(p.cfg.OpenValue, p.cfg.CloseReference, p.cfg.DownFraction)
	for loop := 1; ; loop++ {
		if maxLoops > 0 && loop > maxLoops {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p.sendLog("loop %d", loop)
		for _, finger := range p.cfg.Fingers {
			start := time.Now()
			if err := p.hand.MoveSingleMotor(ctx, finger, strike, p.cfg.PressHold); err != nil {
				return fmt.Errorf("loop %d: press finger %d: %w", loop, finger, err)
			}
			p.sendEvent(Event{Loop: loop, Finger: finger, Action: "press", Latency: time.Since(start)})

			start = time.Now()
			if err := p.hand.MoveSingleMotor(ctx, finger, p.cfg.OpenValue, p.cfg.ReleaseHold); err != nil {
				return fmt.Errorf("loop %d: release finger %d: %w", loop, finger, err)
			}
			p.sendEvent(Event{Loop: loop, Finger: finger, Action: "release", Latency: time.Since(start)})
		}
	}
}
