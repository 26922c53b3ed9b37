package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/pianistbot/pianist/pkg/calibration"
	"github.com/pianistbot/pianist/pkg/hwcheck"
	"github.com/pianistbot/pianist/pkg/player"
	"github.com/pianistbot/pianist/pkg/robot"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// HardwareOptions locate the two actuators. Shared by every motion command.
type HardwareOptions struct {
	ArmAddr  string `long:"arm-ip" env:"XARM_IP" default:"192.168.0.203" description:"xArm control box address"`
	HandPort string `long:"hand-port" env:"HAND_PORT" default:"auto" description:"Hand serial port, or 'auto' to discover"`
	SlaveID  uint8  `long:"hand-slave-id" env:"HAND_SLAVE_ID" default:"1" description:"Hand Modbus slave ID"`
	Force    bool   `long:"force" description:"Run even when the hardware precheck fails"`
	Verbose  bool   `long:"verbose" short:"v" description:"Debug logging"`
}

// PoseOptions override the arm poses the routines use.
type PoseOptions struct {
	Home   string `long:"home" description:"Home pose, six joint angles in degrees (comma separated)"`
	Center string `long:"center" description:"Play-center pose; defaults to the calibrated pose when available"`
	Report string `long:"report" default:"play_center_calibration_results.json" description:"Calibration report path"`
}

// HandOptions tune the strike mechanics.
type HandOptions struct {
	OpenValue      int     `long:"open-value" default:"1000" description:"Fully open motor command value"`
	CloseReference int     `long:"close-reference" default:"120" description:"Fully pressed motor command value"`
	DownFraction   float64 `long:"down-fraction" default:"0.40" description:"Press depth as a fraction of open-to-close travel"`
	PressHold      float64 `long:"press-hold" default:"0.05" description:"Seconds to hold a press"`
	ReleaseHold    float64 `long:"release-hold" default:"0.05" description:"Seconds to hold a release"`
	Fingers        string  `long:"fingers" default:"3,2,1,0" description:"Press order, four motor indices"`
}

// ArmMotionOptions tune joint-move speed.
type ArmMotionOptions struct {
	Speed float64 `long:"speed" default:"80" description:"Joint speed in deg/s"`
	Accel float64 `long:"acc" default:"800" description:"Joint acceleration in deg/s²"`
}

// validate rejects hand values the player layer would otherwise silently
// replace with its defaults. Zero is a legal motor command on the wire, but
// as a flag it can only be a mistake.
func (h HandOptions) validate() error {
	if h.OpenValue < 1 || h.OpenValue > robot.MaxMotorValue {
		return fmt.Errorf("--open-value must be in [1,%d], got %d", robot.MaxMotorValue, h.OpenValue)
	}
	if h.CloseReference < 1 || h.CloseReference > robot.MaxMotorValue {
		return fmt.Errorf("--close-reference must be in [1,%d], got %d", robot.MaxMotorValue, h.CloseReference)
	}
	if h.DownFraction <= 0 || h.DownFraction > 1 {
		return fmt.Errorf("--down-fraction must be in (0,1], got %v", h.DownFraction)
	}
	if h.PressHold < 0 || h.ReleaseHold < 0 {
		return fmt.Errorf("hold durations must not be negative")
	}
	return nil
}

// parsePoseFlag parses a pose flag and rejects the all-zero pose, which the
// player layer treats as "use the default".
func parsePoseFlag(name, text string) (robot.JointPose, error) {
	pose, err := robot.ParseJointPose(text)
	if err != nil {
		return pose, fmt.Errorf("invalid %s: %v", name, err)
	}
	var zero robot.JointPose
	if pose == zero {
		return pose, fmt.Errorf("%s: the all-zero pose stands for the built-in default; give a distinct pose", name)
	}
	return pose, nil
}

func newLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// fatalf prints a styled error and exits with the bad-arguments code.
func fatalf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(2)
}

// runPrecheck probes both actuators and aborts unless they pass or --force
// is set. It returns the resolved hand port so the drivers and the check
// agree on the device.
func runPrecheck(hw HardwareOptions, logger *log.Logger) string {
	result := hwcheck.Run(hw.ArmAddr, hw.HandPort, 2*time.Second)
	if result.OK() {
		logger.Debug("precheck passed", "arm", result.ArmAddr, "hand", result.HandPort)
		return result.HandPort
	}

	if result.ArmErr != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("arm unreachable at %s: %v", result.ArmAddr, result.ArmErr)))
	}
	if result.HandErr != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("hand port %s: %v", result.HandPort, result.HandErr)))
	}
	if !hw.Force {
		fmt.Fprintln(os.Stderr, errorStyle.Render("hardware precheck failed (use --force to run anyway)"))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, warnStyle.Render("precheck failed, continuing because --force is set"))
	return result.HandPort
}

// buildActuators constructs the drivers from the shared options.
func buildActuators(hw HardwareOptions, handPort string) (robot.Arm, robot.Hand) {
	arm := robot.NewXArm(robot.XArmConfig{Addr: hw.ArmAddr})
	hand := robot.NewInspireHand(robot.InspireConfig{Port: handPort, SlaveID: hw.SlaveID})
	return arm, hand
}

// buildPlayerConfig resolves poses and strike mechanics from the flags. The
// play center comes from, in order: the --center flag, the calibration
// report, the factory default.
func buildPlayerConfig(poses PoseOptions, hand HandOptions, motion ArmMotionOptions, returnHome bool, logger *log.Logger) player.Config {
	cfg := player.Config{
		OpenValue:      hand.OpenValue,
		CloseReference: hand.CloseReference,
		DownFraction:   hand.DownFraction,
		PressHold:      secondsToDuration(hand.PressHold),
		ReleaseHold:    secondsToDuration(hand.ReleaseHold),
		ArmSpeed:       motion.Speed,
		ArmAccel:       motion.Accel,
		ReturnHome:     returnHome,
	}

	if err := hand.validate(); err != nil {
		fatalf("%v", err)
	}

	fingers, err := robot.ParseFingerOrder(hand.Fingers)
	if err != nil {
		fatalf("invalid --fingers: %v", err)
	}
	cfg.Fingers = fingers

	if poses.Home != "" {
		home, err := parsePoseFlag("--home", poses.Home)
		if err != nil {
			fatalf("%v", err)
		}
		cfg.Home = home
	}

	switch {
	case poses.Center != "":
		center, err := parsePoseFlag("--center", poses.Center)
		if err != nil {
			fatalf("%v", err)
		}
		cfg.PlayCenter = center
	default:
		if center, ok := calibration.LoadPlayCenter(poses.Report); ok {
			logger.Info("using calibrated play center", "pose", center, "report", poses.Report)
			cfg.PlayCenter = center
		} else {
			logger.Debug("no calibration report, using factory play center")
		}
	}
	return cfg
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
