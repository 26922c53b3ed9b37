package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pianistbot/pianist/pkg/player"
)

type StartupCommand struct {
	Hardware  HardwareOptions `group:"Hardware"`
	Poses     PoseOptions     `group:"Poses"`
	Hand      HandOptions     `group:"Hand"`
	CycleHold float64         `long:"cycle-hold" default:"0.35" description:"Seconds to hold each self-test motor position"`
}

func (c *StartupCommand) Execute(args []string) error {
	logger := newLogger(c.Hardware.Verbose)
	handPort := runPrecheck(c.Hardware, logger)
	arm, hand := buildActuators(c.Hardware, handPort)

	cfg := buildPlayerConfig(c.Poses, c.Hand, ArmMotionOptions{
		Speed: player.StartupArmSpeed,
		Accel: player.StartupArmAccel,
	}, true, logger)
	cfg.CycleHold = secondsToDuration(c.CycleHold)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(headerStyle.Render("Pianist Startup Self-Test"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("arm %s, hand %s", c.Hardware.ArmAddr, handPort)))
	fmt.Println()

	p := player.New(arm, hand, cfg, logger)
	drainProgress(p)

	if err := p.Startup(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("self-test failed: %v", err)))
		os.Exit(1)
	}

	fmt.Println(successStyle.Render("Self-test passed."))
	fmt.Println("Try a short run with: " + headerStyle.Render("pianist note-test --loops 4"))
	return nil
}

// drainProgress prints the player's progress lines so the channels never
// back up when no dashboard is attached.
func drainProgress(p *player.Player) {
	go func() {
		for line := range p.Logs() {
			fmt.Println(dimStyle.Render(line))
		}
	}()
	go func() {
		for range p.Events() {
		}
	}()
}
