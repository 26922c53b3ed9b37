package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pianistbot/pianist/pkg/player"
)

type NoteTestCommand struct {
	Hardware HardwareOptions  `group:"Hardware"`
	Poses    PoseOptions      `group:"Poses"`
	Hand     HandOptions      `group:"Hand"`
	Motion   ArmMotionOptions `group:"Arm motion"`
	Loops    int              `long:"loops" default:"4" description:"Number of finger-sequence passes"`
	Stay     bool             `long:"stay" description:"Leave the arm at the play center instead of parking"`
}

func (c *NoteTestCommand) Execute(args []string) error {
	logger := newLogger(c.Hardware.Verbose)
	handPort := runPrecheck(c.Hardware, logger)
	arm, hand := buildActuators(c.Hardware, handPort)
	cfg := buildPlayerConfig(c.Poses, c.Hand, c.Motion, !c.Stay, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(headerStyle.Render("Pianist Note Test"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d loops, fingers %s", c.Loops, c.Hand.Fingers)))
	fmt.Println()

	p := player.New(arm, hand, cfg, logger)
	drainProgress(p)

	if err := p.NoteTest(ctx, c.Loops); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("note test failed: %v", err)))
		os.Exit(1)
	}

	fmt.Println(successStyle.Render("Note test complete."))
	return nil
}
