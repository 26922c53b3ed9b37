package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Startup   StartupCommand   `command:"startup" description:"Run the startup self-test (arm to home, hand motor cycle)"`
	NoteTest  NoteTestCommand  `command:"note-test" alias:"test" description:"Play the finger sequence a fixed number of times"`
	Practice  PracticeCommand  `command:"practice" description:"Play the finger sequence until interrupted"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Benchmark play-center candidates and persist the winner"`
	Check     CheckCommand     `command:"check" description:"Probe arm and hand reachability without moving anything"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Pianist - bring-up and practice CLI for the xArm + Inspire hand piano rig"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
