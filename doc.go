// Package pianist drives a two-actuator piano robot: a 6-DOF xArm and a
// 6-motor Inspire hand.
//
// The repository bundles the bring-up routines used on the physical rig
// (startup self-test, bounded note test, continuous practice loop) together
// with the play-center calibration that picks the arm pose the note routines
// play from.
//
// # Installation
//
//	go install github.com/pianistbot/pianist/cmd/pianist@latest
//
// # Usage
//
// Verify hardware is reachable:
//
//	pianist check
//
// Run the startup self-test, then a short note test:
//
//	pianist startup
//	pianist note-test --loops 4
//
// Calibrate the play-center pose and practice from it (the calibrated pose
// is picked up automatically once the report exists):
//
//	pianist calibrate --execute
//	pianist practice --dashboard
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/pianist: CLI with startup, note-test, practice, calibrate and check commands
//   - pkg/robot: actuator interfaces, drivers, poses and hand command values
//   - pkg/player: routine choreography with fail-safe teardown
//   - pkg/calibration: play-center benchmark, scoring and report persistence
//   - pkg/hwcheck: advisory reachability precheck
package pianist
