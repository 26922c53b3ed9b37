package robot

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by drivers when a command is issued before
// Connect succeeded or after Disconnect.
var ErrNotConnected = errors.New("actuator is not connected")

// Arm drives the 6-DOF arm in joint space. MoveJoints blocks until the move
// completes when wait is true; speed is in deg/s and accel in deg/s².
type Arm interface {
	Connect(ctx context.Context) error
	Disconnect()
	MoveJoints(ctx context.Context, pose JointPose, speed, accel float64, wait bool) error
}
