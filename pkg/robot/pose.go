// Package robot provides the actuator interfaces and transports for the
// pianist rig: joint poses for the arm and command values for the hand.
package robot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NumJoints is the number of controlled joints on the arm.
const NumJoints = 6

// JointPose is a full joint-space target for the arm, in degrees.
type JointPose [NumJoints]float64

// ParseJointPose parses a comma-separated list of exactly six joint angles.
func ParseJointPose(text string) (JointPose, error) {
	var pose JointPose
	parts := splitFields(text)
	if len(parts) != NumJoints {
		return pose, fmt.Errorf("expected %d comma-separated joint values, got %d", NumJoints, len(parts))
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return pose, fmt.Errorf("joint %d: %q is not a number", i+1, part)
		}
		pose[i] = v
	}
	return pose, nil
}

// WithPanOffset returns a copy of the pose with the base joint shifted by
// deltaDeg. Used for the left/right sweep poses during calibration.
func (p JointPose) WithPanOffset(deltaDeg float64) JointPose {
	p[0] += deltaDeg
	return p
}

// UnmarshalJSON rejects arrays that do not hold exactly six numbers.
// Plain array decoding would silently zero-pad a short pose, and a pose
// with a fabricated joint angle is worse than no pose at all.
func (p *JointPose) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) != NumJoints {
		return fmt.Errorf("expected %d joint values, got %d", NumJoints, len(values))
	}
	copy(p[:], values)
	return nil
}

func (p JointPose) String() string {
	parts := make([]string, NumJoints)
	for i, v := range p {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func splitFields(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
