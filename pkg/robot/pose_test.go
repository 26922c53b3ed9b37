package robot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJointPose(t *testing.T) {
	pose, err := ParseJointPose("0, -17, -28, 0, 75, -45")
	require.NoError(t, err)
	assert.Equal(t, JointPose{0, -17, -28, 0, 75, -45}, pose)
}

func TestParseJointPoseErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"1,2,3,4,5",
		"1,2,3,4,5,6,7",
		"1,2,three,4,5,6",
		"1,,2,3,4,5", // blanks are dropped, leaving five values
	} {
		_, err := ParseJointPose(text)
		assert.Error(t, err, "input %q", text)
	}
}

func TestWithPanOffset(t *testing.T) {
	base := JointPose{0, -17, -28, 0, 75, -45}
	left := base.WithPanOffset(10)
	assert.Equal(t, JointPose{10, -17, -28, 0, 75, -45}, left)
	// The receiver is a value; base must be unchanged.
	assert.Equal(t, JointPose{0, -17, -28, 0, 75, -45}, base)
}

func TestJointPoseUnmarshalRequiresSixValues(t *testing.T) {
	var pose JointPose
	require.NoError(t, json.Unmarshal([]byte("[0, -17, -28, 0, 75, -45]"), &pose))
	assert.Equal(t, JointPose{0, -17, -28, 0, 75, -45}, pose)

	// A short array must not zero-pad into a fake pose, and a long one must
	// not silently truncate.
	for _, text := range []string{
		"[0, -17, -28, 0, 75]",
		"[0, -17, -28, 0, 75, -45, 0]",
		"[]",
		"null",
		`"0,-17,-28,0,75,-45"`,
	} {
		var p JointPose
		assert.Error(t, json.Unmarshal([]byte(text), &p), "input %s", text)
	}
}

func TestJointPoseString(t *testing.T) {
	pose := JointPose{0, -17.5, -28, 0, 75, -45}
	assert.Equal(t, "[0, -17.5, -28, 0, 75, -45]", pose.String())
}
