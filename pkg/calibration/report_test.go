package calibration

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianistbot/pianist/pkg/robot"
)

func sampleReport() *Report {
	best := Candidate{
		Name:            "center_b",
		Pose:            robot.JointPose{0, -17, -28, 0, 75, -45},
		OK:              true,
		SegmentTimes:    []Seconds{0.81, 0.79, 0.80},
		MeanSegmentTime: 0.80,
		StdSegmentTime:  0.0082,
		SpeedRaw:        1.25,
		SmoothnessRaw:   97.6,
		MarginRaw:       0.52,
		TotalScore:      0.93,
	}
	failed := Candidate{
		Name:            "center_d",
		Pose:            robot.JointPose{0, -18, -52, 0, 110, -45},
		OK:              false,
		Reason:          "warmup move failed: servo fault",
		MeanSegmentTime: Seconds(math.Inf(1)),
		StdSegmentTime:  Seconds(math.Inf(1)),
	}
	return &Report{
		SweepDelta: 10,
		Cycles:     3,
		Speed:      60,
		Accel:      600,
		Best:       &best,
		All:        []Candidate{best, failed},
	}
}

func TestReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, sampleReport().Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, loaded.Best)
	assert.Equal(t, "center_b", loaded.Best.Name)
	assert.Equal(t, robot.JointPose{0, -17, -28, 0, 75, -45}, loaded.Best.Pose)
	assert.Equal(t, 10.0, loaded.SweepDelta)

	// Infinite stats survive the trip through null.
	require.Len(t, loaded.All, 2)
	assert.True(t, math.IsInf(float64(loaded.All[1].MeanSegmentTime), 1))
}

func TestReportWriteRefusesNoWinner(t *testing.T) {
	r := sampleReport()
	r.Best = nil
	err := r.Write(filepath.Join(t.TempDir(), "results.json"))
	assert.Error(t, err)
}

func TestLoadPlayCenter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, sampleReport().Write(path))

	pose, ok := LoadPlayCenter(path)
	assert.True(t, ok)
	assert.Equal(t, robot.JointPose{0, -17, -28, 0, 75, -45}, pose)
}

func TestLoadPlayCenterFallsBack(t *testing.T) {
	dir := t.TempDir()

	// Missing file.
	_, ok := LoadPlayCenter(filepath.Join(dir, "absent.json"))
	assert.False(t, ok)

	// Garbage file.
	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o644))
	_, ok = LoadPlayCenter(garbage)
	assert.False(t, ok)

	// Valid report with no winner.
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"best_candidate": null, "all_candidates": []}`), 0o644))
	_, ok = LoadPlayCenter(empty)
	assert.False(t, ok)

	// A winner whose pose does not hold exactly six numbers. Accepting it
	// would send the arm to a pose with a fabricated joint angle.
	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(
		`{"best_candidate": {"name": "center_b", "center_pose_deg": [0, -17, -28, 0, 75], "ok": true}, "all_candidates": []}`), 0o644))
	_, ok = LoadPlayCenter(short)
	assert.False(t, ok)
}
