package calibration

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianistbot/pianist/pkg/robot"
)

type scriptedArm struct {
	moves    int
	failFrom int // fail moves in [failFrom, failTo], 1-based; 0 disables
	failTo   int
}

func (a *scriptedArm) Connect(ctx context.Context) error { return nil }
func (a *scriptedArm) Disconnect()                       {}

func (a *scriptedArm) MoveJoints(ctx context.Context, pose robot.JointPose, speed, accel float64, wait bool) error {
	a.moves++
	if a.failFrom > 0 && a.moves >= a.failFrom && a.moves <= a.failTo {
		return errors.New("servo fault")
	}
	return nil
}

var testHome = robot.JointPose{0, 0, 0, 0, 90, -45}

func TestMarginScore(t *testing.T) {
	e := &Engine{Limits: XArm850Limits, SweepDelta: DefaultSweepDelta}

	// Well inside every range.
	m := e.marginScore(robot.JointPose{0, 0, -120, 0, 0, 0})
	assert.Greater(t, m, 0.5)
	assert.LessOrEqual(t, m, 1.0)

	// Joint 3 pinned at its upper limit.
	m = e.marginScore(robot.JointPose{0, 0, 3.5, 0, 0, 0})
	assert.Equal(t, 0.0, m)

	// Beyond a limit clamps to zero rather than going negative.
	m = e.marginScore(robot.JointPose{0, 140, 0, 0, 0, 0})
	assert.Equal(t, 0.0, m)

	// The sweep poses count too: a base joint near its limit loses margin
	// once panned.
	narrow := e.Limits
	narrow[0] = [2]float64{-15, 15}
	e2 := &Engine{Limits: narrow, SweepDelta: 10}
	m = e2.marginScore(robot.JointPose{8, 0, -120, 0, 0, 0})
	assert.Equal(t, 0.0, m) // panned to 18, past the limit
}

func TestMarginScoreZeroWidthLimit(t *testing.T) {
	limits := XArm850Limits
	limits[4] = [2]float64{10, 10}
	e := &Engine{Limits: limits, SweepDelta: DefaultSweepDelta}
	assert.Equal(t, 0.0, e.marginScore(robot.JointPose{0, 0, -120, 0, 10, 0}))
}

func TestRunScoresAndOrders(t *testing.T) {
	arm := &scriptedArm{}
	e := NewEngine(nil)
	report, err := e.Run(context.Background(), arm, testHome)
	require.NoError(t, err)
	require.NotNil(t, report.Best)

	assert.Len(t, report.All, len(DefaultCandidates()))
	// 4 candidates × (4 warmup + 3 cycles × 3 segments) + return home.
	assert.Equal(t, 4*(4+9)+1, arm.moves)

	for i, c := range report.All {
		assert.True(t, c.OK, "candidate %s", c.Name)
		assert.Len(t, c.SegmentTimes, 9)
		assert.GreaterOrEqual(t, c.TotalScore, 0.0)
		assert.LessOrEqual(t, c.TotalScore, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, report.All[i-1].TotalScore, c.TotalScore)
		}
	}
	assert.Equal(t, report.All[0].Name, report.Best.Name)
}

func TestRunSingleSurvivorScoresFull(t *testing.T) {
	// Only the first candidate completes; its normalized speed and
	// smoothness are then 1.0 by construction.
	// Candidate one completes its 13 moves; the next three each fail on
	// their first warmup move. The final home move succeeds.
	arm := &scriptedArm{failFrom: 14, failTo: 16}
	e := NewEngine(nil)
	report, err := e.Run(context.Background(), arm, testHome)
	require.NoError(t, err)
	require.NotNil(t, report.Best)

	best := report.Best
	assert.True(t, best.OK)
	// Normalizing against itself yields 1.0 on every sub-score.
	assert.InDelta(t, 1.0, best.TotalScore, 1e-9)

	okCount := 0
	for _, c := range report.All {
		if c.OK {
			okCount++
		}
	}
	assert.Equal(t, 1, okCount)
}

func TestScoreNormalizesMargin(t *testing.T) {
	// Identical segment times make speed and smoothness normalize to 1.0
	// for both candidates, isolating the margin term.
	times := []Seconds{0.5, 0.5, 0.5}
	all := []Candidate{
		{Name: "wide", OK: true, SegmentTimes: times, MarginRaw: 0.4},
		{Name: "tight", OK: true, SegmentTimes: times, MarginRaw: 0.2},
	}
	e := &Engine{}
	e.score(all)

	// The widest margin normalizes to 1.0, the other to its ratio.
	assert.InDelta(t, weightSpeed+weightSmoothness+weightMargin, all[0].TotalScore, 1e-9)
	assert.InDelta(t, weightSpeed+weightSmoothness+weightMargin*0.5, all[1].TotalScore, 1e-9)
}

func TestRunAllFailed(t *testing.T) {
	// Every candidate fails its first warmup move; the home move succeeds.
	arm := &scriptedArm{failFrom: 1, failTo: 4}
	e := NewEngine(nil)
	report, err := e.Run(context.Background(), arm, testHome)
	require.ErrorIs(t, err, ErrNoValidCandidates)
	require.NotNil(t, report)

	assert.Nil(t, report.Best)
	require.Len(t, report.All, len(DefaultCandidates()))
	for _, c := range report.All {
		assert.False(t, c.OK)
		assert.NotEmpty(t, c.Reason)
		assert.True(t, math.IsInf(float64(c.MeanSegmentTime), 1))
	}
}

func TestRunMidBenchmarkFailureTruncates(t *testing.T) {
	// The candidate fails on its fifth timed segment: 4 warmup + 5.
	arm := &scriptedArm{failFrom: 4 + 5, failTo: 4 + 5}
	e := NewEngine(nil)
	e.Candidates = DefaultCandidates()[:1]
	report, err := e.Run(context.Background(), arm, testHome)
	require.ErrorIs(t, err, ErrNoValidCandidates)

	c := report.All[0]
	assert.False(t, c.OK)
	assert.Contains(t, c.Reason, "sweep move failed")
	assert.Len(t, c.SegmentTimes, 4) // segments completed before the fault
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEngine(nil)
	_, err := e.Run(ctx, &scriptedArm{}, testHome)
	require.ErrorIs(t, err, context.Canceled)
}
