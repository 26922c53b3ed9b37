// Package calibration benchmarks candidate play-center poses and scores
// them on speed, smoothness and joint-limit margin, persisting the winner
// for the note routines to load.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pianistbot/pianist/pkg/robot"
)

// ErrNoValidCandidates is returned by Run when every candidate failed its
// benchmark. The report still carries the per-candidate failure reasons.
var ErrNoValidCandidates = errors.New("no candidate completed its benchmark")

// Scoring weights. Speed dominates, smoothness second, limit margin last.
const (
	weightSpeed      = 0.50
	weightSmoothness = 0.35
	weightMargin     = 0.15

	epsilon = 1e-6
)

// Benchmark defaults.
const (
	DefaultSweepDelta = 10.0
	DefaultCycles     = 3
	DefaultSpeed      = 60.0
	DefaultAccel      = 600.0
)

// Limits is the per-joint software range of the arm, in degrees.
type Limits [robot.NumJoints][2]float64

// XArm850Limits are the factory joint ranges of the xArm 850.
var XArm850Limits = Limits{
	{-360, 360},
	{-132, 132},
	{-242, 3.5},
	{-360, 360},
	{-124, 124},
	{-360, 360},
}

// CandidatePose is one play-center candidate under evaluation.
type CandidatePose struct {
	Name string
	Pose robot.JointPose
}

// DefaultCandidates returns the built-in candidate catalog.
func DefaultCandidates() []CandidatePose {
	return []CandidatePose{
		{Name: "center_a", Pose: robot.JointPose{0, -20, -35, 0, 100, -45}},
		{Name: "center_b", Pose: robot.JointPose{0, -17, -28, 0, 75, -45}},
		{Name: "center_c", Pose: robot.JointPose{0, -26, -44, 0, 106, -45}},
		{Name: "center_d", Pose: robot.JointPose{0, -18, -52, 0, 110, -45}},
	}
}

// Engine benchmarks candidates with a pan sweep and scores the results.
type Engine struct {
	Candidates []CandidatePose
	Limits     Limits

	// SweepDelta is the base-joint pan offset for the left/right poses.
	SweepDelta float64
	// Cycles is the number of timed left/right/center passes per candidate.
	Cycles int

	Speed  float64
	Accel  float64
	Logger *log.Logger
}

// NewEngine creates an engine with the built-in candidate catalog and the
// xArm 850 joint limits. Zero fields fall back to the benchmark defaults.
func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		Candidates: DefaultCandidates(),
		Limits:     XArm850Limits,
		SweepDelta: DefaultSweepDelta,
		Cycles:     DefaultCycles,
		Speed:      DefaultSpeed,
		Accel:      DefaultAccel,
		Logger:     logger,
	}
}

func (e *Engine) withDefaults() {
	if e.Candidates == nil {
		e.Candidates = DefaultCandidates()
	}
	if e.SweepDelta == 0 {
		e.SweepDelta = DefaultSweepDelta
	}
	if e.Cycles == 0 {
		e.Cycles = DefaultCycles
	}
	if e.Speed == 0 {
		e.Speed = DefaultSpeed
	}
	if e.Accel == 0 {
		e.Accel = DefaultAccel
	}
	if e.Logger == nil {
		e.Logger = log.New(io.Discard)
	}
}

// Run benchmarks every candidate on the given arm and returns the scored
// report, with candidates ordered best first. The arm must already be
// connected; it is left at the home pose. When every candidate fails, the
// report is still returned together with ErrNoValidCandidates so the
// failure reasons can be persisted.
func (e *Engine) Run(ctx context.Context, arm robot.Arm, home robot.JointPose) (*Report, error) {
	e.withDefaults()

	report := &Report{
		SweepDelta: e.SweepDelta,
		Cycles:     e.Cycles,
		Speed:      e.Speed,
		Accel:      e.Accel,
	}

	for _, cand := range e.Candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e.Logger.Info("benchmarking candidate", "name", cand.Name, "pose", cand.Pose)
		result := e.benchmark(ctx, arm, cand)
		report.All = append(report.All, result)
	}

	if err := arm.MoveJoints(ctx, home, e.Speed, e.Accel, true); err != nil {
		return report, fmt.Errorf("return to home: %w", err)
	}

	e.score(report.All)
	sort.SliceStable(report.All, func(i, j int) bool {
		return report.All[i].TotalScore > report.All[j].TotalScore
	})
	for i := range report.All {
		if report.All[i].OK {
			report.Best = &report.All[i]
			break
		}
	}
	if report.Best == nil {
		return report, ErrNoValidCandidates
	}
	e.Logger.Info("best candidate", "name", report.Best.Name, "score", report.Best.TotalScore)
	return report, nil
}

// benchmark runs the pan sweep for one candidate: an unmeasured warmup pass
// to settle the arm, then timed left/right/center segments.
func (e *Engine) benchmark(ctx context.Context, arm robot.Arm, cand CandidatePose) Candidate {
	result := Candidate{
		Name:      cand.Name,
		Pose:      cand.Pose,
		MarginRaw: e.marginScore(cand.Pose),
	}

	center := cand.Pose
	left := center.WithPanOffset(e.SweepDelta)
	right := center.WithPanOffset(-e.SweepDelta)

	warmup := []robot.JointPose{center, left, right, center}
	for _, pose := range warmup {
		if err := arm.MoveJoints(ctx, pose, e.Speed, e.Accel, true); err != nil {
			result.Reason = fmt.Sprintf("warmup move failed: %v", err)
			return result
		}
	}

	for cycle := 0; cycle < e.Cycles; cycle++ {
		for _, pose := range []robot.JointPose{left, right, center} {
			start := time.Now()
			if err := arm.MoveJoints(ctx, pose, e.Speed, e.Accel, true); err != nil {
				result.Reason = fmt.Sprintf("sweep move failed: %v", err)
				return result
			}
			result.SegmentTimes = append(result.SegmentTimes, Seconds(time.Since(start).Seconds()))
		}
	}

	result.OK = true
	return result
}

// marginScore is the worst-case normalized distance to a joint limit across
// the center and both sweep poses. 1.0 means dead center of every range,
// 0.0 means a joint sits at (or beyond) a limit.
func (e *Engine) marginScore(center robot.JointPose) float64 {
	margin := 1.0
	for _, pose := range []robot.JointPose{
		center,
		center.WithPanOffset(e.SweepDelta),
		center.WithPanOffset(-e.SweepDelta),
	} {
		for j, angle := range pose {
			lo, hi := e.Limits[j][0], e.Limits[j][1]
			width := hi - lo
			if width <= 0 {
				return 0
			}
			d := math.Min(angle-lo, hi-angle)
			m := clamp01(2 * d / width)
			if m < margin {
				margin = m
			}
		}
	}
	return margin
}

// score fills in the raw and normalized metrics. Raw speed is the inverse
// mean segment time; raw smoothness is the inverse coefficient of variation.
// All three metrics are normalized by the best value among candidates that
// completed, so a lone survivor scores 1.0 on every sub-score.
func (e *Engine) score(all []Candidate) {
	var maxSpeed, maxSmooth, maxMargin float64
	for i := range all {
		c := &all[i]
		if !c.OK {
			c.MeanSegmentTime = Seconds(math.Inf(1))
			c.StdSegmentTime = Seconds(math.Inf(1))
			continue
		}
		m := mean(c.SegmentTimes)
		s := pstdev(c.SegmentTimes, m)
		c.MeanSegmentTime = Seconds(m)
		c.StdSegmentTime = Seconds(s)
		c.SpeedRaw = 1 / math.Max(m, epsilon)
		c.SmoothnessRaw = 1 / math.Max(s/math.Max(m, epsilon), epsilon)
		maxSpeed = math.Max(maxSpeed, c.SpeedRaw)
		maxSmooth = math.Max(maxSmooth, c.SmoothnessRaw)
		maxMargin = math.Max(maxMargin, c.MarginRaw)
	}
	if maxSpeed == 0 {
		maxSpeed = 1
	}
	if maxSmooth == 0 {
		maxSmooth = 1
	}
	if maxMargin == 0 {
		maxMargin = 1
	}
	for i := range all {
		c := &all[i]
		if !c.OK {
			continue
		}
		c.TotalScore = weightSpeed*(c.SpeedRaw/maxSpeed) +
			weightSmoothness*(c.SmoothnessRaw/maxSmooth) +
			weightMargin*(c.MarginRaw/maxMargin)
	}
}

func mean(samples []Seconds) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	return sum / float64(len(samples))
}

// pstdev is the population standard deviation.
func pstdev(samples []Seconds, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		d := float64(s) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
