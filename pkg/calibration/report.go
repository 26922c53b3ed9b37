package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pianistbot/pianist/pkg/robot"
)

// DefaultReportPath is where the calibrate command persists its results.
const DefaultReportPath = "play_center_calibration_results.json"

// Seconds is a duration in seconds that survives JSON round-trips even when
// infinite. Failed candidates carry +Inf segment statistics, which
// encoding/json cannot represent, so those marshal as null.
type Seconds float64

func (s Seconds) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(s), 0) || math.IsNaN(float64(s)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(s))
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Seconds(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Seconds(v)
	return nil
}

// Candidate is the benchmark outcome for one play-center pose.
type Candidate struct {
	Name            string          `json:"name"`
	Pose            robot.JointPose `json:"center_pose_deg"`
	OK              bool            `json:"ok"`
	Reason          string          `json:"reason,omitempty"`
	SegmentTimes    []Seconds       `json:"segment_times_sec"`
	MeanSegmentTime Seconds         `json:"mean_segment_time_sec"`
	StdSegmentTime  Seconds         `json:"std_segment_time_sec"`
	SpeedRaw        float64         `json:"speed_raw"`
	SmoothnessRaw   float64         `json:"smoothness_raw"`
	MarginRaw       float64         `json:"margin_raw"`
	TotalScore      float64         `json:"total_score"`
}

// Report is the persisted calibration outcome: the winning candidate plus
// the full scored field, best first.
type Report struct {
	SweepDelta float64     `json:"sweep_delta_j1_deg"`
	Cycles     int         `json:"cycles"`
	Speed      float64     `json:"speed"`
	Accel      float64     `json:"acc"`
	Best       *Candidate  `json:"best_candidate"`
	All        []Candidate `json:"all_candidates"`
}

// Write persists the report as indented JSON. A report without a winner is
// not worth persisting and is rejected.
func (r *Report) Write(path string) error {
	if r.Best == nil {
		return errors.New("refusing to write report without a best candidate")
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Load reads a previously written report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &report, nil
}

// LoadPlayCenter returns the calibrated play-center pose from the report at
// path. A missing or unreadable report is not an error; the second return
// reports whether a calibrated pose was found, so callers can fall back to
// the factory default.
func LoadPlayCenter(path string) (robot.JointPose, bool) {
	report, err := Load(path)
	if err != nil || report.Best == nil {
		return robot.JointPose{}, false
	}
	return report.Best.Pose, true
}
