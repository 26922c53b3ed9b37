package robot

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

// MotorCount is the number of motors on the hand.
const MotorCount = 6

// Hand motor command values. The travel domain is 0 (closed) to 1000 (open);
// NoAction in a combined 6-register write leaves that motor untouched.
const (
	NoAction      = 0xFFFF
	MaxMotorValue = 0xFFFF
)

// FingerCount is the number of fingers in a strike sequence (thumb excluded).
const FingerCount = 4

// Hand drives the 6-motor hand. All hold durations are blocking sleeps after
// the command is written, giving the motors time to settle.
type Hand interface {
	Connect(ctx context.Context) error
	Disconnect()
	SetAllMotors(ctx context.Context, value int, hold time.Duration) error
	MoveSingleMotor(ctx context.Context, index, value int, hold time.Duration) error
	CycleAllMotors(ctx context.Context, openValue, closeValue int, hold time.Duration) error
}

// FingerOrder is the strike sequence: exactly four distinct motor indices in
// [0,5], thumb excluded. Order is meaningful; it is the press order.
type FingerOrder []int

// ParseFingerOrder parses a comma-separated list of exactly four distinct
// finger motor indices, e.g. "3,2,1,0".
func ParseFingerOrder(text string) (FingerOrder, error) {
	parts := splitFields(text)
	if len(parts) != FingerCount {
		return nil, fmt.Errorf("expected exactly %d comma-separated finger motor indices, got %d", FingerCount, len(parts))
	}
	order := make(FingerOrder, 0, FingerCount)
	seen := make(map[int]bool, FingerCount)
	for _, part := range parts {
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("finger index %q is not an integer", part)
		}
		if idx < 0 || idx >= MotorCount {
			return nil, fmt.Errorf("finger index %d out of range [0,%d]", idx, MotorCount-1)
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate finger index %d", idx)
		}
		seen[idx] = true
		order = append(order, idx)
	}
	return order, nil
}

// StrikeValue computes the press-depth command value: the open value moved
// toward the close reference by downFraction, clamped to [0,1] and rounded
// to the nearest integer.
func StrikeValue(openValue, closeReference int, downFraction float64) int {
	if downFraction < 0 {
		downFraction = 0
	}
	if downFraction > 1 {
		downFraction = 1
	}
	value := float64(openValue) + float64(closeReference-openValue)*downFraction
	return int(math.Round(value))
}
