package robot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFingerOrder(t *testing.T) {
	order, err := ParseFingerOrder("3,2,1,0")
	require.NoError(t, err)
	assert.Equal(t, FingerOrder{3, 2, 1, 0}, order)

	order, err = ParseFingerOrder(" 0, 1, 2, 3 ")
	require.NoError(t, err)
	assert.Equal(t, FingerOrder{0, 1, 2, 3}, order)
}

func TestParseFingerOrderErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"3,2,1",
		"3,2,1,0,4",
		"3,2,1,x",
		"3,2,1,6",  // beyond last motor
		"3,2,1,-1", // negative
		"3,2,1,3",  // duplicate
	} {
		_, err := ParseFingerOrder(text)
		assert.Error(t, err, "input %q", text)
	}
}

func TestStrikeValue(t *testing.T) {
	tests := []struct {
		openValue      int
		closeReference int
		downFraction   float64
		want           int
	}{
		{1000, 120, 0.40, 648},
		{1000, 120, 0, 1000},
		{1000, 120, 1, 120},
		{1000, 120, -0.5, 1000}, // clamped up
		{1000, 120, 1.5, 120},   // clamped down
		{1000, 0, 0.5, 500},
		{1000, 999, 0.5, 1000}, // rounds to nearest
	}
	for _, tc := range tests {
		got := StrikeValue(tc.openValue, tc.closeReference, tc.downFraction)
		assert.Equal(t, tc.want, got, "open=%d close=%d frac=%v", tc.openValue, tc.closeReference, tc.downFraction)
	}
}
