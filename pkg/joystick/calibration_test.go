package joystick

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAxisX = Axis{Min: 784, Mid: 444, Max: 172}
	testAxisY = Axis{Min: 244, Mid: 532, Max: 822}
)

func TestIsInDeadzone(t *testing.T) {
	type testCase struct {
		dx, dy    int32
		threshold uint16
		expected  bool
	}
	testCases := []testCase{
		{0, 0, 1, true},
		{0, 0, 64, true},
		{64, 0, 64, false},
		{0, -64, 64, false},
		{63, 0, 64, true},
		{45, 45, 64, true},
		{46, 46, 64, false},
		{512, -512, 1000, true},
		{-512, -511, 512, false},
		{0, 0, 0, false},
		{math.MaxInt32, math.MaxInt32, math.MaxUint16, false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, IsInDeadzone(tc.dx, tc.dy, tc.threshold), "dx=%d dy=%d threshold=%d", tc.dx, tc.dy, tc.threshold)
	}
}

func TestNormalizeAxis(t *testing.T) {
	type testCase struct {
		name     string
		raw      int32
		axis     Axis
		expected int16
	}
	testCases := []testCase{
		{"inverted at min", 784, testAxisX, -127},
		{"inverted at max falls back to max side", 172, testAxisX, 127},
		{"inverted at mid", 444, testAxisX, 0},
		{"inverted half way", 614, testAxisX, -63},
		{"inverted beyond max clips", 0, testAxisX, 127},
		{"inverted beyond min clips", 1023, testAxisX, -127},
		{"at max", 822, testAxisY, 127},
		{"at min", 244, testAxisY, -127},
		{"max side", 677, testAxisY, 63},
		{"min side", 400, testAxisY, -58},
		{"beyond max clips", 1023, testAxisY, 127},
		{"beyond min clips", 0, testAxisY, -127},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeAxis(tc.raw, tc.axis, DefaultLimit))
		})
	}
}

func TestNormalizeAxisStaysWithinLimit(t *testing.T) {
	for _, limit := range []int16{1, 100, DefaultLimit, 512} {
		for _, axis := range []Axis{testAxisX, testAxisY} {
			for raw := int32(0); raw < 1024; raw++ {
				val := NormalizeAxis(raw, axis, limit)
				require.GreaterOrEqual(t, val, -limit, "raw=%d axis=%v", raw, axis)
				require.LessOrEqual(t, val, limit, "raw=%d axis=%v", raw, axis)
			}
		}
	}
}

func TestAxisValidate(t *testing.T) {
	assert.NoError(t, testAxisX.Validate())
	assert.NoError(t, testAxisY.Validate())

	for _, axis := range []Axis{
		{Min: 444, Mid: 444, Max: 784},
		{Min: 172, Mid: 784, Max: 784},
		{Min: 172, Mid: 800, Max: 784},
		{Min: 784, Mid: 100, Max: 172},
		{},
	} {
		err := axis.Validate()
		require.Error(t, err, "axis %v", axis)
		assert.ErrorIs(t, err, ErrInvalidCalibration)
	}
}
