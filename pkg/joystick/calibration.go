package joystick

import (
	"errors"
	"fmt"
)

var ErrInvalidCalibration = errors.New("invalid calibration")

// Axis holds the measured ADC samples of one physical axis. Min and Max are
// the samples at full deflection on the negative and positive side; for an
// axis wired in reverse Min is numerically greater than Max.
type Axis struct {
	Min int16 `json:"min"`
	Mid int16 `json:"mid"`
	Max int16 `json:"max"`
}

// Validate checks that Mid lies strictly between Min and Max, in either order.
func (a Axis) Validate() error {
	lo, hi := a.Min, a.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if a.Mid <= lo || a.Mid >= hi {
		return fmt.Errorf("%w: mid %d must lie strictly between %d and %d", ErrInvalidCalibration, a.Mid, a.Min, a.Max)
	}
	return nil
}

// IsInDeadzone reports whether the offset (dx, dy) from the stick center lies
// strictly inside a circle of the given radius.
func IsInDeadzone(dx, dy int32, threshold uint16) bool {
	squaredLength := int64(dx)*int64(dx) + int64(dy)*int64(dy)
	squaredDeadzone := int64(threshold) * int64(threshold)
	return squaredLength < squaredDeadzone
}

// NormalizeAxis maps a raw sample to a signed angle in [-limit, limit].
//
// The sample is first scaled against the Min side. A positive result there
// means the sample lies on the Max side of Mid, so it is scaled again against
// Max. This tolerates both wiring directions without knowing which one the
// axis uses.
func NormalizeAxis(raw int32, axis Axis, limit int16) int16 {
	scaled := (int64(raw) - int64(axis.Mid)) * int64(limit)
	val := scaled / (int64(axis.Mid) - int64(axis.Min))
	if val > 0 {
		val = scaled / (int64(axis.Max) - int64(axis.Mid))
	}
	switch {
	case val < -int64(limit):
		return -limit
	case val > int64(limit):
		return limit
	}
	return int16(val)
}
