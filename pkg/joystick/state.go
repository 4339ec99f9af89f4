package joystick

import (
	"errors"
	"fmt"

	"github.com/neuroplastio/neio-stick/hostapi"
)

// DefaultLimit is the largest magnitude of an 8-bit joystick axis.
const DefaultLimit = 127

type State struct {
	X       int16 `json:"x"`
	Y       int16 `json:"y"`
	Enabled bool  `json:"enabled"`
}

type ReaderConfig struct {
	PinX     hostapi.Pin `json:"pinX"`
	PinY     hostapi.Pin `json:"pinY"`
	X        Axis        `json:"x"`
	Y        Axis        `json:"y"`
	Deadzone uint16      `json:"deadzone"`
	Limit    int16       `json:"limit"`
}

func (c ReaderConfig) Validate() error {
	if err := c.X.Validate(); err != nil {
		return fmt.Errorf("x axis: %w", err)
	}
	if err := c.Y.Validate(); err != nil {
		return fmt.Errorf("y axis: %w", err)
	}
	if c.Limit <= 0 {
		return errors.New("limit must be positive")
	}
	return nil
}

// Reader turns two analog samples into calibrated stick angles.
type Reader struct {
	analog hostapi.Analog
	config ReaderConfig
}

func NewReader(analog hostapi.Analog, config ReaderConfig) *Reader {
	return &Reader{
		analog: analog,
		config: config,
	}
}

// Refresh updates the stick angles in place. A disabled stick is zeroed without
// touching the ADC.
func (r *Reader) Refresh(state *State) {
	if !state.Enabled {
		state.X, state.Y = 0, 0
		return
	}
	rawX := int32(r.analog.ReadAnalog(r.config.PinX))
	rawY := int32(r.analog.ReadAnalog(r.config.PinY))
	dx := rawX - int32(r.config.X.Mid)
	dy := rawY - int32(r.config.Y.Mid)
	if IsInDeadzone(dx, dy, r.config.Deadzone) {
		state.X, state.Y = 0, 0
		return
	}
	state.X, state.Y = NormalizeAxis(rawX, r.config.X, r.config.Limit), NormalizeAxis(rawY, r.config.Y, r.config.Limit)
}
