package joystick

import (
	"errors"

	"github.com/neuroplastio/neio-stick/hostapi"
)

type Mode uint8

const (
	ModeAxis Mode = iota
	ModeMouse
)

func (m Mode) String() string {
	switch m {
	case ModeAxis:
		return "axis"
	case ModeMouse:
		return "mouse"
	}
	return "unknown"
}

// Toggle switches between axis and mouse output.
func (m Mode) Toggle() Mode {
	if m == ModeMouse {
		return ModeAxis
	}
	return ModeMouse
}

type DispatcherConfig struct {
	AxisX uint8 `json:"axisX"`
	AxisY uint8 `json:"axisY"`
	// MouseSpeed divides stick angles down to mouse deltas; higher is slower.
	MouseSpeed int16 `json:"mouseSpeed"`
}

func (c DispatcherConfig) Validate() error {
	if c.MouseSpeed < 1 {
		return errors.New("mouse speed must be at least 1")
	}
	if c.AxisX == c.AxisY {
		return errors.New("x and y must use different joystick axes")
	}
	return nil
}

// Dispatcher sends the stick state to the host, either as joystick axes or as
// relative mouse motion. Every Report call transmits exactly one HID report.
type Dispatcher struct {
	joystick hostapi.Joystick
	mouse    hostapi.Mouse
	config   DispatcherConfig
}

func NewDispatcher(joystick hostapi.Joystick, mouse hostapi.Mouse, config DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		joystick: joystick,
		mouse:    mouse,
		config:   config,
	}
}

func (d *Dispatcher) Report(state State, mode Mode) {
	if mode == ModeMouse {
		d.reportMouse(state)
		return
	}
	d.joystick.SetAxis(d.config.AxisX, state.X)
	d.joystick.SetAxis(d.config.AxisY, state.Y)
	d.joystick.Flush()
}

// Center sends the joystick axes at rest. Called when output leaves axis mode;
// later joystick reports (rapid fire buttons) carry the centered axes.
func (d *Dispatcher) Center() {
	d.joystick.SetAxis(d.config.AxisX, 0)
	d.joystick.SetAxis(d.config.AxisY, 0)
	d.joystick.Flush()
}

func (d *Dispatcher) reportMouse(state State) {
	report := d.mouse.MouseReport()
	report.X = clampInt8(state.X / d.config.MouseSpeed)
	report.Y = clampInt8(state.Y / d.config.MouseSpeed)
	d.mouse.SetMouseReport(report)
	d.mouse.SendMouse()
}

func clampInt8(v int16) int8 {
	switch {
	case v < -127:
		return -127
	case v > 127:
		return 127
	}
	return int8(v)
}
