package oled

import (
	"strconv"
	"strings"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/pkg/joystick"
)

// MaxLayerNameLen fits "Layer: " and the name into one 21 column row.
const MaxLayerNameLen = 14

var logo = [...]string{
	"|   |_| |_) ",
	"|__ | | |   ",
}

const LogoLines = len(logo)

func RenderLogo(d hostapi.Display) {
	for i, line := range logo {
		d.SetCursor(0, uint8(i))
		d.Write(line)
	}
}

func RenderLayerName(d hostapi.Display, name string) {
	if len(name) > MaxLayerNameLen {
		name = name[:MaxLayerNameLen]
	}
	d.Write("Layer: ")
	d.WriteLine(name)
}

func RenderLockState(d hostapi.Display, leds hostapi.LockLEDs) {
	d.Write(pick(leds.NumLock, "NL ", "   "))
	d.Write(pick(leds.CapsLock, "CL ", "   "))
	d.Write(pick(leds.ScrollLock, "SL", "  "))
}

// RenderJoystickState writes "JS:" followed by D (disabled), E (axis output)
// or M (mouse output), and R or - for rapid fire.
func RenderJoystickState(d hostapi.Display, state joystick.State, rapid bool, mode joystick.Mode) {
	d.Write("JS:")
	switch {
	case !state.Enabled:
		d.WriteChar('D')
	case mode == joystick.ModeMouse:
		d.WriteChar('M')
	default:
		d.WriteChar('E')
	}
	d.WriteChar(pick(rapid, byte('R'), byte('-')))
}

func RenderAngles(d hostapi.Display, state joystick.State) {
	d.Write("X:")
	d.Write(FormatAngle(state.X))
	d.Write(" Y:")
	d.Write(FormatAngle(state.Y))
}

// FormatAngle right-justifies v in four columns with the sign right before the
// first digit. Values beyond three digits saturate.
func FormatAngle(v int16) string {
	n := int(v)
	switch {
	case n > 999:
		n = 999
	case n < -999:
		n = -999
	}
	s := strconv.Itoa(n)
	return strings.Repeat(" ", 4-len(s)) + s
}

func pick[T any](cond bool, yes, no T) T {
	if cond {
		return yes
	}
	return no
}
