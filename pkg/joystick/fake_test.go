package joystick

import (
	"fmt"

	"github.com/neuroplastio/neio-stick/hostapi"
)

type fakeHost struct {
	samples map[hostapi.Pin]uint16
	reads   int

	axes    map[uint8]int16
	buttons map[uint8]bool
	flushes int
	events  []string

	mouse     hostapi.MouseReport
	mouseSent []hostapi.MouseReport
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		samples: make(map[hostapi.Pin]uint16),
		axes:    make(map[uint8]int16),
		buttons: make(map[uint8]bool),
	}
}

func (f *fakeHost) ReadAnalog(pin hostapi.Pin) uint16 {
	f.reads++
	return f.samples[pin]
}

func (f *fakeHost) SetAxis(axis uint8, value int16) {
	f.axes[axis] = value
}

func (f *fakeHost) RegisterButton(button uint8) {
	f.buttons[button] = true
	f.events = append(f.events, fmt.Sprintf("+%d", button))
}

func (f *fakeHost) UnregisterButton(button uint8) {
	f.buttons[button] = false
	f.events = append(f.events, fmt.Sprintf("-%d", button))
}

func (f *fakeHost) Flush() {
	f.flushes++
}

func (f *fakeHost) MouseReport() hostapi.MouseReport {
	return f.mouse
}

func (f *fakeHost) SetMouseReport(report hostapi.MouseReport) {
	f.mouse = report
}

func (f *fakeHost) SendMouse() {
	f.mouseSent = append(f.mouseSent, f.mouse)
}
