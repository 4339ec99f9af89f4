package controller

import (
	"strings"
	"testing"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/pkg/joystick"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
	"github.com/neuroplastio/neio-stick/pkg/oled"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHost struct {
	samples map[hostapi.Pin]uint16
	axes    map[uint8]int16
	buttons map[uint8]bool
	flushes int

	mouse     hostapi.MouseReport
	mouseSent []hostapi.MouseReport

	now   uint16
	layer uint8
	leds  hostapi.LockLEDs
	typed []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		samples: map[hostapi.Pin]uint16{0: 444, 1: 532},
		axes:    make(map[uint8]int16),
		buttons: make(map[uint8]bool),
	}
}

func (f *fakeHost) ReadAnalog(pin hostapi.Pin) uint16 { return f.samples[pin] }
func (f *fakeHost) SetAxis(axis uint8, value int16) { f.axes[axis] = value }
func (f *fakeHost) RegisterButton(button uint8) { f.buttons[button] = true }
func (f *fakeHost) UnregisterButton(button uint8) { f.buttons[button] = false }
func (f *fakeHost) Flush() { f.flushes++ }
func (f *fakeHost) MouseReport() hostapi.MouseReport { return f.mouse }
func (f *fakeHost) SetMouseReport(report hostapi.MouseReport) { f.mouse = report }
func (f *fakeHost) SendMouse() { f.mouseSent = append(f.mouseSent, f.mouse) }
func (f *fakeHost) ReadTimer() uint16 { return f.now }
func (f *fakeHost) HighestLayer() uint8 { return f.layer }
func (f *fakeHost) LockLEDs() hostapi.LockLEDs { return f.leds }
func (f *fakeHost) SendString(s string) { f.typed = append(f.typed, s) }

func (f *fakeHost) host() hostapi.Host {
	return hostapi.Host{
		Analog:   f,
		Joystick: f,
		Mouse:    f,
		Timer:    f,
		Layers:   f,
		Locks:    f,
		Typist:   f,
	}
}

func testConfig() Config {
	return Config{
		Enabled: true,
		Reader: joystick.ReaderConfig{
			PinX:     0,
			PinY:     1,
			X:        joystick.Axis{Min: 784, Mid: 444, Max: 172},
			Y:        joystick.Axis{Min: 244, Mid: 532, Max: 822},
			Deadzone: 50,
			Limit:    joystick.DefaultLimit,
		},
		Dispatcher:    joystick.DispatcherConfig{AxisX: 0, AxisY: 1, MouseSpeed: 20},
		RapidButton:   0,
		RapidInterval: 50,
		Features:      Features{RapidFire: true, MouseMode: true},
	}
}

func newTestController(t *testing.T, config Config) (*Controller, *fakeHost) {
	t.Helper()
	f := newFakeHost()
	c, err := New(zap.NewNop(), f.host(), keymap.MustDefault(), config)
	require.NoError(t, err)
	return c, f
}

func press(kc keymap.Keycode) hostapi.KeyEvent {
	return hostapi.KeyEvent{Keycode: kc, Pressed: true}
}

func release(kc keymap.Keycode) hostapi.KeyEvent {
	return hostapi.KeyEvent{Keycode: kc}
}

func render(c *Controller) []string {
	g := oled.NewGrid(oled.DefaultCols, oled.DefaultRows)
	c.Render(g)
	return g.Lines()
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := testConfig()
	config.Reader.X.Mid = config.Reader.X.Min
	_, err := New(zap.NewNop(), newFakeHost().host(), keymap.MustDefault(), config)
	assert.ErrorIs(t, err, joystick.ErrInvalidCalibration)

	config = testConfig()
	config.Dispatcher.MouseSpeed = 0
	_, err = New(zap.NewNop(), newFakeHost().host(), keymap.MustDefault(), config)
	assert.Error(t, err)
}

func TestToggleJoystick(t *testing.T) {
	c, f := newTestController(t, testConfig())
	f.samples[0] = 784

	c.OnTick()
	assert.Equal(t, int16(-127), f.axes[0])
	assert.Equal(t, 1, f.flushes)

	assert.False(t, c.OnKeyEvent(press(keymap.JoystickToggle)))
	assert.False(t, c.OnKeyEvent(release(keymap.JoystickToggle)))
	c.OnTick()
	assert.Equal(t, int16(0), f.axes[0])
	assert.False(t, c.Status().Joystick.Enabled)

	c.OnKeyEvent(press(keymap.JoystickToggle))
	assert.True(t, c.Status().Joystick.Enabled)
}

func TestMouseMode(t *testing.T) {
	c, f := newTestController(t, testConfig())
	f.samples[0] = 614 // X = -63
	f.samples[1] = 677 // Y = 63
	c.OnTick()
	assert.Equal(t, int16(-63), f.axes[0])
	assert.Equal(t, int16(63), f.axes[1])
	assert.Equal(t, 1, f.flushes)

	assert.False(t, c.OnKeyEvent(press(keymap.JoystickMouse)))
	assert.Equal(t, "mouse", c.Status().Mode)
	assert.Equal(t, int16(0), f.axes[0])
	assert.Equal(t, int16(0), f.axes[1])
	assert.Equal(t, 2, f.flushes)

	c.OnTick()
	require.Len(t, f.mouseSent, 1)
	assert.Equal(t, int8(-3), f.mouseSent[0].X)
	assert.Equal(t, int8(3), f.mouseSent[0].Y)
	assert.Equal(t, 2, f.flushes)
	assert.Equal(t, int16(0), f.axes[0])

	c.OnKeyEvent(press(keymap.JoystickMouse))
	assert.Equal(t, 2, f.flushes)
	c.OnTick()
	assert.Len(t, f.mouseSent, 1)
	assert.Equal(t, 3, f.flushes)
	assert.Equal(t, int16(-63), f.axes[0])
}

func TestRapidFire(t *testing.T) {
	c, f := newTestController(t, testConfig())

	f.now = 1000
	c.OnKeyEvent(press(keymap.JoystickRapid))
	c.OnKeyEvent(release(keymap.JoystickRapid))
	assert.True(t, c.Status().Rapid)

	f.now = 1049
	c.OnTick()
	assert.False(t, f.buttons[0])
	f.now = 1050
	c.OnTick()
	assert.True(t, f.buttons[0])
	f.now = 1100
	c.OnTick()
	assert.False(t, f.buttons[0])
	f.now = 1150
	c.OnTick()
	assert.True(t, f.buttons[0])

	c.OnKeyEvent(press(keymap.JoystickRapid))
	assert.False(t, f.buttons[0])
	assert.False(t, c.Status().Rapid)
	assert.False(t, c.Status().Pressing)
}

func TestDisabledFeaturesConsumeKeys(t *testing.T) {
	config := testConfig()
	config.Features = Features{}
	c, f := newTestController(t, config)

	assert.False(t, c.OnKeyEvent(press(keymap.JoystickRapid)))
	assert.False(t, c.OnKeyEvent(press(keymap.JoystickMouse)))
	assert.False(t, c.Status().Rapid)
	assert.Equal(t, "axis", c.Status().Mode)

	c.OnTick()
	assert.Equal(t, 1, f.flushes)
	assert.Empty(t, f.mouseSent)
}

func TestDoubleZero(t *testing.T) {
	c, f := newTestController(t, testConfig())
	assert.False(t, c.OnKeyEvent(press(keymap.DoubleZero)))
	assert.False(t, c.OnKeyEvent(release(keymap.DoubleZero)))
	assert.Equal(t, []string{"00"}, f.typed)
}

func TestOtherKeysPassThrough(t *testing.T) {
	c, _ := newTestController(t, testConfig())
	for _, kc := range []keymap.Keycode{keymap.KeyA, keymap.To(1), keymap.JoystickButton(0)} {
		assert.True(t, c.OnKeyEvent(press(kc)))
		assert.True(t, c.OnKeyEvent(release(kc)))
	}
}

func TestRender(t *testing.T) {
	c, f := newTestController(t, testConfig())
	f.leds = hostapi.LockLEDs{NumLock: true, ScrollLock: true}
	f.layer = 1

	lines := render(c)
	assert.Equal(t, "|   |_| |_)  NL    SL", lines[0])
	assert.Equal(t, "|__ | | |    JS:E-   ", lines[1])
	assert.Equal(t, "Layer: NUMPADS       ", lines[2])
	assert.Equal(t, strings.Repeat(" ", 21), lines[3])

	f.layer = 7
	assert.Equal(t, "Layer: Undefined     ", render(c)[2])
}

func TestRenderEnabledDiffersInOneGlyph(t *testing.T) {
	c, _ := newTestController(t, testConfig())
	enabled := render(c)
	c.OnKeyEvent(press(keymap.JoystickToggle))
	disabled := render(c)
	c.OnKeyEvent(press(keymap.JoystickToggle))
	again := render(c)

	assert.Equal(t, enabled, again)
	diff := 0
	for row := range enabled {
		for col := range enabled[row] {
			if enabled[row][col] != disabled[row][col] {
				diff++
				assert.Equal(t, byte('E'), enabled[row][col])
				assert.Equal(t, byte('D'), disabled[row][col])
			}
		}
	}
	assert.Equal(t, 1, diff)
}

func TestRenderAngles(t *testing.T) {
	config := testConfig()
	config.Features.AngleReadout = true
	c, f := newTestController(t, config)
	f.samples[0] = 784
	f.samples[1] = 596
	c.OnTick()
	assert.Equal(t, "X:-127 Y:  28        ", render(c)[3])
}

func TestReconfigure(t *testing.T) {
	c, f := newTestController(t, testConfig())
	f.now = 0
	c.OnKeyEvent(press(keymap.JoystickRapid))
	f.now = 50
	c.OnTick()
	require.True(t, f.buttons[0])
	c.OnKeyEvent(press(keymap.JoystickMouse))

	config := testConfig()
	config.Features.MouseMode = false
	require.NoError(t, c.Reconfigure(keymap.New(), config))
	assert.False(t, f.buttons[0])
	assert.False(t, c.Status().Rapid)
	assert.Equal(t, "axis", c.Status().Mode)
	assert.True(t, c.Status().Joystick.Enabled)
	assert.Equal(t, keymap.UndefinedLayerName+"     ", render(c)[2][7:])

	config.Dispatcher.MouseSpeed = -1
	assert.Error(t, c.Reconfigure(keymap.New(), config))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	c, f := newTestController(t, config)
	f.samples[0] = 172
	c.OnTick()
	assert.Equal(t, int16(127), f.axes[0])
	assert.Equal(t, int16(0), f.axes[1])

	f.samples[0] = 784
	c.OnTick()
	assert.Equal(t, int16(-127), f.axes[0])

	f.samples[0] = 444
	f.samples[1] = 822
	c.OnTick()
	assert.Equal(t, int16(0), f.axes[0])
	assert.Equal(t, int16(127), f.axes[1])
}
