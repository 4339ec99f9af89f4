package hostsvc_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/internal/controller"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/neuroplastio/neio-stick/internal/hostsvc/sim"
	"github.com/neuroplastio/neio-stick/pkg/joystick"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const waitFor = 2 * time.Second

func testControllerConfig() controller.Config {
	return controller.Config{
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
		RapidInterval: 50,
		Features:      controller.Features{RapidFire: true, MouseMode: true},
	}
}

type testHost struct {
	svc     *hostsvc.Service
	backend *sim.Backend
	ctx     context.Context
}

func startHost(t *testing.T, opts ...hostsvc.Option) testHost {
	t.Helper()
	log := zap.NewNop()
	backend := sim.NewBackend(log, sim.WithSamples(map[hostapi.Pin]uint16{0: 444, 1: 532}))
	opts = append([]hostsvc.Option{
		hostsvc.WithScanInterval(time.Millisecond),
		hostsvc.WithDisplayInterval(2 * time.Millisecond),
	}, opts...)
	svc := hostsvc.New(log, backend, keymap.MustDefault(), time.Now, opts...)
	ctrl, err := controller.New(log, svc.Host(), keymap.MustDefault(), testControllerConfig())
	require.NoError(t, err)
	svc.Attach(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	select {
	case <-svc.Ready():
	case <-time.After(waitFor):
		t.Fatal("host did not start")
	}
	return testHost{svc: svc, backend: backend, ctx: ctx}
}

func (h testHost) tap(row, col uint8) {
	pos := hostapi.KeyPosition{Row: row, Col: col}
	h.backend.Press(pos)
	h.backend.Release(pos)
}

func (h testHost) layer(t *testing.T) uint8 {
	var layer uint8
	require.NoError(t, h.svc.Do(h.ctx, func() error {
		layer = h.svc.HighestLayer()
		return nil
	}))
	return layer
}

func (h testHost) countReports(report []byte) int {
	n := 0
	for _, r := range h.backend.Reports() {
		if bytes.Equal(r, report) {
			n++
		}
	}
	return n
}

func keyboard(mods byte, keys ...byte) []byte {
	report := []byte{hostsvc.ReportIDKeyboard, mods, 0, 0, 0, 0, 0, 0, 0}
	copy(report[3:], keys)
	return report
}

func TestStartWithoutHooks(t *testing.T) {
	svc := hostsvc.New(zap.NewNop(), sim.NewBackend(zap.NewNop()), keymap.MustDefault(), time.Now)
	assert.ErrorIs(t, svc.Start(context.Background()), hostsvc.ErrNoHooks)
}

func TestLayerSwitchAndKeys(t *testing.T) {
	h := startHost(t)
	assert.Equal(t, uint8(0), h.layer(t))

	h.tap(3, 6) // TO(NUMPADS)
	require.Eventually(t, func() bool { return h.layer(t) == 1 }, waitFor, time.Millisecond)

	h.backend.Press(hostapi.KeyPosition{Row: 1, Col: 0}) // KC_PSLS
	require.Eventually(t, func() bool {
		return h.countReports(keyboard(0, byte(keymap.KeypadSlash))) == 1
	}, waitFor, time.Millisecond)
	h.backend.Release(hostapi.KeyPosition{Row: 1, Col: 0})
	require.Eventually(t, func() bool {
		report, _ := h.backend.LastReport(hostsvc.ReportIDKeyboard)
		return bytes.Equal(report, keyboard(0))
	}, waitFor, time.Millisecond)

	h.tap(0, 4) // LSFT(KC_MINS)
	require.Eventually(t, func() bool {
		return h.countReports(keyboard(0x02, byte(keymap.KeyMinus))) == 1
	}, waitFor, time.Millisecond)

	h.tap(3, 2) // DOUBLE_ZERO
	require.Eventually(t, func() bool {
		return h.countReports(keyboard(0, byte(keymap.Key0))) == 2
	}, waitFor, time.Millisecond)
}

func TestReleaseUsesPressedKeycode(t *testing.T) {
	h := startHost(t)
	h.tap(3, 6)
	// KC_PMNS pressed on NUMPADS, released after switching to FUNCTIONS
	h.backend.Press(hostapi.KeyPosition{Row: 1, Col: 4})
	h.tap(3, 6)
	require.Eventually(t, func() bool { return h.layer(t) == 2 }, waitFor, time.Millisecond)
	h.backend.Release(hostapi.KeyPosition{Row: 1, Col: 4})

	require.Eventually(t, func() bool {
		report, _ := h.backend.LastReport(hostsvc.ReportIDKeyboard)
		return bytes.Equal(report, keyboard(0))
	}, waitFor, time.Millisecond)
	assert.Equal(t, 1, h.countReports(keyboard(0, byte(keymap.KeypadMinus))))
	_, ok := h.backend.LastReport(hostsvc.ReportIDConsumer)
	assert.False(t, ok, "KC_VOLD must not be sent")
}

func TestConsumerKeys(t *testing.T) {
	h := startHost(t)
	h.tap(3, 6)
	h.tap(3, 6) // FUNCTIONS
	h.backend.Press(hostapi.KeyPosition{Row: 0, Col: 4}) // KC_MPLY
	require.Eventually(t, func() bool {
		report, _ := h.backend.LastReport(hostsvc.ReportIDConsumer)
		return bytes.Equal(report, []byte{hostsvc.ReportIDConsumer, 0xCD, 0})
	}, waitFor, time.Millisecond)
	h.backend.Release(hostapi.KeyPosition{Row: 0, Col: 4})
	require.Eventually(t, func() bool {
		report, _ := h.backend.LastReport(hostsvc.ReportIDConsumer)
		return bytes.Equal(report, []byte{hostsvc.ReportIDConsumer, 0, 0})
	}, waitFor, time.Millisecond)
}

func TestJoystickReports(t *testing.T) {
	h := startHost(t)
	h.backend.SetSample(0, 784)
	h.backend.Press(hostapi.KeyPosition{Row: 3, Col: 5}) // JS_0
	require.Eventually(t, func() bool {
		report, _ := h.backend.LastReport(hostsvc.ReportIDJoystick)
		return bytes.Equal(report, []byte{hostsvc.ReportIDJoystick, 0x81, 0, 0, 0, 0x01, 0, 0, 0})
	}, waitFor, time.Millisecond)

	h.backend.Release(hostapi.KeyPosition{Row: 3, Col: 5})
	h.tap(0, 4) // JS_TOGGLE
	require.Eventually(t, func() bool {
		report, _ := h.backend.LastReport(hostsvc.ReportIDJoystick)
		return bytes.Equal(report, []byte{hostsvc.ReportIDJoystick, 0, 0, 0, 0, 0, 0, 0, 0})
	}, waitFor, time.Millisecond)
}

func TestMouseReports(t *testing.T) {
	h := startHost(t)
	h.backend.SetSample(0, 614)
	h.backend.SetSample(1, 677)
	h.tap(2, 4) // JS_MOUSE
	require.Eventually(t, func() bool {
		report, _ := h.backend.LastReport(hostsvc.ReportIDMouse)
		return bytes.Equal(report, []byte{hostsvc.ReportIDMouse, 0, 0xFD, 3, 0, 0})
	}, waitFor, time.Millisecond)
}

func TestLockLEDs(t *testing.T) {
	h := startHost(t)
	leds := hostapi.LockLEDs{NumLock: true, CapsLock: true}
	h.backend.SetLEDs(leds)
	require.Eventually(t, func() bool {
		var got hostapi.LockLEDs
		require.NoError(t, h.svc.Do(h.ctx, func() error {
			got = h.svc.LockLEDs()
			return nil
		}))
		return got == leds
	}, waitFor, time.Millisecond)
}

func TestFrames(t *testing.T) {
	h := startHost(t)
	frames := h.svc.Frames()(h.ctx)

	var frame hostsvc.Frame
	require.Eventually(t, func() bool {
		select {
		case msg := <-frames:
			frame = msg.Message
			return len(frame.Lines) == 4 && strings.HasPrefix(frame.Lines[2], "Layer: MAIN")
		default:
			return false
		}
	}, waitFor, time.Millisecond)
	assert.False(t, frame.Blank)
	assert.Equal(t, uint8(0), frame.Layer)
	assert.Equal(t, "|__ | | |    JS:E-   ", frame.Lines[1])

	h.svc.Suspend()
	require.Eventually(t, func() bool {
		last, ok := h.svc.LastFrame()
		return ok && last.Blank
	}, waitFor, time.Millisecond)
	last, _ := h.svc.LastFrame()
	for _, line := range last.Lines {
		assert.Equal(t, strings.Repeat(" ", 21), line)
	}

	h.svc.Resume()
	require.Eventually(t, func() bool {
		last, ok := h.svc.LastFrame()
		return ok && !last.Blank
	}, waitFor, time.Millisecond)
}

func TestDoReturnsError(t *testing.T) {
	h := startHost(t)
	err := h.svc.Do(h.ctx, func() error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestDevicesAreRecorded(t *testing.T) {
	db := openDB(t)
	registry := hostsvc.NewRegistry(db, time.Now)
	startHost(t, hostsvc.WithRegistry(registry))
	require.Eventually(t, func() bool {
		devices, err := registry.List()
		return err == nil && len(devices) == 2
	}, waitFor, 5*time.Millisecond)
}
