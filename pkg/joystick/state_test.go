package joystick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPinX = 5
	testPinY = 4
)

func testReaderConfig() ReaderConfig {
	return ReaderConfig{
		PinX:     testPinX,
		PinY:     testPinY,
		X:        testAxisX,
		Y:        testAxisY,
		Deadzone: 64,
		Limit:    DefaultLimit,
	}
}

func TestRefreshDisabled(t *testing.T) {
	host := newFakeHost()
	host.samples[testPinX] = 784
	host.samples[testPinY] = 822
	reader := NewReader(host, testReaderConfig())

	state := State{X: 12, Y: -40, Enabled: false}
	reader.Refresh(&state)
	assert.Equal(t, State{}, state)
	assert.Zero(t, host.reads)
}

func TestRefreshCenteredIsZero(t *testing.T) {
	host := newFakeHost()
	host.samples[testPinX] = 444
	host.samples[testPinY] = 532
	reader := NewReader(host, testReaderConfig())

	state := State{X: 100, Y: 100, Enabled: true}
	reader.Refresh(&state)
	assert.Equal(t, State{Enabled: true}, state)
	assert.Equal(t, 2, host.reads)
}

func TestRefreshDeadzone(t *testing.T) {
	host := newFakeHost()
	reader := NewReader(host, testReaderConfig())

	// 40^2 + 40^2 < 64^2
	host.samples[testPinX] = 444 + 40
	host.samples[testPinY] = 532 - 40
	state := State{Enabled: true}
	reader.Refresh(&state)
	assert.Equal(t, int16(0), state.X)
	assert.Equal(t, int16(0), state.Y)

	// 64 on a single axis is on the boundary and counts as deflection.
	host.samples[testPinX] = 444
	host.samples[testPinY] = 532 + 64
	reader.Refresh(&state)
	assert.Equal(t, int16(0), state.X)
	assert.Equal(t, int16(28), state.Y)
}

func TestRefreshFullDeflection(t *testing.T) {
	host := newFakeHost()
	reader := NewReader(host, testReaderConfig())

	host.samples[testPinX] = 784
	host.samples[testPinY] = 822
	state := State{Enabled: true}
	reader.Refresh(&state)
	assert.Equal(t, State{X: -127, Y: 127, Enabled: true}, state)

	host.samples[testPinX] = 1023
	host.samples[testPinY] = 0
	reader.Refresh(&state)
	assert.Equal(t, State{X: -127, Y: -127, Enabled: true}, state)
}

func TestReaderConfigValidate(t *testing.T) {
	require.NoError(t, testReaderConfig().Validate())

	config := testReaderConfig()
	config.Y = Axis{Min: 532, Mid: 532, Max: 822}
	assert.ErrorIs(t, config.Validate(), ErrInvalidCalibration)

	config = testReaderConfig()
	config.Limit = 0
	assert.Error(t, config.Validate())
}
