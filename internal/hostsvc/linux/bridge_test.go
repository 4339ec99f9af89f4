package linux

import (
	"testing"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Address:  "1209:5354:0",
		ReportID: 2,
		Pins:     2,
		Rows:     4,
		Cols:     7,
	}
}

func TestParseHidAddress(t *testing.T) {
	addr, err := ParseHidAddress("1209:5354:1")
	require.NoError(t, err)
	assert.Equal(t, HidAddress{VendorID: 0x1209, ProductID: 0x5354, Interface: 1}, addr)
	assert.Equal(t, "1209:5354:1", addr.String())

	_, err = ParseHidAddress("bridge")
	assert.Error(t, err)
}

func TestBridgeConfigValidate(t *testing.T) {
	assert.NoError(t, testBridgeConfig().Validate())

	c := testBridgeConfig()
	c.Pins = 0
	assert.Error(t, c.Validate())

	c = testBridgeConfig()
	c.Cols = 0
	assert.Error(t, c.Validate())

	c = testBridgeConfig()
	c.Address = ""
	assert.Error(t, c.Validate())
}

func TestParseBridgeReport(t *testing.T) {
	c := testBridgeConfig()
	assert.Equal(t, 1+4+4, c.reportSize())

	// X=444, Y=2000 (clamped), keys (0,4) and (3,6)
	data := []byte{2, 0xBC, 0x01, 0xD0, 0x07, 0x10, 0x00, 0x00, 0x08}
	report, err := c.parseReport(data)
	require.NoError(t, err)
	assert.Equal(t, []uint16{444, 1023}, report.samples)
	assert.Equal(t, 28, report.keys.Len())

	var pressed []hostapi.KeyPosition
	for bit := 0; bit < report.keys.Len(); bit++ {
		if report.keys.IsSet(bit) {
			pressed = append(pressed, c.position(bit))
		}
	}
	assert.Equal(t, []hostapi.KeyPosition{{Row: 0, Col: 4}, {Row: 3, Col: 6}}, pressed)

	_, err = c.parseReport(data[:5])
	assert.Error(t, err)
	_, err = c.parseReport(append([]byte{1}, data[1:]...))
	assert.Error(t, err)

	c.ReportID = 0
	report, err = c.parseReport(data[1:])
	require.NoError(t, err)
	assert.Equal(t, uint16(444), report.samples[0])
}

func TestReadAnalogBeforeFirstReport(t *testing.T) {
	b := NewBackend(nil, Config{Bridge: testBridgeConfig()})
	assert.Equal(t, uint16(0), b.ReadAnalog(0))
	samples := []uint16{444, 532}
	b.samples.Store(&samples)
	assert.Equal(t, uint16(532), b.ReadAnalog(1))
	assert.Equal(t, uint16(0), b.ReadAnalog(5))
	assert.ErrorIs(t, b.WriteReport([]byte{3}), ErrNotConnected)
}
