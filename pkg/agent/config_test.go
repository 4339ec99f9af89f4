package agent

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, Duration(250*time.Millisecond), d)
	require.NoError(t, json.Unmarshal([]byte(`1000000`), &d))
	assert.Equal(t, Duration(time.Millisecond), d)
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	b, err := json.Marshal(Duration(10 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, `"10ms"`, string(b))
}

func TestDefaultStickConfig(t *testing.T) {
	config := DefaultStickConfig()
	require.NoError(t, config.Validate())
	require.NoError(t, config.Linux.Validate())

	b, err := json.Marshal(config)
	require.NoError(t, err)
	var decoded StickConfig
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, config, decoded)
}

func TestStickConfigValidate(t *testing.T) {
	config := DefaultStickConfig()
	config.Controller.Reader.Y.Mid = config.Controller.Reader.Y.Max
	assert.ErrorContains(t, config.Validate(), "controller")

	config = DefaultStickConfig()
	config.Keymap[0].Keys[0][0] = "KC_NOPE"
	assert.ErrorContains(t, config.Validate(), "keymap")

	config = DefaultStickConfig()
	config.Host.ScanInterval = 0
	assert.Error(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{StickConfig: "stick.yml", Backend: BackendSim}.Validate())
	assert.Error(t, Config{StickConfig: "stick.yml", Backend: "usb"}.Validate())
	assert.Error(t, Config{Backend: BackendLinux}.Validate())
}
