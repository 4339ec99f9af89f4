package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neuroplastio/neio-stick/internal/controller"
	"github.com/neuroplastio/neio-stick/internal/hostsvc/linux"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
)

// Config comes from command line flags and points to the stick configuration
// file. Only the stick configuration is live reloaded.
type Config struct {
	DataDir     string `json:"dataDir"`
	StickConfig string `json:"stickConfig"`
	// Backend is "linux" or "sim".
	Backend  string `json:"backend"`
	ViewAddr string `json:"viewAddr"`
}

const (
	BackendLinux = "linux"
	BackendSim   = "sim"
)

func (c Config) Validate() error {
	switch c.Backend {
	case BackendLinux, BackendSim:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.StickConfig == "" {
		return errors.New("stick config path is required")
	}
	return nil
}

// StickConfig is the user configuration stored in stick.yml.
type StickConfig struct {
	Controller controller.Config    `json:"controller"`
	Keymap     []keymap.LayerConfig `json:"keymap"`
	Host       HostConfig           `json:"host"`
	Linux      linux.Config         `json:"linux"`
}

type HostConfig struct {
	ScanInterval    Duration `json:"scanInterval"`
	DisplayInterval Duration `json:"displayInterval"`
}

func DefaultStickConfig() StickConfig {
	return StickConfig{
		Controller: controller.DefaultConfig(),
		Keymap:     keymap.DefaultLayers(),
		Host: HostConfig{
			ScanInterval:    Duration(10 * time.Millisecond),
			DisplayInterval: Duration(50 * time.Millisecond),
		},
		Linux: linux.Config{
			Bridge: linux.BridgeConfig{
				Address:  "1209:5354:0",
				ReportID: 1,
				Pins:     2,
				Rows:     4,
				Cols:     7,
			},
			Output: linux.OutputConfig{
				Name:      "neio-stick",
				VendorID:  0x1209,
				ProductID: 0x5355,
			},
		},
	}
}

// Validate checks everything but the linux section, which only matters
// when the linux backend runs.
func (c StickConfig) Validate() error {
	if err := c.Controller.Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if _, err := keymap.Compile(c.Keymap); err != nil {
		return fmt.Errorf("keymap: %w", err)
	}
	if c.Host.ScanInterval <= 0 || c.Host.DisplayInterval <= 0 {
		return errors.New("host: intervals must be positive")
	}
	return nil
}

type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return errors.New("invalid duration")
	}
}
