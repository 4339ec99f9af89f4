// Package controller implements the keyboard hooks: it owns the joystick
// pipeline state and reacts to the stick keycodes.
package controller

import (
	"errors"
	"fmt"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/pkg/joystick"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
	"github.com/neuroplastio/neio-stick/pkg/oled"
	"go.uber.org/zap"
)

type Features struct {
	RapidFire    bool `json:"rapidFire"`
	MouseMode    bool `json:"mouseMode"`
	AngleReadout bool `json:"angleReadout"`
}

type Config struct {
	// Enabled is the joystick state after start.
	Enabled    bool                      `json:"enabled"`
	Reader     joystick.ReaderConfig     `json:"reader"`
	Dispatcher joystick.DispatcherConfig `json:"dispatcher"`
	// RapidButton is the joystick button pressed by rapid fire.
	RapidButton uint8 `json:"rapidButton"`
	// RapidInterval is the press/release half period in timer ticks.
	RapidInterval uint16   `json:"rapidInterval"`
	Features      Features `json:"features"`
}

// DefaultConfig is the LHP14 lite calibration with every feature on. The X
// axis is wired inverted, min above max.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Reader: joystick.ReaderConfig{
			PinX:     0,
			PinY:     1,
			X:        joystick.Axis{Min: 784, Mid: 444, Max: 172},
			Y:        joystick.Axis{Min: 244, Mid: 532, Max: 822},
			Deadzone: 64,
			Limit:    joystick.DefaultLimit,
		},
		Dispatcher: joystick.DispatcherConfig{
			AxisX:      0,
			AxisY:      1,
			MouseSpeed: 20,
		},
		RapidButton:   1,
		RapidInterval: 60,
		Features: Features{
			RapidFire:    true,
			MouseMode:    true,
			AngleReadout: true,
		},
	}
}

func (c Config) Validate() error {
	if err := c.Reader.Validate(); err != nil {
		return fmt.Errorf("reader: %w", err)
	}
	if err := c.Dispatcher.Validate(); err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	if c.Features.RapidFire && c.RapidInterval == 0 {
		return errors.New("rapid fire interval must be positive")
	}
	return nil
}

// Status is a point-in-time copy of the controller state.
type Status struct {
	Joystick joystick.State `json:"joystick"`
	Mode     string         `json:"mode"`
	Rapid    bool           `json:"rapid"`
	Pressing bool           `json:"pressing"`
}

// Controller implements hostapi.Hooks. It is not safe for concurrent use; the
// host calls it from a single goroutine.
type Controller struct {
	log    *zap.Logger
	host   hostapi.Host
	keymap *keymap.Keymap
	config Config

	state      joystick.State
	mode       joystick.Mode
	reader     *joystick.Reader
	dispatcher *joystick.Dispatcher
	rapid      *joystick.RapidFire
}

var _ hostapi.Hooks = (*Controller)(nil)

func New(log *zap.Logger, host hostapi.Host, km *keymap.Keymap, config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid controller config: %w", err)
	}
	c := &Controller{
		log:    log,
		host:   host,
		keymap: km,
	}
	c.apply(config)
	c.state.Enabled = config.Enabled
	return c, nil
}

func (c *Controller) apply(config Config) {
	if c.rapid != nil {
		c.rapid.Stop()
	}
	c.config = config
	c.reader = joystick.NewReader(c.host.Analog, config.Reader)
	c.dispatcher = joystick.NewDispatcher(c.host.Joystick, c.host.Mouse, config.Dispatcher)
	c.rapid = joystick.NewRapidFire(c.host.Joystick, config.RapidButton, config.RapidInterval)
	if !config.Features.MouseMode {
		c.mode = joystick.ModeAxis
	}
}

// Reconfigure swaps calibration, output and feature settings. The enabled flag
// and the output mode survive; a running rapid fire is stopped.
func (c *Controller) Reconfigure(km *keymap.Keymap, config Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid controller config: %w", err)
	}
	c.apply(config)
	c.keymap = km
	return nil
}

func (c *Controller) OnTick() {
	if c.config.Features.RapidFire {
		c.rapid.Step(c.host.Timer.ReadTimer())
	}
	c.reader.Refresh(&c.state)
	c.dispatcher.Report(c.state, c.mode)
}

func (c *Controller) OnKeyEvent(ev hostapi.KeyEvent) bool {
	switch ev.Keycode {
	case keymap.JoystickToggle:
		if ev.Pressed {
			c.state.Enabled = !c.state.Enabled
			c.log.Debug("Joystick toggled", zap.Bool("enabled", c.state.Enabled))
		}
	case keymap.JoystickRapid:
		if ev.Pressed && c.config.Features.RapidFire {
			c.rapid.Toggle(c.host.Timer.ReadTimer())
			c.log.Debug("Rapid fire toggled", zap.Bool("enabled", c.rapid.Enabled()))
		}
	case keymap.JoystickMouse:
		if ev.Pressed && c.config.Features.MouseMode {
			c.mode = c.mode.Toggle()
			if c.mode == joystick.ModeMouse {
				c.dispatcher.Center()
			}
			c.log.Debug("Output mode toggled", zap.Stringer("mode", c.mode))
		}
	case keymap.DoubleZero:
		if ev.Pressed {
			c.host.Typist.SendString("00")
		}
	default:
		return true
	}
	return false
}

// Render paints the 21x4 status screen: logo and lock state on the first two
// rows, the layer name on the third and the stick angles on the last.
func (c *Controller) Render(d hostapi.Display) {
	oled.RenderLogo(d)
	d.SetCursor(13, 0)
	oled.RenderLockState(d, c.host.Locks.LockLEDs())
	d.SetCursor(13, 1)
	oled.RenderJoystickState(d, c.state, c.rapid.Enabled(), c.mode)
	d.SetCursor(0, 2)
	oled.RenderLayerName(d, c.keymap.LayerName(c.host.Layers.HighestLayer()))
	if c.config.Features.AngleReadout {
		d.SetCursor(0, 3)
		oled.RenderAngles(d, c.state)
	}
}

func (c *Controller) Status() Status {
	return Status{
		Joystick: c.state,
		Mode:     c.mode.String(),
		Rapid:    c.rapid.Enabled(),
		Pressing: c.rapid.Pressing(),
	}
}
