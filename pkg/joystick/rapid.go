package joystick

import (
	"github.com/neuroplastio/neio-stick/hostapi"
)

// RapidFire repeatedly presses and releases one joystick button while active.
//
// States: idle (not enabled), active-released and active-pressed. The button
// reported to the host always matches Pressing.
type RapidFire struct {
	buttons  hostapi.Joystick
	button   uint8
	interval uint16

	enabled    bool
	pressing   bool
	lastToggle uint16
}

func NewRapidFire(buttons hostapi.Joystick, button uint8, interval uint16) *RapidFire {
	return &RapidFire{
		buttons:  buttons,
		button:   button,
		interval: interval,
	}
}

func (r *RapidFire) Button() uint8 {
	return r.button
}

func (r *RapidFire) Enabled() bool {
	return r.enabled
}

func (r *RapidFire) Pressing() bool {
	return r.pressing
}

func (r *RapidFire) Start(now uint16) {
	if r.enabled {
		return
	}
	r.enabled = true
	r.lastToggle = now
}

func (r *RapidFire) Stop() {
	if !r.enabled {
		return
	}
	if r.pressing {
		r.buttons.UnregisterButton(r.button)
	}
	r.pressing = false
	r.enabled = false
}

func (r *RapidFire) Toggle(now uint16) {
	if r.enabled {
		r.Stop()
		return
	}
	r.Start(now)
}

// Step flips the button once the interval has elapsed since the last flip.
func (r *RapidFire) Step(now uint16) {
	if !r.enabled || hostapi.Elapsed(now, r.lastToggle) < r.interval {
		return
	}
	if r.pressing {
		r.buttons.UnregisterButton(r.button)
	} else {
		r.buttons.RegisterButton(r.button)
	}
	r.pressing = !r.pressing
	r.lastToggle = now
}
