package hostsvc

import (
	"context"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/pkg/bus"
)

type (
	BackendBus       = bus.Bus[string, BackendEvent]
	BackendPublisher = bus.Publisher[BackendEvent]
)

// BackendEvent is a oneOf type.
type BackendEvent struct {
	Key            *KeyChange
	LEDs           *hostapi.LockLEDs
	DevicesChanged *DevicesChanged
}

// KeyChange is a debounced matrix state change.
type KeyChange struct {
	Position hostapi.KeyPosition
	Pressed  bool
}

type DevicesChanged struct {
	Connected    []BackendDevice
	Disconnected []string
}

type DeviceRole string

const (
	DeviceRoleInput  DeviceRole = "input"
	DeviceRoleOutput DeviceRole = "output"
)

type BackendDevice struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role DeviceRole `json:"role"`
}

// Backend is the hardware side of the host: it scans keys and samples the
// stick, and delivers HID input reports to the computer.
type Backend interface {
	// Start runs the backend until ctx is done. It is restarted after a
	// backoff when it returns an error.
	Start(ctx context.Context, pub BackendPublisher) error
	Ready() <-chan struct{}
	hostapi.Analog
	// WriteReport sends one input report. report[0] is the report ID.
	WriteReport(report []byte) error
}
