// Package sim is an in-memory host backend for tests and the simulate command.
package sim

import (
	"context"
	"sync"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

type backendOptions struct {
	onReport func(report []byte)
	samples  map[hostapi.Pin]uint16
}

type Option func(*backendOptions)

// WithReportHandler calls fn with a copy of every written report.
func WithReportHandler(fn func(report []byte)) Option {
	return func(o *backendOptions) {
		o.onReport = fn
	}
}

// WithSamples sets the initial analog samples, usually the stick center.
func WithSamples(samples map[hostapi.Pin]uint16) Option {
	return func(o *backendOptions) {
		o.samples = samples
	}
}

// Backend implements hostsvc.Backend without hardware. Key and LED changes
// are queued until the host consumes them.
type Backend struct {
	log     *zap.Logger
	options backendOptions

	readyOnce sync.Once
	ready     chan struct{}
	events    chan hostsvc.BackendEvent
	samples   *xsync.MapOf[hostapi.Pin, uint16]

	mu      sync.Mutex
	reports [][]byte
}

var _ hostsvc.Backend = (*Backend)(nil)

func NewBackend(log *zap.Logger, opts ...Option) *Backend {
	var options backendOptions
	for _, opt := range opts {
		opt(&options)
	}
	b := &Backend{
		log:     log,
		options: options,
		ready:   make(chan struct{}),
		events:  make(chan hostsvc.BackendEvent, 256),
		samples: xsync.NewMapOf[hostapi.Pin, uint16](),
	}
	for pin, v := range options.samples {
		b.samples.Store(pin, v)
	}
	return b
}

func (b *Backend) Ready() <-chan struct{} {
	return b.ready
}

func (b *Backend) Start(ctx context.Context, pub hostsvc.BackendPublisher) error {
	pub(ctx, hostsvc.BackendEvent{
		DevicesChanged: &hostsvc.DevicesChanged{
			Connected: []hostsvc.BackendDevice{
				{ID: "sim:matrix", Name: "Simulated matrix", Role: hostsvc.DeviceRoleInput},
				{ID: "sim:hid", Name: "Simulated HID device", Role: hostsvc.DeviceRoleOutput},
			},
		},
	})
	b.readyOnce.Do(func() {
		close(b.ready)
	})
	b.log.Info("Simulator backend started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-b.events:
			pub(ctx, event)
		}
	}
}

func (b *Backend) Press(pos hostapi.KeyPosition) {
	b.events <- hostsvc.BackendEvent{Key: &hostsvc.KeyChange{Position: pos, Pressed: true}}
}

func (b *Backend) Release(pos hostapi.KeyPosition) {
	b.events <- hostsvc.BackendEvent{Key: &hostsvc.KeyChange{Position: pos}}
}

func (b *Backend) SetLEDs(leds hostapi.LockLEDs) {
	b.events <- hostsvc.BackendEvent{LEDs: &leds}
}

func (b *Backend) SetSample(pin hostapi.Pin, value uint16) {
	b.samples.Store(pin, value)
}

func (b *Backend) ReadAnalog(pin hostapi.Pin) uint16 {
	v, _ := b.samples.Load(pin)
	return v
}

func (b *Backend) WriteReport(report []byte) error {
	data := make([]byte, len(report))
	copy(data, report)
	b.mu.Lock()
	b.reports = append(b.reports, data)
	b.mu.Unlock()
	if b.options.onReport != nil {
		b.options.onReport(data)
	}
	return nil
}

// Reports returns every report written so far.
func (b *Backend) Reports() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.reports...)
}

// LastReport returns the most recent report with the given ID.
func (b *Backend) LastReport(reportID uint8) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.reports) - 1; i >= 0; i-- {
		if len(b.reports[i]) > 0 && b.reports[i][0] == reportID {
			return b.reports[i], true
		}
	}
	return nil, false
}
