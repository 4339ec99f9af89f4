// Package linux implements the host backend for Linux: analog samples and key
// states come from a USB ADC bridge read through hidapi, reports go out
// through a uhid virtual device.
package linux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jochenvg/go-udev"
	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/sstallion/go-hid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var defaultBackendOptions = backendOptions{
	readTimeout: 100 * time.Millisecond,
}

type backendOptions struct {
	readTimeout time.Duration
}

type Option func(*backendOptions)

// WithReadTimeout bounds a single bridge read so cancellation is noticed.
func WithReadTimeout(d time.Duration) Option {
	return func(o *backendOptions) {
		o.readTimeout = d
	}
}

type Config struct {
	Bridge BridgeConfig `json:"bridge"`
	Output OutputConfig `json:"output"`
}

func (c Config) Validate() error {
	if err := c.Bridge.Validate(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	if c.Output.Name == "" {
		return errors.New("output: name is required")
	}
	return nil
}

var ErrNotConnected = errors.New("output device is not connected")

// Backend implements hostsvc.Backend for Linux.
type Backend struct {
	log     *zap.Logger
	options backendOptions
	config  Config

	udev *udev.Udev

	readyOnce sync.Once
	ready     chan struct{}

	samples atomic.Pointer[[]uint16]
	output  atomic.Pointer[outputDevice]
}

var _ hostsvc.Backend = (*Backend)(nil)

func NewBackend(log *zap.Logger, config Config, opts ...Option) *Backend {
	options := defaultBackendOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Backend{
		log:     log,
		options: options,
		config:  config,
		ready:   make(chan struct{}),
	}
}

func (b *Backend) Ready() <-chan struct{} {
	return b.ready
}

// Start opens the bridge and the output device and reads the bridge until
// ctx is done or the bridge fails.
func (b *Backend) Start(ctx context.Context, pub hostsvc.BackendPublisher) error {
	if err := b.config.Validate(); err != nil {
		return fmt.Errorf("invalid linux backend config: %w", err)
	}
	if err := hid.Init(); err != nil {
		return fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	b.udev = &udev.Udev{}

	b.log.Info("Starting Linux backend")
	bridge, err := b.openBridge()
	if err != nil {
		return err
	}
	defer bridge.Close()

	release, err := bridge.Acquire()
	if err != nil {
		return fmt.Errorf("failed to acquire bridge: %w", err)
	}
	defer release()

	descriptor, err := hostsvc.EncodeReportDescriptor()
	if err != nil {
		return fmt.Errorf("failed to encode report descriptor: %w", err)
	}
	out, err := openOutputDevice(ctx, b.log, b.config.Output, descriptor, func(leds hostapi.LockLEDs) {
		pub(ctx, hostsvc.BackendEvent{LEDs: &leds})
	})
	if err != nil {
		return err
	}
	defer out.Close()
	b.output.Store(out)
	defer b.output.Store(nil)

	devices := []hostsvc.BackendDevice{
		{ID: bridge.ID(), Name: bridge.Name(), Role: hostsvc.DeviceRoleInput},
		{ID: out.ID(), Name: b.config.Output.Name, Role: hostsvc.DeviceRoleOutput},
	}
	pub(ctx, hostsvc.BackendEvent{DevicesChanged: &hostsvc.DevicesChanged{Connected: devices}})

	b.readyOnce.Do(func() {
		close(b.ready)
	})
	b.log.Info("Linux backend started", zap.String("bridge", bridge.ID()))

	err = bridge.Run(ctx, b.options.readTimeout, func(samples []uint16) {
		b.samples.Store(&samples)
	}, func(change hostsvc.KeyChange) {
		pub(ctx, hostsvc.BackendEvent{Key: &change})
	})
	if err != nil {
		pub(ctx, hostsvc.BackendEvent{DevicesChanged: &hostsvc.DevicesChanged{
			Disconnected: []string{bridge.ID(), out.ID()},
		}})
		return err
	}
	return nil
}

// ReadAnalog returns the latest bridge sample of pin, or 0 before the first
// report.
func (b *Backend) ReadAnalog(pin hostapi.Pin) uint16 {
	samples := b.samples.Load()
	if samples == nil || int(pin) >= len(*samples) {
		return 0
	}
	return (*samples)[pin]
}

func (b *Backend) WriteReport(report []byte) error {
	out := b.output.Load()
	if out == nil {
		return ErrNotConnected
	}
	return out.Write(report)
}
