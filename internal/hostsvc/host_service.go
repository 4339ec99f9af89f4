// Package hostsvc is the keyboard host runtime: it scans keys through a
// backend, resolves keycodes through the keymap, drives the hooks and turns
// their calls into HID reports.
package hostsvc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/pkg/bus"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
	"github.com/neuroplastio/neio-stick/pkg/oled"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type (
	FrameBus        = bus.Bus[string, Frame]
	FrameSubscriber = bus.Subscriber[string, Frame]
)

const frameKey = "display"

// Frame is one rendered status screen.
type Frame struct {
	Lines []string         `json:"lines"`
	Layer uint8            `json:"layer"`
	LEDs  hostapi.LockLEDs `json:"leds"`
	Blank bool             `json:"blank"`
}

var defaultOptions = serviceOptions{
	scanInterval:    10 * time.Millisecond,
	displayInterval: 50 * time.Millisecond,
	backoffTimeout:  5 * time.Second,
	cols:            oled.DefaultCols,
	rows:            oled.DefaultRows,
}

type serviceOptions struct {
	scanInterval    time.Duration
	displayInterval time.Duration
	backoffTimeout  time.Duration
	cols, rows      int
	registry        *Registry
}

type Option func(*serviceOptions)

func WithScanInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.scanInterval = d
	}
}

func WithDisplayInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.displayInterval = d
	}
}

func WithBackoffTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.backoffTimeout = d
	}
}

func WithDisplaySize(cols, rows int) Option {
	return func(o *serviceOptions) {
		o.cols = cols
		o.rows = rows
	}
}

// WithRegistry records the devices reported by the backend.
func WithRegistry(r *Registry) Option {
	return func(o *serviceOptions) {
		o.registry = r
	}
}

var ErrNoHooks = errors.New("no hooks attached")

type call struct {
	fn   func() error
	done chan error
}

// Service runs every hook call and every report on a single loop goroutine.
// Methods implementing hostapi interfaces must only be called from hooks.
type Service struct {
	log        *zap.Logger
	backend    Backend
	options    serviceOptions
	now        func() time.Time
	epoch      time.Time
	ready      chan struct{}
	backendBus *BackendBus
	frameBus   *FrameBus
	calls      chan call

	running   atomic.Bool
	suspended atomic.Bool
	lastFrame atomic.Pointer[Frame]

	hooks      hostapi.Hooks
	keymap     *keymap.Keymap
	layerState uint32
	pressed    map[hostapi.KeyPosition]hostapi.Keycode
	leds       hostapi.LockLEDs

	keyboard keyboardReport
	consumer uint16
	mouse    hostapi.MouseReport
	joystick joystickReport
	dirty    bool
	grid     *oled.Grid
}

func New(log *zap.Logger, backend Backend, km *keymap.Keymap, now func() time.Time, opts ...Option) *Service {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		log:        log,
		backend:    backend,
		options:    options,
		now:        now,
		epoch:      now(),
		ready:      make(chan struct{}),
		backendBus: bus.NewBus[string, BackendEvent](log, bus.WithBufferSize(64)),
		frameBus:   bus.NewBus[string, Frame](log, bus.WithBufferSize(4)),
		calls:      make(chan call),
		keymap:     km,
		layerState: 1,
		pressed:    make(map[hostapi.KeyPosition]hostapi.Keycode),
		joystick:   newJoystickReport(),
		grid:       oled.NewGrid(options.cols, options.rows),
	}
}

// Host returns the collaborators hooks are built with.
func (s *Service) Host() hostapi.Host {
	return hostapi.Host{
		Analog:   s.backend,
		Joystick: s,
		Mouse:    s,
		Timer:    s,
		Layers:   s,
		Locks:    s,
		Typist:   s,
	}
}

// Attach sets the hooks driven by the loop. It must be called before Start.
func (s *Service) Attach(hooks hostapi.Hooks) {
	s.hooks = hooks
}

func (s *Service) Start(ctx context.Context) error {
	if s.hooks == nil {
		return ErrNoHooks
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("host service is already running")
	}
	defer s.running.Store(false)

	for _, b := range []interface {
		Start(context.Context) error
		Ready() <-chan struct{}
	}{s.backendBus, s.frameBus} {
		if err := b.Start(ctx); err != nil {
			return fmt.Errorf("failed to start bus: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-b.Ready():
		}
	}
	events := s.backendBus.Subscribe(ctx)

	go s.runBackend(ctx)
	select {
	case <-ctx.Done():
		return nil
	case <-s.backend.Ready():
	}
	close(s.ready)
	s.log.Info("Host started", zap.Duration("scanInterval", s.options.scanInterval))
	return s.loop(ctx, events)
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) runBackend(ctx context.Context) {
	for {
		err := s.backend.Start(ctx, s.backendBus.CreatePublisher("backend"))
		if err != nil {
			s.log.Error("failed to start the backend", zap.Error(err))
		}
		t := time.NewTimer(s.options.backoffTimeout)
		// retry after backoff
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return
		case <-t.C:
		}
	}
}

func (s *Service) loop(ctx context.Context, events <-chan bus.Message[string, BackendEvent]) error {
	scan := time.NewTicker(s.options.scanInterval)
	defer scan.Stop()
	display := time.NewTicker(s.options.displayInterval)
	defer display.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			s.handleBackendEvent(msg.Message)
		case <-scan.C:
			s.tick()
		case <-display.C:
			s.render()
		case c := <-s.calls:
			c.done <- c.fn()
		}
	}
}

// Do runs fn on the loop goroutine between two ticks and returns its error.
func (s *Service) Do(ctx context.Context, fn func() error) error {
	c := call{fn: fn, done: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.calls <- c:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.done:
		return err
	}
}

// SetKeymap replaces the keymap. Keys held during the swap release the
// keycode they pressed. Call it through Do.
func (s *Service) SetKeymap(km *keymap.Keymap) {
	s.keymap = km
}

func (s *Service) handleBackendEvent(event BackendEvent) {
	switch {
	case event.Key != nil:
		s.handleKey(*event.Key)
	case event.LEDs != nil:
		s.leds = *event.LEDs
	case event.DevicesChanged != nil:
		s.handleDevicesChanged(event.DevicesChanged)
	}
}

func (s *Service) handleDevicesChanged(event *DevicesChanged) {
	for _, id := range event.Disconnected {
		s.log.Info("Device disconnected", zap.String("id", id))
	}
	for _, dev := range event.Connected {
		s.log.Info("Device connected", zap.String("id", dev.ID), zap.String("name", dev.Name), zap.String("role", string(dev.Role)))
		if s.options.registry == nil {
			continue
		}
		if _, err := s.options.registry.Record(dev); err != nil {
			s.log.Error("failed to record device", zap.String("id", dev.ID), zap.Error(err))
		}
	}
}

func (s *Service) handleKey(change KeyChange) {
	var kc hostapi.Keycode
	if change.Pressed {
		kc = s.keymap.Resolve(s.layerState, change.Position)
		s.pressed[change.Position] = kc
	} else {
		var ok bool
		kc, ok = s.pressed[change.Position]
		if !ok {
			return
		}
		delete(s.pressed, change.Position)
	}
	ev := hostapi.KeyEvent{
		Keycode:  kc,
		Position: change.Position,
		Pressed:  change.Pressed,
	}
	if !s.hooks.OnKeyEvent(ev) {
		return
	}
	s.processKeycode(ev)
}

func (s *Service) processKeycode(ev hostapi.KeyEvent) {
	kc := ev.Keycode
	switch {
	case kc == keymap.KeyNo || kc == keymap.KeyTransparent:
	case keymap.IsLayerTo(kc):
		if ev.Pressed {
			s.layerState = 1 << keymap.LayerOf(kc)
			s.log.Debug("Layer changed", zap.String("layer", s.keymap.LayerName(keymap.LayerOf(kc))))
		}
	case keymap.IsJoystickButton(kc):
		if ev.Pressed {
			s.RegisterButton(keymap.ButtonOf(kc))
		} else {
			s.UnregisterButton(keymap.ButtonOf(kc))
		}
	case keymap.IsConsumer(kc):
		s.consumer = 0
		if ev.Pressed {
			s.consumer = consumerUsages[kc]
		}
		s.write(consumerReportBytes(s.consumer))
	case keymap.IsBasic(kc) || keymap.IsModified(kc):
		if ev.Pressed {
			s.pressKey(kc)
		} else {
			s.releaseKey(kc)
		}
		s.write(s.keyboard.bytes())
	default:
		s.log.Debug("Unhandled keycode", zap.String("keycode", keymap.KeycodeName(kc)))
	}
}

func (s *Service) pressKey(kc hostapi.Keycode) {
	s.keyboard.mods |= uint8(keymap.Mods(kc) >> 8)
	if !s.keyboard.press(uint8(keymap.Basic(kc))) {
		s.log.Warn("Keyboard report is full", zap.String("keycode", keymap.KeycodeName(kc)))
	}
}

func (s *Service) releaseKey(kc hostapi.Keycode) {
	s.keyboard.mods &^= uint8(keymap.Mods(kc) >> 8)
	s.keyboard.release(uint8(keymap.Basic(kc)))
}

func (s *Service) tick() {
	s.hooks.OnTick()
	if s.dirty {
		s.Flush()
	}
}

func (s *Service) render() {
	s.grid.Clear()
	blank := s.suspended.Load()
	if !blank {
		s.hooks.Render(s.grid)
	}
	frame := Frame{
		Lines: s.grid.Lines(),
		Layer: s.HighestLayer(),
		LEDs:  s.leds,
		Blank: blank,
	}
	if last := s.lastFrame.Load(); last != nil && last.Equal(frame) {
		return
	}
	// a busy subscriber gets the frame on a later display tick
	if !s.frameBus.TryPublish(frameKey, frame) {
		return
	}
	s.lastFrame.Store(&frame)
}

func (f Frame) Equal(other Frame) bool {
	return f.Layer == other.Layer && f.LEDs == other.LEDs && f.Blank == other.Blank && slices.Equal(f.Lines, other.Lines)
}

func (s *Service) write(report []byte) {
	if err := s.backend.WriteReport(report); err != nil {
		s.log.Error("failed to write report", zap.Uint8("reportID", report[0]), zap.Error(err))
	}
}

// Frames subscribes to rendered frames. Frames are only published when the
// screen changes.
func (s *Service) Frames() FrameSubscriber {
	return s.frameBus.CreateSubscriber(frameKey)
}

// LastFrame returns the most recent frame, if any was rendered yet.
func (s *Service) LastFrame() (Frame, bool) {
	f := s.lastFrame.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Suspend blanks the display until Resume.
func (s *Service) Suspend() {
	if !s.suspended.Swap(true) {
		s.log.Info("Host suspended")
	}
}

func (s *Service) Resume() {
	if s.suspended.Swap(false) {
		s.log.Info("Host resumed")
	}
}

func (s *Service) SetAxis(axis uint8, value int16) {
	if int(axis) >= JoystickAxes {
		return
	}
	switch {
	case value < -127:
		value = -127
	case value > 127:
		value = 127
	}
	s.joystick.axes[axis] = int8(value)
	s.dirty = true
}

func (s *Service) RegisterButton(button uint8) {
	if s.joystick.buttons.Set(int(button)) {
		s.dirty = true
	}
}

func (s *Service) UnregisterButton(button uint8) {
	if s.joystick.buttons.Clear(int(button)) {
		s.dirty = true
	}
}

func (s *Service) Flush() {
	s.write(s.joystick.bytes())
	s.dirty = false
}

func (s *Service) MouseReport() hostapi.MouseReport {
	return s.mouse
}

func (s *Service) SetMouseReport(report hostapi.MouseReport) {
	s.mouse = report
}

func (s *Service) SendMouse() {
	s.write(mouseReportBytes(s.mouse))
}

func (s *Service) ReadTimer() uint16 {
	return uint16(s.now().Sub(s.epoch).Milliseconds())
}

func (s *Service) HighestLayer() uint8 {
	return keymap.HighestLayer(s.layerState)
}

func (s *Service) LockLEDs() hostapi.LockLEDs {
	return s.leds
}

// SendString types s on a US layout, one press and release per character.
// Unsupported characters are skipped.
func (s *Service) SendString(str string) {
	for i := 0; i < len(str); i++ {
		kc, err := asciiKeycode(str[i])
		if err != nil {
			s.log.Warn("Skipping character", zap.Error(err))
			continue
		}
		s.pressKey(kc)
		s.write(s.keyboard.bytes())
		s.releaseKey(kc)
		s.write(s.keyboard.bytes())
	}
}
