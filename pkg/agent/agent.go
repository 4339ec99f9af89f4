package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/internal/configsvc"
	"github.com/neuroplastio/neio-stick/internal/controller"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/neuroplastio/neio-stick/internal/hostsvc/linux"
	"github.com/neuroplastio/neio-stick/internal/hostsvc/sim"
	"github.com/neuroplastio/neio-stick/internal/viewsvc"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
	"github.com/neuroplastio/neio-stick/pkg/registry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

type agentOptions struct {
	simOptions []sim.Option
	logger     *zap.Logger
}

type Option func(*agentOptions)

// WithSimOptions configures the simulator backend.
func WithSimOptions(opts ...sim.Option) Option {
	return func(o *agentOptions) {
		o.simOptions = append(o.simOptions, opts...)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *agentOptions) {
		o.logger = logger
	}
}

type Agent struct {
	config  Config
	options agentOptions
	log     *zap.Logger

	db        *badger.DB
	registry  *hostsvc.Registry
	backends  *registry.Registry[hostsvc.Backend, StickConfig]
	configSvc *configsvc.Service

	ctx     context.Context
	ready   chan struct{}
	sim     *sim.Backend
	hostSvc *hostsvc.Service
	ctrl    *controller.Controller
	viewSvc *viewsvc.Service
	applied StickConfig

	// mu orders stick config applies; pending holds a change that arrived
	// before the host was ready.
	mu      sync.Mutex
	pending *pendingStickConfig
}

type pendingStickConfig struct {
	stick  StickConfig
	keymap *keymap.Keymap
}

func NewLogger() (*zap.Logger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return loggerConfig.Build()
}

func NewAgent(config Config, opts ...Option) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	var options agentOptions
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger
	if logger == nil {
		var err error
		logger, err = NewLogger()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: logger.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	a := &Agent{
		config:    config,
		options:   options,
		log:       logger,
		db:        db,
		registry:  hostsvc.NewRegistry(db, time.Now),
		backends:  registry.New[hostsvc.Backend, StickConfig](),
		configSvc: configsvc.New(logger.Named("config")),
		ready:     make(chan struct{}),
	}
	a.backends.Register(BackendLinux, a.newLinuxBackend)
	a.backends.Register(BackendSim, a.newSimBackend)
	return a, nil
}

func (a *Agent) Close() error {
	return a.db.Close()
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}

// Run starts the agent and blocks until the context is cancelled.
// Agent startup fails if the stick configuration is not valid. If it becomes
// invalid later, the agent keeps running with the last valid configuration.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	a.ctx = groupCtx
	group.Go(func() error {
		return a.configSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return a.runHost(groupCtx, group)
	})

	err := group.Wait()
	if err != nil {
		return fmt.Errorf("agent failed: %w", err)
	}
	return nil
}

func (a *Agent) runHost(ctx context.Context, group *errgroup.Group) error {
	select {
	case <-ctx.Done():
		return nil
	case <-a.configSvc.Ready():
	}
	stick, err := configsvc.RegisterWriteable(a.configSvc, a.config.StickConfig, DefaultStickConfig(), a.onStickConfigChange)
	if err != nil {
		return fmt.Errorf("failed to load stick config: %w", err)
	}
	km, err := keymap.Compile(stick.Keymap)
	if err != nil {
		return fmt.Errorf("failed to compile keymap: %w", err)
	}
	backend, err := a.backends.New(a.config.Backend, stick)
	if err != nil {
		return fmt.Errorf("failed to create %s backend: %w", a.config.Backend, err)
	}

	hostSvc := hostsvc.New(a.log.Named("host"), backend, km, time.Now,
		hostsvc.WithScanInterval(time.Duration(stick.Host.ScanInterval)),
		hostsvc.WithDisplayInterval(time.Duration(stick.Host.DisplayInterval)),
		hostsvc.WithRegistry(a.registry),
	)
	ctrl, err := controller.New(a.log.Named("controller"), hostSvc.Host(), km, stick.Controller)
	if err != nil {
		return err
	}
	hostSvc.Attach(ctrl)
	a.hostSvc = hostSvc
	a.ctrl = ctrl
	a.applied = stick

	if a.config.ViewAddr != "" {
		a.viewSvc = viewsvc.New(a.log.Named("view"), a.config.ViewAddr, hostSvc, time.Now)
		group.Go(func() error {
			return a.viewSvc.Start(ctx)
		})
	}
	group.Go(func() error {
		select {
		case <-ctx.Done():
		case <-hostSvc.Ready():
			a.markReady()
		}
		return nil
	})
	return hostSvc.Start(ctx)
}

func (a *Agent) newLinuxBackend(stick StickConfig) (hostsvc.Backend, error) {
	if err := stick.Linux.Validate(); err != nil {
		return nil, fmt.Errorf("invalid linux backend config: %w", err)
	}
	return linux.NewBackend(a.log.Named("host.linux"), stick.Linux), nil
}

// newSimBackend starts the simulated stick centered.
func (a *Agent) newSimBackend(stick StickConfig) (hostsvc.Backend, error) {
	reader := stick.Controller.Reader
	opts := append([]sim.Option{sim.WithSamples(map[hostapi.Pin]uint16{
		reader.PinX: uint16(reader.X.Mid),
		reader.PinY: uint16(reader.Y.Mid),
	})}, a.options.simOptions...)
	a.sim = sim.NewBackend(a.log.Named("host.sim"), opts...)
	return a.sim, nil
}

// onStickConfigChange applies a reloaded stick config between two ticks.
// Host intervals and backend settings only apply after a restart.
func (a *Agent) onStickConfigChange(stick StickConfig, err error) {
	if err != nil {
		a.log.Error("Invalid stick config, keeping the last valid one", zap.Error(err))
		return
	}
	km, err := keymap.Compile(stick.Keymap)
	if err != nil {
		a.log.Error("Invalid keymap, keeping the last valid one", zap.Error(err))
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-a.ready:
	default:
		a.log.Info("Stick config changed before the host started, applying it once ready")
		a.pending = &pendingStickConfig{stick: stick, keymap: km}
		return
	}
	a.applyStickConfig(stick, km)
}

func (a *Agent) markReady() {
	a.mu.Lock()
	defer a.mu.Unlock()
	close(a.ready)
	if a.pending != nil {
		a.applyStickConfig(a.pending.stick, a.pending.keymap)
		a.pending = nil
	}
}

func (a *Agent) applyStickConfig(stick StickConfig, km *keymap.Keymap) {
	err := a.hostSvc.Do(a.ctx, func() error {
		if err := a.ctrl.Reconfigure(km, stick.Controller); err != nil {
			return err
		}
		a.hostSvc.SetKeymap(km)
		return nil
	})
	if err != nil {
		a.log.Error("failed to apply stick config", zap.Error(err))
		return
	}
	if stick.Host != a.applied.Host || stick.Linux != a.applied.Linux {
		a.log.Warn("Host and backend settings changed, restart to apply them")
	}
	a.log.Info("Stick config reloaded")
}

// Ready is closed once the host runs.
func (a *Agent) Ready() <-chan struct{} {
	return a.ready
}

// Host is available once the agent is ready.
func (a *Agent) Host() *hostsvc.Service {
	return a.hostSvc
}

// Controller is available once the agent is ready.
func (a *Agent) Controller() *controller.Controller {
	return a.ctrl
}

// Simulator returns the simulator backend, or nil for other backends. It is
// available once the agent is ready.
func (a *Agent) Simulator() *sim.Backend {
	return a.sim
}

func (a *Agent) Registry() *hostsvc.Registry {
	return a.registry
}

// View is nil unless a view address is configured.
func (a *Agent) View() *viewsvc.Service {
	return a.viewSvc
}

var errNoHost = errors.New("host is not running")

// Status returns the controller status, read on the host loop.
func (a *Agent) Status(ctx context.Context) (controller.Status, error) {
	select {
	case <-a.ready:
	default:
		return controller.Status{}, errNoHost
	}
	var status controller.Status
	err := a.hostSvc.Do(ctx, func() error {
		status = a.ctrl.Status()
		return nil
	})
	return status, err
}
