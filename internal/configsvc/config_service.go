// Package configsvc watches YAML configuration files and hands reloaded
// configurations to their subscribers.
package configsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ghodss/yaml"
	"go.uber.org/zap"
)

// Validator is implemented by configs that check themselves after loading.
type Validator interface {
	Validate() error
}

var ErrNotStarted = errors.New("config service is not started")

var defaultOptions = serviceOptions{
	debounce: 100 * time.Millisecond,
}

type serviceOptions struct {
	debounce time.Duration
}

type Option func(*serviceOptions)

// WithDebounce sets how long a file has to stay quiet before it is reloaded.
// Editors usually produce several events per save.
func WithDebounce(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.debounce = d
	}
}

type watchedFile struct {
	reload func()
	timer  *time.Timer
	// reloading serializes reloads of one file, so the last write is applied last.
	reloading sync.Mutex
}

func newWatchedFile(reload func()) *watchedFile {
	f := &watchedFile{}
	f.reload = func() {
		f.reloading.Lock()
		defer f.reloading.Unlock()
		reload()
	}
	return f
}

type Service struct {
	log     *zap.Logger
	options serviceOptions

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	files   map[string]*watchedFile
	ready   chan struct{}
}

func New(log *zap.Logger, opts ...Option) *Service {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		log:     log,
		options: options,
		files:   make(map[string]*watchedFile),
		ready:   make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	s.watcher = watcher
	close(s.ready)
	s.log.Info("Config service started")
	defer s.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				s.schedule(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("Watcher error", zap.Error(err))
		}
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) schedule(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	s.log.Debug("Config file changed", zap.String("path", path))
	f.timer = time.AfterFunc(s.options.debounce, f.reload)
}

func (s *Service) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.timer != nil {
			f.timer.Stop()
		}
	}
}

func (s *Service) watch(absPath string, reload func()) error {
	select {
	case <-s.ready:
	default:
		return ErrNotStarted
	}
	if err := s.watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to add path to watcher %s: %w", absPath, err)
	}
	s.mu.Lock()
	s.files[absPath] = newWatchedFile(reload)
	s.mu.Unlock()
	return nil
}

// Register reads the configuration file at path on top of def and calls fn
// with every reloaded configuration, or the error that prevented loading it.
// The service is a parameter instead of the receiver because methods cannot
// be generic.
func Register[T any](s *Service, path string, def T, fn func(config T, err error)) (T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return def, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	config, err := Read(absPath, def)
	if err != nil {
		return def, err
	}
	err = s.watch(absPath, func() {
		fn(Read(absPath, def))
	})
	if err != nil {
		return def, err
	}
	return config, nil
}

// RegisterWriteable is Register, writing def to path first if the file does
// not exist.
func RegisterWriteable[T any](s *Service, path string, def T, fn func(config T, err error)) (T, error) {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Write(path, def); err != nil {
			return def, fmt.Errorf("failed to initialize config: %w", err)
		}
		s.log.Info("Config file initialized", zap.String("path", path))
	case err != nil:
		return def, fmt.Errorf("failed to stat config file: %w", err)
	}
	return Register(s, path, def, fn)
}

// Write stores config as YAML, creating the parent directory.
func Write[T any](path string, config T) error {
	jsonB, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	yamlB, err := yaml.JSONToYAML(jsonB)
	if err != nil {
		return fmt.Errorf("failed to convert json to yaml: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, yamlB, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Read loads the YAML file at path on top of def and validates the result.
func Read[T any](path string, def T) (T, error) {
	yamlB, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("failed to read config file: %w", err)
	}
	jsonB, err := yaml.YAMLToJSON(yamlB)
	if err != nil {
		return def, fmt.Errorf("failed to convert yaml to json: %w", err)
	}
	// decode into a copy so slices of def are never overwritten
	var config T
	defB, err := json.Marshal(def)
	if err != nil {
		return def, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := json.Unmarshal(defB, &config); err != nil {
		return def, fmt.Errorf("failed to copy defaults: %w", err)
	}
	if err := json.Unmarshal(jsonB, &config); err != nil {
		return def, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if v, ok := any(&config).(Validator); ok {
		if err := v.Validate(); err != nil {
			return def, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}
	return config, nil
}
