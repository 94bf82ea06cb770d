package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file
// changes. Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cfg, err := l.load()
					if err != nil {
						// Keep serving the old config.
						continue
					}
					l.mu.Lock()
					l.current = cfg
					callbacks := make([]func(*Config), len(l.onChange))
					copy(callbacks, l.onChange)
					l.mu.Unlock()
					for _, fn := range callbacks {
						fn(cfg)
					}
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.TTL.EmailMs == 0 {
		cfg.TTL.EmailMs = 10 * 60 * 1000
	}
	if cfg.TTL.PhoneMs == 0 {
		cfg.TTL.PhoneMs = 10 * 60 * 1000
	}
	if cfg.TTL.CardMs == 0 {
		cfg.TTL.CardMs = 24 * 60 * 60 * 1000
	}
	if cfg.Sync.PollIntervalMs == 0 {
		cfg.Sync.PollIntervalMs = 5000
	}
	if cfg.Sync.RequestTimeoutMs == 0 {
		cfg.Sync.RequestTimeoutMs = 10000
	}
	if cfg.Simulation.SMSMinMs == 0 {
		cfg.Simulation.SMSMinMs = 20000
	}
	if cfg.Simulation.SMSMaxMs == 0 {
		cfg.Simulation.SMSMaxMs = 40000
	}
	if cfg.Simulation.TxMinMs == 0 {
		cfg.Simulation.TxMinMs = 30000
	}
	if cfg.Simulation.TxMaxMs == 0 {
		cfg.Simulation.TxMaxMs = 90000
	}
	if cfg.Stream.Buffer == 0 {
		cfg.Stream.Buffer = 16
	}
	if cfg.RateLimit.PerSecond == 0 {
		cfg.RateLimit.PerSecond = 20
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 50
	}
	if cfg.Providers.MailTM.TimeoutMs == 0 {
		cfg.Providers.MailTM.TimeoutMs = 10000
	}
	if cfg.Providers.Issuing.TimeoutMs == 0 {
		cfg.Providers.Issuing.TimeoutMs = 10000
	}
}
