package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/steward/pkg/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadFunc is called with the previous and the newly committed config
type ReloadFunc func(old, new *Config)

// Watcher reloads the config file when it changes on disk
type Watcher struct {
	path     string
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.RWMutex
	current *Config
	reloads []ReloadFunc
}

// NewWatcher creates a watcher for path, starting from an already loaded config
func NewWatcher(path string, current *Config) *Watcher {
	return &Watcher{
		path:     path,
		debounce: 250 * time.Millisecond,
		logger:   log.WithComponent("config").With().Str("path", path).Logger(),
		current:  current,
	}
}

// Current returns the last committed config
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnReload registers fn for every committed reload
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloads = append(w.reloads, fn)
}

// BindInterval pushes sync_up_job_interval_seconds into setting on every
// reload. Out-of-range values are pushed as zero.
func (w *Watcher) BindInterval(setting *IntSetting) {
	w.OnReload(func(_, cfg *Config) {
		seconds, coerced := cfg.SyncUpInterval()
		if coerced {
			w.logger.Warn().
				Int("configured", cfg.SyncUpJobIntervalSeconds).
				Msg("Sync up interval out of range, disabling sync up job")
		}
		setting.Set(seconds)
	})
}

// Reload reads the file once and commits it if it parses and validates.
// A broken file keeps the previous config.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Config reload failed, keeping previous config")
		return err
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn().Err(err).Msg("Config rejected, keeping previous config")
		return err
	}

	w.mu.Lock()
	old := w.current
	if old != nil {
		// Identity fields only take effect on restart.
		cfg.NodeID = old.NodeID
	}
	w.current = cfg
	reloads := append([]ReloadFunc(nil), w.reloads...)
	w.mu.Unlock()

	for _, fn := range reloads {
		fn(old, cfg)
	}
	w.logger.Debug().Msg("Config reloaded")
	return nil
}

// Run watches the config directory until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer fw.Close()

	// Editors replace files on save, so watch the directory, not the file.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	file := filepath.Base(w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() { _ = w.Reload() })
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	w.logger.Info().Msg("Watching config file")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("config watcher closed")
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("config watcher closed")
			}
			w.logger.Warn().Err(err).Msg("Config watch error")
		}
	}
}
