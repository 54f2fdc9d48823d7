// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	edgelog "github.com/nordlock/sentrygate/internal/log"
)

// Holder holds configuration with atomic reloading. It gives every core
// (decision engine, janitor, reader gateway, API) a consistent, lock-free
// read of the current Snapshot, and swaps in a new one only after the
// replacement has passed Validate.
type Holder struct {
	reloadOpMu sync.Mutex
	epoch      atomic.Uint64
	snapshot   atomic.Pointer[Snapshot]
	loader     *Loader
	configPath string
	configDir  string
	configFile string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	reloadMu  sync.RWMutex
	listeners []chan<- AppConfig
}

// NewHolder creates a Holder seeded with initial.
func NewHolder(initial AppConfig, loader *Loader, configPath string) *Holder {
	h := &Holder{
		loader:     loader,
		configPath: configPath,
		logger:     edgelog.WithComponent("config"),
		listeners:  make([]chan<- AppConfig, 0),
	}
	snap := BuildSnapshot(initial)
	h.Swap(&snap)
	return h
}

// Get returns the current config (thread-safe).
func (h *Holder) Get() AppConfig {
	return h.Snapshot().App
}

// Current returns the current Snapshot pointer.
func (h *Holder) Current() *Snapshot {
	return h.snapshot.Load()
}

// Swap atomically installs next, assigning it the next epoch.
func (h *Holder) Swap(next *Snapshot) (prev *Snapshot) {
	if next == nil {
		return h.snapshot.Load()
	}
	next.Epoch = h.epoch.Add(1)
	return h.snapshot.Swap(next)
}

// Snapshot returns a copy of the current Snapshot.
func (h *Holder) Snapshot() Snapshot {
	snap := h.Current()
	if snap == nil {
		return Snapshot{}
	}
	return *snap
}

// Reload reloads configuration from file plus environment and validates it.
// On validation failure the previous config is kept untouched and an error
// is returned — config changes are all-or-nothing.
func (h *Holder) Reload(_ context.Context) error {
	h.reloadOpMu.Lock()
	defer h.reloadOpMu.Unlock()

	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	if err := Validate(newCfg); err != nil {
		h.logger.Error().Err(err).Str("event", "config.validation_failed").Msg("new configuration failed validation")
		return fmt.Errorf("validate config: %w", err)
	}

	newSnap := BuildSnapshot(newCfg)
	h.Swap(&newSnap)
	h.notifyListeners(newCfg)

	h.logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded successfully")
	return nil
}

// Apply validates cfg and swaps it in directly, without reading the file.
// Used by the `/v1/config` PUT handler after it has merged the request body
// onto the current config.
func (h *Holder) Apply(cfg AppConfig) error {
	h.reloadOpMu.Lock()
	defer h.reloadOpMu.Unlock()

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	newSnap := BuildSnapshot(cfg)
	h.Swap(&newSnap)
	h.notifyListeners(cfg)
	return nil
}

// StartWatcher watches the config file directory for writes and triggers a
// debounced Reload. A no-op if configPath is empty (environment-only mode).
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("config file watcher disabled (no config path set)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	h.configDir = filepath.Dir(h.configPath)
	h.configFile = filepath.Base(h.configPath)

	if err := watcher.Add(h.configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().Str("event", "config.watcher_started").Str("path", h.configPath).Msg("watching config file for changes")
	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	const debounceDuration = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			if h.watcher != nil {
				_ = h.watcher.Close()
			}
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if h.configFile != "" && filepath.Base(event.Name) != h.configFile {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				h.logger.Debug().Str("event", "config.file_changed").Str("op", event.Op.String()).Msg("config file changed")
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Error().Err(err).Str("event", "config.auto_reload_failed").Msg("automatic config reload failed")
					}
				})
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop stops the watcher, if running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers ch to receive the new config on every
// successful reload or Apply. The caller owns the channel's lifetime.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(cfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str("event", "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}
