// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xlog "github.com/perigee-io/eofetch/internal/log"
)

// Holder provides thread-safe access to the current configuration and
// hot reloads it when the config file changes. Reloads are atomic: a
// file that fails to load or validate leaves the old config in place.
type Holder struct {
	mu         sync.RWMutex
	current    Config
	configPath string
	logger     zerolog.Logger
}

// NewHolder wraps an initial configuration. configPath may be empty, in
// which case Watch is a no-op.
func NewHolder(initial Config, configPath string) *Holder {
	return &Holder{
		current:    initial,
		configPath: configPath,
		logger:     xlog.WithComponent("config"),
	}
}

// Get returns the current configuration.
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-reads the config file and swaps the configuration in.
func (h *Holder) Reload() error {
	cfg, err := Load(h.configPath)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping previous configuration")
		return err
	}

	h.mu.Lock()
	old := h.current
	h.current = cfg
	h.mu.Unlock()

	if old.LogLevel != cfg.LogLevel {
		xlog.Reconfigure(xlog.Config{Level: cfg.LogLevel})
	}
	h.logger.Info().Msg("configuration reloaded")
	return nil
}

// Watch reloads the configuration whenever the config file is rewritten,
// until ctx is cancelled. Editors replace files rather than write in
// place, so the watch is on the parent directory.
func (h *Holder) Watch(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Debug().Msg("no config file, watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(h.configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				_ = h.Reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				h.logger.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}
