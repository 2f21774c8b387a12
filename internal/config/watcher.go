package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// OnConfigChange registers a callback invoked after the file is reloaded
func (m *Manager) OnConfigChange(callback func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks = append(m.callbacks, callback)
}

// Watch reloads the configuration whenever the file changes on disk. The
// directory is watched rather than the file so editors that replace the
// file on save are picked up.
func (m *Manager) Watch() error {
	m.mu.Lock()
	if m.watching {
		m.mu.Unlock()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(m.configPath)); err != nil {
		m.mu.Unlock()
		w.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	m.watching = true
	m.stopWatch = make(chan struct{})
	stop := m.stopWatch
	m.mu.Unlock()

	go m.watchLoop(w, stop)
	return nil
}

// StopWatching stops the watcher started by Watch
func (m *Manager) StopWatching() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		close(m.stopWatch)
		m.watching = false
	}
}

func (m *Manager) watchLoop(w *fsnotify.Watcher, stop chan struct{}) {
	log := logger.WithComponent("config")
	defer w.Close()

	target := filepath.Clean(m.configPath)
	var pending <-chan time.Time

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("op", ev.Op.String()).Str("file", ev.Name).Msg("Config change detected")
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config watcher error")
		case <-pending:
			pending = nil
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	log := logger.WithComponent("config")

	if err := m.load(); err != nil {
		log.Warn().Err(err).Msg("Failed to reload config, keeping previous values")
		return
	}

	cfg := m.Get()
	m.mu.RLock()
	callbacks := make([]func(*Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	log.Info().Str("path", m.configPath).Msg("Config reloaded")
	for _, callback := range callbacks {
		callback(cfg)
	}
}
