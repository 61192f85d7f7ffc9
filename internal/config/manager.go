// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// updatableFields are the JSON field names accepted by Apply. Anything else
// in a patch is ignored so a caller sending unknown keys cannot corrupt the
// configuration.
var updatableFields = []string{
	"max_retries",
	"timeout_seconds",
	"fallback_timeout_seconds",
	"confidence_threshold",
	"cache_size",
	"cache_ttl",
	"context_ttl",
	"enable_fallback",
	"force_fallback",
	"backoff_base",
	"max_backoff",
	"min_query_length",
	"max_query_length",
	"min_response_length",
	"debug",
}

// Manager holds the single process-wide Config instance and serializes
// updates against concurrent readers. Dispatcher code calls Snapshot on
// every request so an Apply takes effect on the next query.
type Manager struct {
	mu  sync.RWMutex
	cur Config
}

// NewManager wraps cfg in a Manager.
func NewManager(cfg Config) *Manager {
	return &Manager{cur: cfg}
}

// Snapshot returns a copy of the current configuration.
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Set replaces the configuration wholesale after validation.
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cur = cfg
	m.mu.Unlock()
	return nil
}

// Apply merges a partial JSON patch into the current configuration. Only
// fields named in updatableFields are honored. The merged result is
// validated before it replaces the current config, so a bad patch leaves
// the previous configuration untouched.
func (m *Manager) Apply(patch []byte) (Config, error) {
	if !gjson.ValidBytes(patch) {
		return m.Snapshot(), fmt.Errorf("config: patch is not valid JSON")
	}
	parsed := gjson.ParseBytes(patch)

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := json.Marshal(m.cur)
	if err != nil {
		return m.cur, fmt.Errorf("config: failed to encode current config: %w", err)
	}

	applied := 0
	for _, field := range updatableFields {
		v := parsed.Get(field)
		if !v.Exists() {
			continue
		}
		cur, err = sjson.SetBytes(cur, field, v.Value())
		if err != nil {
			return m.cur, fmt.Errorf("config: failed to set %s: %w", field, err)
		}
		applied++
	}
	if applied == 0 {
		return m.cur, fmt.Errorf("config: patch contains no updatable fields")
	}

	next := m.cur
	if err := json.Unmarshal(cur, &next); err != nil {
		return m.cur, fmt.Errorf("config: failed to decode merged config: %w", err)
	}
	if err := next.Validate(); err != nil {
		return m.cur, err
	}

	m.cur = next
	log.Infof("Configuration updated (%d fields)", applied)
	return next, nil
}

// Watch reloads the configuration whenever the file at path changes. It
// blocks until ctx is canceled and is meant to run in its own goroutine.
// Reload failures keep the last good configuration.
func (m *Manager) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory; editors often replace the file atomically,
	// which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Warnf("Config reload failed, keeping previous: %v", err)
				continue
			}
			if err := m.Set(cfg); err != nil {
				log.Warnf("Config reload rejected: %v", err)
				continue
			}
			log.Infof("Configuration reloaded from %s", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Config watcher error: %v", err)
		}
	}
}
