// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/seahorse-keys/seahorse/internal/fsutil"
	"github.com/seahorse-keys/seahorse/internal/util"
)

// reloadDebounce coalesces bursts of file events into one reload.
const reloadDebounce = 200 * time.Millisecond

type listener struct {
	key string
	fn  func(Value)
}

// Store is a preferences file with change notification.
// Store is safe for concurrent use. Listeners run synchronously on the
// goroutine that made the change, outside the store lock.
type Store struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	prefs     Prefs
	listeners map[int]listener
	nextID    int
}

// Open loads the store for dataDir.
func Open(dataDir string) (*Store, error) {
	return OpenPath(Path(dataDir))
}

// OpenPath loads the store at path.
func OpenPath(path string) (*Store, error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		path:      path,
		logger:    util.Logger,
		prefs:     p,
		listeners: make(map[int]listener),
	}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the current preferences.
func (s *Store) Snapshot() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.prefs
	p.Agent.AuthorizeCommand = append([]string(nil), s.prefs.Agent.AuthorizeCommand...)
	return p
}

// Get returns the value of key.
func (s *Store) Get(key string) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Get(key)
}

// GetBool returns a boolean preference.
func (s *Store) GetBool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if v.Kind != KindBool {
		return false, fmt.Errorf("%w: %s is %s", ErrWrongType, key, v.Kind)
	}
	return v.Bool, nil
}

// GetInt returns an integer preference.
func (s *Store) GetInt(key string) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	if v.Kind != KindInt {
		return 0, fmt.Errorf("%w: %s is %s", ErrWrongType, key, v.Kind)
	}
	return v.Int, nil
}

// SetBool updates a boolean preference and persists it.
func (s *Store) SetBool(key string, b bool) error {
	return s.Set(Value{Key: key, Kind: KindBool, Bool: b})
}

// SetInt updates an integer preference and persists it.
func (s *Store) SetInt(key string, n int) error {
	return s.Set(Value{Key: key, Kind: KindInt, Int: n})
}

// SetString parses text for key and stores it.
func (s *Store) SetString(key, text string) error {
	v, err := ParseValue(key, text)
	if err != nil {
		return err
	}
	return s.Set(v)
}

// Set stores v, writes the file and notifies listeners if the value changed.
func (s *Store) Set(v Value) error {
	spec, err := lookupSpec(v.Key)
	if err != nil {
		return err
	}
	if spec.Kind != v.Kind {
		return fmt.Errorf("%w: %s is %s", ErrWrongType, v.Key, spec.Kind)
	}

	s.mu.Lock()
	next := s.prefs
	if err := spec.set(&next, v); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.write(next); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.prefs
	s.prefs = next
	fire := s.changed(prev, next)
	s.mu.Unlock()

	fire()
	return nil
}

// write must be called with s.mu held.
func (s *Store) write(p Prefs) error {
	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := fsutil.MkdirAll(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Notify registers fn for changes to key and returns an id for Unnotify.
func (s *Store) Notify(key string, fn func(Value)) (int, error) {
	if _, err := lookupSpec(key); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[s.nextID] = listener{key: key, fn: fn}
	return s.nextID, nil
}

// Unnotify removes a listener. Unknown ids are ignored.
func (s *Store) Unnotify(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

// changed must be called with s.mu held. It returns a closure that
// delivers notifications for every key that differs between prev and next.
func (s *Store) changed(prev, next Prefs) func() {
	type call struct {
		fn func(Value)
		v  Value
	}
	var calls []call
	for _, spec := range specs {
		a, b := spec.get(&prev), spec.get(&next)
		if a == b {
			continue
		}
		b.Key = spec.Name
		for _, l := range s.listeners {
			if l.key == spec.Name {
				calls = append(calls, call{l.fn, b})
			}
		}
	}
	return func() {
		for _, c := range calls {
			c.fn(c.v)
		}
	}
}

// Reload re-reads the file and notifies listeners of changed keys.
func (s *Store) Reload() error {
	p, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.prefs
	s.prefs = p
	fire := s.changed(prev, p)
	s.mu.Unlock()

	fire()
	return nil
}

// Watch reloads the store whenever the file changes on disk, until ctx is
// done. The parent directory is watched so atomic replacements are seen.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := fsutil.MkdirAll(dir); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch preferences directory: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		name := filepath.Base(s.path)
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if ctx.Err() != nil {
						return
					}
					if err := s.Reload(); err != nil {
						s.logger.Warn("failed to reload preferences", "path", s.path, "error", err)
						return
					}
					s.logger.Debug("preferences reloaded", "path", s.path)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("preferences watcher error", "error", err)
			}
		}
	}()

	return nil
}
