// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchEvent describes one schema definition file change detected by a
// Watcher.
type WatchEvent struct {
	Path string
	Op   fsnotify.Op
}

// Watcher watches a directory of schema definition files (*.yaml, *.yml,
// *.json) and invokes a debounced callback on create/write/rename/remove,
// for `forge-model watch`'s "validate on save" loop.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]fsnotify.Op
}

// NewWatcher opens an fsnotify watch on dir.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{watcher: fw, dir: dir, debounce: debounce, pending: map[string]fsnotify.Op{}}, nil
}

// Run blocks, calling onChange once per debounce window with the set of
// paths that changed, until ctx is canceled.
func (w *Watcher) Run(ctx context.Context, onChange func([]WatchEvent)) error {
	defer w.watcher.Close()

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !isDefinitionFile(ev.Name) {
				continue
			}
			w.schedule(ev, onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return err

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) schedule(ev fsnotify.Event, onChange func([]WatchEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[ev.Name] = ev.Op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		batch := make([]WatchEvent, 0, len(w.pending))
		for path, op := range w.pending {
			batch = append(batch, WatchEvent{Path: path, Op: op})
		}
		w.pending = map[string]fsnotify.Op{}
		w.mu.Unlock()
		onChange(batch)
	})
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
