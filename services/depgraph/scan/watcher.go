// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/uiregistry/pkg/logging"
)

// ChangeOp is the kind of a filesystem change.
type ChangeOp int

const (
	// ChangeCreate indicates a file was created.
	ChangeCreate ChangeOp = iota

	// ChangeWrite indicates a file was modified.
	ChangeWrite

	// ChangeRemove indicates a file was deleted.
	ChangeRemove

	// ChangeRename indicates a file was renamed.
	ChangeRename
)

// String returns the string representation of the operation.
func (op ChangeOp) String() string {
	switch op {
	case ChangeCreate:
		return "create"
	case ChangeWrite:
		return "write"
	case ChangeRemove:
		return "remove"
	case ChangeRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one filesystem event relevant to the scan.
type Change struct {
	// Path is the absolute path of the changed file or directory.
	Path string

	// Op is the type of change.
	Op ChangeOp

	// Time is when the change was observed.
	Time time.Time
}

// ChangeHandler receives one debounced, deduplicated batch of changes.
// It is called from a single goroutine.
type ChangeHandler func(ctx context.Context, changes []Change)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the watcher waits for quiet before flushing.
	// Default: 200ms.
	Debounce time.Duration

	// Extensions limits file events to these extensions. Directory events
	// and manifest or compiler-config files always pass. Empty means
	// DefaultExtensions.
	Extensions []string

	// SkipDirs are directory names never watched, compared
	// case-insensitively. Nil means DefaultSkipDirs.
	SkipDirs []string

	// BufferSize is the capacity of the internal change channel.
	// Default: 1000.
	BufferSize int

	// Logger receives watch errors. Nil disables logging.
	Logger *logging.Logger
}

// configFiles always trigger a rescan because they change classification.
var configFiles = map[string]bool{
	"package.json":    true,
	"tsconfig.json":   true,
	"jsconfig.json":   true,
	"uiregistry.yaml": true,
}

// Watcher reports debounced filesystem changes below a root.
//
// Description:
//
//	Every non-skipped directory is watched. Events are buffered and
//	delivered as one batch once the debounce window passes without new
//	events, keeping only the latest change per path. Directories created
//	while watching are added automatically.
//
// Thread Safety:
//
//	Start and Stop may be called from any goroutine. The handler runs on
//	the watcher's debounce goroutine.
type Watcher struct {
	root       string
	watcher    *fsnotify.Watcher
	handler    ChangeHandler
	debounce   time.Duration
	extensions map[string]bool
	skipDirs   map[string]bool
	logger     *logging.Logger

	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a Watcher for root. Call Start to begin watching.
func NewWatcher(root string, handler ChangeHandler, opts WatcherOptions) (*Watcher, error) {
	if root == "" {
		return nil, ErrNoRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.SkipDirs == nil {
		opts.SkipDirs = DefaultSkipDirs
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:       abs,
		watcher:    fw,
		handler:    handler,
		debounce:   opts.Debounce,
		extensions: lowerSet(opts.Extensions),
		skipDirs:   lowerSet(opts.SkipDirs),
		logger:     opts.Logger,
		changes:    make(chan Change, opts.BufferSize),
		done:       make(chan struct{}),
	}, nil
}

// Start adds the directory tree to the watch list and starts the event and
// debounce goroutines. Both exit on Stop or when ctx is canceled. If the
// root cannot be watched Start returns the error and may be called again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return fmt.Errorf("watching %s: %w", w.root, err)
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// addRecursive watches root and every directory below it. Unreadable
// subdirectories are skipped; an unreadable root is an error.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.skipDirs[strings.ToLower(d.Name())] {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

// relevant reports whether an event path can change the scan result.
func (w *Watcher) relevant(p string) bool {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.skipDirs[strings.ToLower(part)] {
			return false
		}
	}

	base := filepath.Base(p)
	if configFiles[base] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	if w.extensions[ext] {
		return true
	}
	// Extensionless names are usually directories; removed directories
	// can no longer be checked with stat.
	return ext == ""
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}

			change := Change{
				Path: event.Name,
				Time: time.Now(),
				Op:   convertOp(event.Op),
			}

			select {
			case w.changes <- change:
			default:
				w.logger.Warn("watch buffer full, dropping change", "path", event.Name)
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func convertOp(op fsnotify.Op) ChangeOp {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeCreate
	case op.Has(fsnotify.Write):
		return ChangeWrite
	case op.Has(fsnotify.Remove):
		return ChangeRemove
	case op.Has(fsnotify.Rename):
		return ChangeRename
	default:
		return ChangeWrite
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := dedupeChanges(batch)
			if len(deduped) > 0 && w.handler != nil {
				recordWatchBatch(ctx, len(deduped))
				w.handler(ctx, deduped)
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// dedupeChanges keeps the latest change per path, in first-seen order.
func dedupeChanges(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	result := make([]Change, 0, len(changes))
	for _, c := range changes {
		if idx, ok := seen[c.Path]; ok {
			result[idx] = c
			continue
		}
		seen[c.Path] = len(result)
		result = append(result, c)
	}
	return result
}
