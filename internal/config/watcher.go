// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileDebounce is the default duration we wait for the contents to have
// stabilised to work around some editors writing an empty file and then the
// buffer.
const FileDebounce = 10 * time.Millisecond

// Change is a configuration change identified by a Watcher.
type Change struct {
	Event  []fsnotify.Event
	Config *Player
	Sum    Sum
	Err    error
}

// Op returns an aggregated fsnotify.Op for all elements of the receivers'
// Event field.
func (c Change) Op() fsnotify.Op {
	switch len(c.Event) {
	case 0:
		return 0
	case 1:
		return c.Event[0].Op
	default:
		var op fsnotify.Op
		for _, o := range c.Event {
			op |= o.Op
		}
		return op
	}
}

// Watcher watches a configuration file and reports semantically meaningful
// changes to it.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	changes  chan<- Change
	sum      Sum
	log      *slog.Logger
}

// NewWatcher returns a Watcher for the configuration file at path, sending
// changes on the changes channel. The directory holding path is watched so
// that files replaced by editors are followed. The debounce parameter
// specifies how long to wait after an fsnotify.Event before reading the file
// to ensure that writes will be reflected in the state checksum. If it is
// less than zero, FileDebounce is used.
func NewWatcher(path string, changes chan<- Change, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if debounce < 0 {
		debounce = FileDebounce
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  watcher,
		changes:  changes,
		log:      log.With(slog.String("component", "config.watcher")),
	}, nil
}

// Watch sends the current configuration and then each change to it until
// ctx is cancelled. A change is sent only if the file's semantic hash differs
// from the last sent configuration, or if the file could not be loaded or
// was removed.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.watcher.Close()
	if !w.reload(ctx, fsnotify.Event{Name: w.path, Op: fsnotify.Create}) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				w.log.LogAttrs(ctx, slog.LevelDebug, "modified", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
				timer := time.NewTimer(w.debounce)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-timer.C:
				}
				if !w.reload(ctx, ev) {
					return nil
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				w.log.LogAttrs(ctx, slog.LevelDebug, "removed", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
				w.sum = Sum{}
				if !w.send(ctx, Change{Event: []fsnotify.Event{ev}}) {
					return nil
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if !w.send(ctx, Change{Err: err}) {
				return nil
			}
		}
	}
}

// reload loads the configuration and sends a change if it differs from the
// last sent configuration. It returns false if ctx was cancelled.
func (w *Watcher) reload(ctx context.Context, ev fsnotify.Event) bool {
	cfg, sum, err := Load(w.path)
	if err == nil && sum == w.sum {
		w.log.LogAttrs(ctx, slog.LevelDebug, "no change", slog.Any("sum", sumValue{sum}))
		return true
	}
	if err == nil {
		w.log.LogAttrs(ctx, slog.LevelDebug, "set hash", slog.Any("sum", sumValue{sum}))
		w.sum = sum
	}
	return w.send(ctx, Change{Event: []fsnotify.Event{ev}, Config: cfg, Sum: sum, Err: err})
}

func (w *Watcher) send(ctx context.Context, c Change) bool {
	w.log.LogAttrs(ctx, slog.LevelDebug, "change", slog.Any("change", changeValue{c}))
	select {
	case <-ctx.Done():
		return false
	case w.changes <- c:
		return true
	}
}
