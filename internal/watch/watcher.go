// Package watch turns a directory tree into an ordered stream of source
// file events: one OpAdd per existing file, a single OpReady, then live
// OpAdd and OpChange events from fsnotify.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Config describes what to watch.
type Config struct {
	Root      string   // directory to watch, made absolute by New
	Include   string   // doublestar pattern relative to Root
	Ignore    []string // gitignore-syntax patterns
	Gitignore bool     // also honor Root/.gitignore
	Watch     bool     // keep watching after the initial scan
}

// Watcher produces the event stream for one root.
type Watcher struct {
	root   string
	watch  bool
	filter *Filter
	logger *slog.Logger

	fsw    *fsnotify.Watcher
	events chan Event
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New creates a Watcher. Nothing is read until Start.
func New(cfg Config, opts ...Option) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}
	filter, err := NewFilter(root, cfg.Include, cfg.Ignore, cfg.Gitignore)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:   root,
		watch:  cfg.Watch,
		filter: filter,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		events: make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Start begins the initial scan and returns the event stream. The stream is
// closed after OpReady when watching is disabled, and otherwise when ctx is
// cancelled. Start must be called once.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	if w.watch {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
		}
		w.fsw = fsw
	}
	go w.run(ctx)
	return w.events, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.events)
	if w.fsw != nil {
		defer func() {
			if err := w.fsw.Close(); err != nil {
				w.logger.Warn("closing watcher", "error", err)
			}
		}()
	}

	if err := w.scan(ctx, w.root); err != nil {
		return
	}
	if !w.send(ctx, Event{Op: OpReady}) {
		return
	}
	if w.fsw == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.handle(ctx, ev) {
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// scan walks dir, registering directories with fsnotify and emitting OpAdd
// for every matching file. It returns ctx.Err() if the walk was cut short.
func (w *Watcher) scan(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("scan", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if w.filter.SkipDir(path) {
				w.logger.Debug("skip dir", "path", path)
				return fs.SkipDir
			}
			w.register(path)
			return nil
		}
		if !w.filter.Match(path) {
			return nil
		}
		if !w.send(ctx, Event{Op: OpAdd, Path: path}) {
			return ctx.Err()
		}
		return nil
	})
}

func (w *Watcher) register(dir string) {
	if w.fsw == nil {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("failed to watch directory", "path", dir, "error", err)
		return
	}
	w.logger.Debug("watching", "path", dir)
}

// handle converts one fsnotify event. It returns false once ctx is done.
func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) bool {
	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil {
			// Gone again before we looked
			return true
		}
		if info.IsDir() {
			if !w.filter.SkipDir(ev.Name) {
				_ = w.scan(ctx, ev.Name)
			}
			return ctx.Err() == nil
		}
		if w.filter.Match(ev.Name) {
			return w.send(ctx, Event{Op: OpAdd, Path: ev.Name})
		}
	case ev.Has(fsnotify.Write):
		if w.filter.Match(ev.Name) {
			return w.send(ctx, Event{Op: OpChange, Path: ev.Name})
		}
	}
	return true
}

func (w *Watcher) send(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
