// Package watch reruns a comparison while either tree is being edited.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultDelay is how long the trees must be quiet before a rerun.
const DefaultDelay = 200 * time.Millisecond

type Watcher struct {
	roots   []string
	delay   time.Duration
	logger  *zap.Logger
	fsWatch *fsnotify.Watcher
}

type Option func(*Watcher)

func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New watches every directory under roots. Roots must exist.
func New(roots []string, opts ...Option) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("watch: at least one root is required")
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		roots:   roots,
		delay:   DefaultDelay,
		logger:  zap.NewNop(),
		fsWatch: fsWatch,
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			return nil, multierr.Append(err, fsWatch.Close())
		}
	}
	return w, nil
}

// addTree registers dir and all its subdirectories, skipping .git.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" && path != dir {
			return filepath.SkipDir
		}
		if err := w.fsWatch.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run calls fn once, then again after each burst of changes, until ctx is
// done. Calls never overlap.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) (err error) {
	defer func() {
		err = multierr.Append(err, w.fsWatch.Close())
	}()

	w.logger.Info("watching for changes",
		zap.Strings("roots", w.roots),
		zap.Duration("delay", w.delay))
	fn(ctx)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatch.Events:
			if !ok {
				return nil
			}
			if !w.handle(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case err, ok := <-w.fsWatch.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", zap.Error(err))

		case <-fire:
			fire = nil
			w.logger.Debug("change detected, rerunning")
			fn(ctx)
		}
	}
}

// handle reports whether event should trigger a rerun, registering new
// directories as they appear.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if isGitPath(event.Name) {
		return false
	}

	w.logger.Debug("file event",
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()))

	if event.Op.Has(fsnotify.Create) {
		if isDir, err := statDir(event.Name); err == nil && isDir {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("could not watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}
	return true
}
