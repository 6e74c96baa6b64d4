package corpus

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Reloader is the part of Store the watcher drives
type Reloader interface {
	Reload(ctx context.Context) (*LoadReport, error)
}

// Watcher reloads the corpus when its source file changes. The parent
// directory is watched so that editors which replace the file by rename
// are picked up too.
type Watcher struct {
	path     string
	debounce time.Duration
	reloader Reloader
	watcher  *fsnotify.Watcher
	logger   *zap.Logger

	pending atomic.Bool
	reloads atomic.Int64
}

// NewWatcher creates a watcher for path
func NewWatcher(path string, debounce time.Duration, reloader Reloader, logger *zap.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errors.NewValidationError("INVALID_PATH", "watch path cannot be empty")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewInternalError("cannot resolve watch path").WithCause(err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewInternalError("cannot create file watcher").WithCause(err)
	}

	return &Watcher{
		path:     abs,
		debounce: debounce,
		reloader: reloader,
		watcher:  fsw,
		logger:   logger,
	}, nil
}

// Start watches until ctx is done. It returns once the watch is installed.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.watcher.Close()
		return errors.NewInternalError("cannot watch corpus directory").WithCause(err)
	}

	go w.run(ctx)

	w.logger.Info("corpus watcher started",
		zap.String("path", w.path),
		zap.Duration("debounce", w.debounce))
	return nil
}

// Stop closes the underlying watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Reloads returns how many reloads the watcher has triggered
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	var lastEvent time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.pending.Store(true)
				lastEvent = time.Now()
				w.logger.Debug("corpus change detected",
					zap.String("path", event.Name),
					zap.String("op", event.Op.String()))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("corpus watcher error", zap.Error(err))

		case <-ticker.C:
			if !w.pending.Load() || time.Since(lastEvent) < w.debounce {
				continue
			}
			w.pending.Store(false)
			w.reloads.Add(1)
			if _, err := w.reloader.Reload(ctx); err != nil {
				w.logger.Warn("corpus reload after change failed", zap.Error(err))
			}
		}
	}
}
