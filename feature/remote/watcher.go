package remote

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"diary-sync/core/utils"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc is called once a date's file has settled.
type ChangeFunc func(ctx context.Context, date time.Time)

// Watcher reports changed date files of a directory. Bursts of writes to
// one file are coalesced: onChange runs once the file has been quiet for
// the debounce interval. Callbacks run one at a time.
type Watcher struct {
	dir      string
	ext      string
	debounce time.Duration
	onChange ChangeFunc
	logger   *zap.Logger

	timers map[time.Time]*time.Timer
	fire   chan time.Time
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir, ext string, debounce time.Duration, logger *zap.Logger, onChange ChangeFunc) *Watcher {
	if ext == "" {
		ext = ".txt"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		ext:      ext,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		timers:   make(map[time.Time]*time.Timer),
		fire:     make(chan time.Time, 16),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("Watching remote directory", zap.String("dir", w.dir))

	defer func() {
		for _, t := range w.timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if d, ok := utils.DateFromFilename(filepath.Base(event.Name), w.ext); ok {
				w.schedule(ctx, d)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case d := <-w.fire:
			delete(w.timers, d)
			w.onChange(ctx, d)
		}
	}
}

// schedule (re)starts the quiet period for d. Only Run's goroutine calls it.
func (w *Watcher) schedule(ctx context.Context, d time.Time) {
	if t, ok := w.timers[d]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[d] = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- d:
		case <-ctx.Done():
		}
	})
}
