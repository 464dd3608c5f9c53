// Package watch reloads the dataset when its CSV files change.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/zalepa/nycdiscovery/dataset"
	"github.com/zalepa/nycdiscovery/metrics"
)

// DefaultDebounce groups the burst of events one file save produces.
const DefaultDebounce = 500 * time.Millisecond

// Loader builds a fresh snapshot.
type Loader func(ctx context.Context) (*dataset.Store, error)

// Watcher monitors the directories holding the dataset files and swaps
// a new snapshot into the holder after each change. A failed reload keeps
// the previous snapshot.
type Watcher struct {
	paths    dataset.Paths
	holder   *dataset.Holder
	load     Loader
	log      *zap.Logger
	metrics  *metrics.Metrics
	Debounce time.Duration

	// reloaded is signalled after every reload attempt; tests use it.
	reloaded chan error
}

func New(paths dataset.Paths, holder *dataset.Holder, load Loader, log *zap.Logger, m *metrics.Metrics) *Watcher {
	return &Watcher{
		paths:    paths,
		holder:   holder,
		load:     load,
		log:      log,
		metrics:  m,
		Debounce: DefaultDebounce,
	}
}

// Start begins watching. It returns once the watch is registered; events
// are handled until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for _, p := range w.files() {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}
	w.log.Info("watching dataset files", zap.Strings("files", w.files()))

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !w.relevant(evt) {
					continue
				}
				w.log.Debug("dataset file changed", zap.String("file", evt.Name), zap.String("op", evt.Op.String()))
				if timer == nil {
					timer = time.NewTimer(w.Debounce)
				} else {
					timer.Reset(w.Debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				w.reload(ctx)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (w *Watcher) reload(ctx context.Context) {
	start := time.Now()
	st, err := w.load(ctx)
	if w.metrics != nil {
		w.metrics.RecordLoad(time.Now(), err)
	}
	if err != nil {
		w.log.Error("reload failed, keeping previous snapshot", zap.Error(err))
	} else {
		w.holder.Swap(st)
		w.log.Info("dataset reloaded",
			zap.Int("years", st.Numeric().Len()),
			zap.Int("complaints", len(st.Complaints())),
			zap.Duration("took", time.Since(start)))
	}
	if w.reloaded != nil {
		w.reloaded <- err
	}
}

func (w *Watcher) files() []string {
	return []string{w.paths.Standardized, w.paths.Numeric, w.paths.Complaints}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(evt.Name)
	for _, p := range w.files() {
		if filepath.Clean(p) == name {
			return true
		}
	}
	return false
}
