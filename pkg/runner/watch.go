package runner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"digital.vasic.conformance/pkg/logging"
	"digital.vasic.conformance/pkg/ruleset"
)

// DefaultDebounce is how long the tree must stay quiet after a
// change before it is checked again.
const DefaultDebounce = 300 * time.Millisecond

// skippedDirs are never watched.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// ResultHandler receives the result of every run a Watcher
// triggers. err is non-nil when the run was aborted.
type ResultHandler func(res *Result, err error)

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher re-checks a tree whenever files under it change.
// Bursts of changes are collapsed into a single run.
type Watcher struct {
	mu          sync.Mutex
	runner      Runner
	root        string
	rs          *ruleset.RuleSet
	onResult    ResultHandler
	logger      logging.Logger
	watcher     *fsnotify.Watcher
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       WatcherStats
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a re-run.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDur = d
		}
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(l logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a Watcher for root. onResult is called
// from the watcher goroutine.
func NewWatcher(
	r Runner,
	root string,
	rs *ruleset.RuleSet,
	onResult ResultHandler,
	opts ...WatcherOption,
) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		runner:      r,
		root:        root,
		rs:          rs,
		onResult:    onResult,
		logger:      logging.NullLogger{},
		watcher:     fw,
		debounceMap: make(map[string]time.Time),
		debounceDur: DefaultDebounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds root and its subdirectories to the watch list,
// performs an initial run and starts the event loop. It does
// not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.logger.Info("watching for changes",
		logging.StringField("root", w.root),
		logging.LogField("debounce", w.debounceDur.String()),
	)

	w.check(ctx)
	go w.run(ctx)
	return nil
}

// Stop stops the event loop and releases the underlying
// watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("failed to close watcher",
			logging.ErrorField(err),
		)
	}
}

// Stats returns a copy of the watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Watch runs a Watcher until ctx is cancelled.
func Watch(
	ctx context.Context,
	r Runner,
	root string,
	rs *ruleset.RuleSet,
	onResult ResultHandler,
	opts ...WatcherOption,
) error {
	w, err := NewWatcher(r, root, rs, onResult, opts...)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.watcher.Close()
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.ErrorField(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			if w.settled() {
				w.check(ctx)
			}
		}
	}
}

func (w *Watcher) tick() time.Duration {
	d := w.debounceDur / 3
	if d > 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					logging.StringField("path", event.Name),
					logging.ErrorField(err),
				)
			}
		}
	}

	w.logger.Debug("change detected",
		logging.StringField("path", event.Name),
		logging.StringField("op", event.Op.String()),
	)

	now := time.Now()
	w.mu.Lock()
	w.debounceMap[event.Name] = now
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = now
	w.mu.Unlock()
}

// settled reports whether changes are pending and the last of
// them is older than the debounce window. Pending changes are
// cleared when it returns true.
func (w *Watcher) settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.debounceMap) == 0 {
		return false
	}
	now := time.Now()
	for _, t := range w.debounceMap {
		if now.Sub(t) < w.debounceDur {
			return false
		}
	}
	clear(w.debounceMap)
	return true
}

func (w *Watcher) check(ctx context.Context) {
	res, err := w.runner.Run(ctx, w.root, w.rs)
	w.mu.Lock()
	w.stats.Runs++
	w.mu.Unlock()
	if w.onResult != nil {
		w.onResult(res, err)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skippedDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}
