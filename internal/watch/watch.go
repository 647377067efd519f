// Package watch rebuilds a site when its inputs change. File system events
// are debounced, rebuilds run one at a time, and an optional interval adds
// periodic full rebuilds.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc performs one rebuild. reason describes what triggered it.
type RebuildFunc func(ctx context.Context, reason string) error

// Watcher drives rebuilds from file system events and a schedule.
type Watcher struct {
	paths    []string
	ignored  []string
	debounce time.Duration
	interval time.Duration
	rebuild  RebuildFunc
	logger   *slog.Logger

	requests chan string

	mu    sync.Mutex
	timer *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Zero or less selects DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithRebuildInterval schedules a full rebuild every d. Zero disables it.
func WithRebuildInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithIgnored excludes directories from watching, typically the output
// directory when it lives inside the input.
func WithIgnored(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if abs, err := filepath.Abs(d); err == nil {
				w.ignored = append(w.ignored, abs)
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New creates a watcher over paths. Directories are watched recursively.
func New(paths []string, rebuild RebuildFunc, opts ...Option) *Watcher {
	w := &Watcher{
		paths:    paths,
		rebuild:  rebuild,
		logger:   slog.Default(),
		requests: make(chan string, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	return w
}

// Trigger requests a rebuild after the debounce period. Repeated calls within
// the period collapse into one rebuild.
func (w *Watcher) Trigger(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.request(reason) })
}

// request queues a rebuild. At most one rebuild waits while another runs.
func (w *Watcher) request(reason string) {
	select {
	case w.requests <- reason:
	default:
	}
}

// Run watches until ctx is cancelled. Rebuild errors are logged and do not
// stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	for _, p := range w.paths {
		if err := w.addRecursive(fsw, p); err != nil {
			return err
		}
	}

	if w.interval > 0 {
		sched, err := w.schedule()
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				w.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	workCtx, stopWork := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(workCtx)
	}()
	defer func() {
		stopWork()
		wg.Wait()
	}()

	w.logger.Info("Watching for changes",
		slog.Any("paths", w.paths),
		slog.Duration("debounce", w.debounce),
		slog.Duration("rebuild_interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) schedule() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.request, "schedule"),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	return sched, nil
}

// work runs queued rebuilds one at a time.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-w.requests:
			w.logger.Info("Rebuilding", slog.String("reason", reason))
			if err := w.rebuild(ctx, reason); err != nil {
				w.logger.Warn("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if w.isIgnored(ev.Name) || shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addRecursive(fsw, ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.Trigger(filepath.Base(ev.Name))
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); err != nil {
		w.logger.Warn("Watch path unavailable", logfields.Path(root), logfields.Error(err))
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if w.isIgnored(path) || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) isIgnored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignored {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldIgnoreEvent reports editor temporaries and hidden files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
