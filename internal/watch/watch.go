// Package watch rebuilds the affected part of the output whenever a source
// file under the langs directory changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/langdocs/internal/build"
	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/langs"
	"git.home.luguber.info/inful/langdocs/internal/logfields"
)

// Builder is the part of build.Driver the watcher drives.
type Builder interface {
	BuildWithTrigger(ctx context.Context, trigger build.Trigger) (*build.Report, error)
	Rebuild(ctx context.Context, lang string, kind langs.Kind) (*build.Report, error)
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last event before rebuilding.
	Debounce time.Duration
	// FullRebuildInterval schedules periodic full rebuilds; 0 disables them.
	FullRebuildInterval time.Duration
	// OnReport is called after every finished build or rebuild.
	OnReport func(*build.Report, error)
}

type target struct {
	lang string
	kind langs.Kind
}

// Watcher maps filesystem events onto (language, kind) rebuilds. Events are
// debounced and rebuilds never overlap.
type Watcher struct {
	root    string
	builder Builder
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[target]struct{}
	full    bool
	timer   *time.Timer

	requests chan struct{}
}

// New returns a watcher for the langs directory root.
func New(root string, builder Builder, opts Options) *Watcher {
	return &Watcher{
		root:     root,
		builder:  builder,
		opts:     opts,
		logger:   slog.Default(),
		pending:  map[target]struct{}{},
		requests: make(chan struct{}, 1),
	}
}

// Run performs an initial full build, then watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	report, err := w.builder.BuildWithTrigger(ctx, build.TriggerWatch)
	w.reportDone(report, err)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return lderrors.WrapError(err, lderrors.CategoryRuntime, "fsnotify").Build()
	}
	defer func() { _ = fw.Close() }()
	if err := addDirsRecursive(fw, w.root, w.logger); err != nil {
		return err
	}

	if w.opts.FullRebuildInterval > 0 {
		scheduler, err := w.schedule()
		if err != nil {
			return err
		}
		defer func() { _ = scheduler.Shutdown() }()
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.worker(ctx)
	}()

	w.logger.Info("Watching for changes", logfields.Path(w.root))
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			<-workerDone
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addDirsRecursive(fw, ev.Name, w.logger)
				}
			}
			w.Handle(ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

// schedule starts a gocron job that requests a full rebuild every
// FullRebuildInterval.
func (w *Watcher) schedule() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.FullRebuildInterval),
		gocron.NewTask(w.RequestFull),
		gocron.WithName("full-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic build job: %w", err)
	}
	s.Start()
	w.logger.Info("Scheduled periodic full rebuild", slog.Duration("interval", w.opts.FullRebuildInterval))
	return s, nil
}

// Handle records a change to path and arms the debounce timer. Paths outside
// the root, hidden or editor temp files and paths that do not belong to a
// language directory are ignored.
func (w *Watcher) Handle(path string) bool {
	if shouldIgnoreEvent(path) {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	lang, kind, ok := langs.Classify(rel)
	if !ok || !langs.Valid(lang) {
		return false
	}
	w.logger.Debug("File change detected", logfields.Path(path), logfields.Lang(lang), logfields.Kind(string(kind)))

	w.mu.Lock()
	w.pending[target{lang: lang, kind: kind}] = struct{}{}
	w.mu.Unlock()
	w.arm()
	return true
}

// RequestFull queues a full rebuild.
func (w *Watcher) RequestFull() {
	w.mu.Lock()
	w.full = true
	w.mu.Unlock()
	w.signal()
}

func (w *Watcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.signal)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// signal wakes the worker; a signal sent while a rebuild runs is kept so the
// worker runs once more afterwards.
func (w *Watcher) signal() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			w.process(ctx)
		}
	}
}

// process runs everything queued so far: a full rebuild when one was
// requested, otherwise one rebuild per pending (language, kind) in sorted
// order.
func (w *Watcher) process(ctx context.Context) {
	w.mu.Lock()
	full := w.full
	pending := w.pending
	w.full = false
	w.pending = map[target]struct{}{}
	w.mu.Unlock()

	if full {
		report, err := w.builder.BuildWithTrigger(ctx, build.TriggerSchedule)
		w.reportDone(report, err)
		return
	}

	targets := make([]target, 0, len(pending))
	for t := range pending {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].lang != targets[j].lang {
			return targets[i].lang < targets[j].lang
		}
		return targets[i].kind < targets[j].kind
	})
	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		w.logger.Info("Rebuilding", logfields.Lang(t.lang), logfields.Kind(string(t.kind)))
		report, err := w.builder.Rebuild(ctx, t.lang, t.kind)
		w.reportDone(report, err)
	}
}

func (w *Watcher) reportDone(report *build.Report, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("rebuild failed", logfields.Error(err))
	}
	if w.opts.OnReport != nil {
		w.opts.OnReport(report, err)
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return lderrors.FileSystemError("langs directory not found").WithContext("path", root).Build()
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
