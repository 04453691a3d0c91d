package build

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/langdocs/internal/config"
	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/history"
	"git.home.luguber.info/inful/langdocs/internal/langs"
	"git.home.luguber.info/inful/langdocs/internal/logfields"
	"git.home.luguber.info/inful/langdocs/internal/manifest"
	"git.home.luguber.info/inful/langdocs/internal/markdown"
	"git.home.luguber.info/inful/langdocs/internal/metrics"
	"git.home.luguber.info/inful/langdocs/internal/notify"
	"git.home.luguber.info/inful/langdocs/internal/output"
	"git.home.luguber.info/inful/langdocs/internal/sections"
	"git.home.luguber.info/inful/langdocs/internal/tutorial"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
	"git.home.luguber.info/inful/langdocs/pkg/supportmatrix"
)

// SupportedFile is the support matrix artifact at the output root.
const SupportedFile = langdocs.SupportedFile

// Driver runs full builds and incremental rebuilds. Calls are serialized.
type Driver struct {
	cfg        *config.Config
	langsDir   string
	writer     *output.Writer
	aggregator *sections.Aggregator
	tutorials  *tutorial.Bundler

	recorder  metrics.Recorder
	history   *history.Store
	publisher notify.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cache  map[string]map[langs.Kind]*kindResult
	matrix *supportmatrix.Matrix
	last   *manifest.BuildManifest
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Driver) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithHistory records every run in store.
func WithHistory(store *history.Store) Option {
	return func(d *Driver) { d.history = store }
}

// WithPublisher announces every run that changed output.
func WithPublisher(p notify.Publisher) Option {
	return func(d *Driver) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithLogger sets the logger (slog.Default otherwise).
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a driver for cfg.
func New(cfg *config.Config, opts ...Option) *Driver {
	renderer := markdown.New(markdown.Options{
		HighlightStyle: cfg.Markdown.HighlightStyle,
		Permalinks:     cfg.Markdown.Permalinks,
		Minify:         cfg.Markdown.Minify,
	})
	d := &Driver{
		cfg:        cfg,
		langsDir:   cfg.Source.LangsDir,
		writer:     output.NewWriter(cfg.Output.Directory, cfg.Output.Pretty),
		aggregator: sections.NewAggregator(renderer, cfg.Markdown.SectionClass),
		tutorials:  tutorial.NewBundler(renderer),
		recorder:   metrics.NoopRecorder{},
		publisher:  notify.Noop{},
		logger:     slog.Default(),
		now:        time.Now,
		cache:      map[string]map[langs.Kind]*kindResult{},
		matrix:     supportmatrix.Empty(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Matrix returns the support matrix of the last successful run.
func (d *Driver) Matrix() *supportmatrix.Matrix {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.matrix
}

// Build runs a full build of every language.
func (d *Driver) Build(ctx context.Context) (*Report, error) {
	return d.BuildWithTrigger(ctx, TriggerBuild)
}

// BuildWithTrigger runs a full build and records trigger in the report.
func (d *Driver) BuildWithTrigger(ctx context.Context, trigger Trigger) (*Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	report := d.newReport(trigger)
	log := d.logger.With(logfields.BuildID(report.BuildID))
	log.InfoContext(ctx, "Build started", slog.String("trigger", string(trigger)), logfields.Path(d.langsDir))

	sources, warnings, err := langs.Discover(d.langsDir, d.cfg.Source.Languages)
	report.Warnings = append(report.Warnings, warnings...)
	if err != nil {
		return d.fail(ctx, report, fmt.Errorf("%w: %w", ErrDiscovery, err))
	}
	d.recorder.SetLanguages(len(sources))
	d.writer.Reset()

	results := make([]map[langs.Kind]*kindResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.cfg.Build.Concurrency, 1))
	for i, src := range sources {
		g.Go(func() error {
			byKind := map[langs.Kind]*kindResult{}
			for _, kind := range langs.Kinds {
				res, err := d.runStage(gctx, src, kind)
				if err != nil {
					return err
				}
				byKind[kind] = res
			}
			results[i] = byKind
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return d.fail(ctx, report, err)
	}

	cache := map[string]map[langs.Kind]*kindResult{}
	for i, src := range sources {
		cache[src.Lang] = results[i]
		for _, kind := range langs.Kinds {
			report.Warnings = append(report.Warnings, results[i][kind].warnings...)
		}
	}
	if err := d.commit(ctx, report, cache); err != nil {
		return d.fail(ctx, report, err)
	}

	if d.cfg.Output.Clean {
		removed, err := d.writer.Prune()
		if err != nil {
			return d.fail(ctx, report, err)
		}
		report.Removed = removed
		for _, rel := range removed {
			log.InfoContext(ctx, "Removed stale artifact", logfields.Path(rel))
		}
	}

	return d.succeed(ctx, report)
}

// Rebuild refreshes one kind of one language and regenerates the support
// matrix from the cached results of every other language. A language whose
// directory has disappeared is dropped from the matrix.
func (d *Driver) Rebuild(ctx context.Context, lang string, kind langs.Kind) (*Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	report := d.newReport(TriggerWatch)
	log := d.logger.With(logfields.BuildID(report.BuildID))
	log.InfoContext(ctx, "Rebuild started", logfields.Lang(lang), logfields.Kind(string(kind)))

	if !langs.Valid(lang) {
		return d.fail(ctx, report, lderrors.ValidationError("not a language tag").WithContext("lang", lang).Build())
	}
	if len(d.cfg.Source.Languages) > 0 && !slices.Contains(d.cfg.Source.Languages, lang) {
		log.DebugContext(ctx, "Ignoring change in unconfigured language", logfields.Lang(lang))
		return d.succeed(ctx, report)
	}

	cache := make(map[string]map[langs.Kind]*kindResult, len(d.cache))
	for l, byKind := range d.cache {
		cache[l] = byKind
	}
	src := langs.Source{Lang: lang, Root: filepath.Join(d.langsDir, lang)}
	d.writer.Reset()

	previous := d.cache[lang]
	gone := !exists(src.Root)
	kinds := []langs.Kind{kind}
	if previous == nil || gone {
		// first sight of this language, or every kind of it disappeared
		kinds = langs.Kinds
	}

	if gone {
		delete(cache, lang)
	} else {
		next := map[langs.Kind]*kindResult{}
		for k, v := range previous {
			next[k] = v
		}
		for _, k := range kinds {
			res, err := d.runStage(ctx, src, k)
			if err != nil {
				return d.fail(ctx, report, err)
			}
			report.Warnings = append(report.Warnings, res.warnings...)
			next[k] = res
		}
		cache[lang] = next
	}

	// artifacts the previous run of this kind wrote but this one did not
	for _, k := range kinds {
		old := previous[k]
		if old == nil {
			continue
		}
		var current map[string][]string
		if res := cache[lang][k]; res != nil {
			current = res.artifacts
		}
		for rel := range old.artifacts {
			if _, ok := current[rel]; ok {
				continue
			}
			if err := os.Remove(d.writer.Path(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
				report.Warnings = append(report.Warnings, lderrors.WrapError(err, lderrors.CategoryFileSystem, "cannot remove stale artifact").
					Warning().WithContext("path", rel).Build())
				continue
			}
			report.Removed = append(report.Removed, rel)
		}
	}
	sort.Strings(report.Removed)

	if err := d.commit(ctx, report, cache); err != nil {
		return d.fail(ctx, report, err)
	}
	return d.succeed(ctx, report)
}

func (d *Driver) runStage(ctx context.Context, src langs.Source, kind langs.Kind) (*kindResult, error) {
	stage := src.Lang + "/" + string(kind)
	start := time.Now()
	res, err := d.buildKind(ctx, src, kind)
	d.recorder.ObserveStageDuration(stage, time.Since(start))
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		d.recorder.IncStageResult(stage, metrics.ResultCanceled)
		return nil, err
	case err != nil:
		d.recorder.IncStageResult(stage, metrics.ResultFatal)
		return nil, err
	case len(res.warnings) > 0:
		d.recorder.IncStageResult(stage, metrics.ResultWarning)
	default:
		d.recorder.IncStageResult(stage, metrics.ResultSuccess)
	}
	d.logger.DebugContext(ctx, "Stage complete",
		logfields.Lang(src.Lang), logfields.Kind(string(kind)),
		logfields.Count(len(res.resources)), logfields.Since(start))
	return res, nil
}

// commit assembles the matrix and manifest from cache, writes both, and
// makes cache current. It runs on a single goroutine after the fan-out.
func (d *Driver) commit(ctx context.Context, report *Report, cache map[string]map[langs.Kind]*kindResult) error {
	langList := make([]string, 0, len(cache))
	for l := range cache {
		langList = append(langList, l)
	}
	sort.Strings(langList)

	builder := supportmatrix.NewBuilder()
	next := manifest.New(report.BuildID, report.StartTime)
	next.Inputs.Languages = langList
	next.Inputs.ConfigHash = d.configHash()
	report.Languages = langList
	report.Resources = map[string][]string{}

	for _, lang := range langList {
		for _, kind := range langs.Kinds {
			res := cache[lang][kind]
			if res == nil {
				continue
			}
			for _, resource := range res.resources {
				if err := builder.Add(resource, lang); err != nil {
					report.Warnings = append(report.Warnings, lderrors.WrapError(err, lderrors.CategoryBuild, "resource left out of support matrix").
						Warning().WithContext("lang", lang).WithContext("resource", resource).Build())
					continue
				}
				report.Resources[lang] = append(report.Resources[lang], resource)
			}
			for rel, fp := range res.sources {
				next.Inputs.Sources[rel] = fp
			}
			for artifact, srcs := range res.artifacts {
				next.Record(artifact, srcs)
			}
		}
	}

	matrix := builder.Matrix()
	if _, err := d.writer.WriteJSON(SupportedFile, matrix); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	next.Record(SupportedFile, nil)

	touched := d.writer.Touched()
	report.Artifacts = len(touched)
	report.Changed = d.writer.Changed()
	counts := map[output.Change]int{}
	for _, c := range touched {
		counts[c]++
	}
	for c, n := range counts {
		d.recorder.AddArtifacts(string(c), n)
	}

	prev := d.last
	if prev == nil {
		loaded, err := manifest.Load(d.manifestPath())
		if err != nil {
			report.Warnings = append(report.Warnings, err)
		}
		prev = loaded
	}
	report.Diff = manifest.Compare(prev, next)

	next.Status = string(BuildStatusSuccess)
	next.Warnings = len(report.Warnings)
	next.Duration = time.Since(report.StartTime).Milliseconds()
	if err := d.writeManifest(next); err != nil {
		return err
	}

	d.cache = cache
	d.matrix = matrix
	d.last = next
	return nil
}

func (d *Driver) manifestPath() string {
	return filepath.Join(d.cfg.State.Directory, manifest.FileName)
}

func (d *Driver) writeManifest(m *manifest.BuildManifest) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	return output.WriteFileAtomic(d.manifestPath(), append(data, '\n'))
}

func (d *Driver) configHash() string {
	data, err := yaml.Marshal(d.cfg)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func (d *Driver) newReport(trigger Trigger) *Report {
	return &Report{
		BuildID:   uuid.NewString(),
		Trigger:   trigger,
		StartTime: d.now(),
	}
}

func (d *Driver) succeed(ctx context.Context, report *Report) (*Report, error) {
	report.finish(BuildStatusSuccess)
	log := d.logger.With(logfields.BuildID(report.BuildID))
	for _, w := range report.Warnings {
		attrs := []any{}
		if ce, ok := lderrors.AsClassified(w); ok {
			for _, a := range ce.LogAttrs() {
				attrs = append(attrs, a)
			}
			log.WarnContext(ctx, ce.Message(), attrs...)
			continue
		}
		log.WarnContext(ctx, w.Error())
	}

	outcome := metrics.BuildOutcomeSuccess
	if len(report.Warnings) > 0 {
		outcome = metrics.BuildOutcomeWarning
	}
	d.recordWarnings(report)
	d.recorder.IncBuildOutcome(outcome)
	d.recorder.ObserveBuildDuration(report.Duration)
	d.record(ctx, report, nil)

	if len(report.Changed) > 0 || len(report.Removed) > 0 {
		event := notify.Event{
			BuildID:   report.BuildID,
			Trigger:   string(report.Trigger),
			Languages: report.Languages,
			Changed:   report.Changed,
			Removed:   report.Removed,
			Warnings:  len(report.Warnings),
			Timestamp: report.EndTime.UTC(),
		}
		if err := d.publisher.Publish(ctx, event); err != nil {
			log.WarnContext(ctx, "Failed to publish rebuild event", logfields.Error(err))
		}
	}

	log.InfoContext(ctx, "Build complete",
		logfields.Count(report.Artifacts),
		slog.Int("changed", len(report.Changed)),
		slog.Int("removed", len(report.Removed)),
		slog.Int("warnings", len(report.Warnings)),
		logfields.DurationMS(float64(report.Duration.Microseconds())/1000))
	return report, nil
}

func (d *Driver) fail(ctx context.Context, report *Report, err error) (*Report, error) {
	status := BuildStatusFailed
	outcome := metrics.BuildOutcomeFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = BuildStatusCancelled
		outcome = metrics.BuildOutcomeCanceled
	}
	report.finish(status)
	d.recordWarnings(report)
	d.recorder.IncBuildOutcome(outcome)
	d.recorder.ObserveBuildDuration(report.Duration)
	d.record(ctx, report, err)
	d.logger.ErrorContext(ctx, "Build failed", logfields.BuildID(report.BuildID), logfields.Error(err))
	return report, err
}

func (d *Driver) recordWarnings(report *Report) {
	byCategory := map[string]int{}
	for _, w := range report.Warnings {
		byCategory[string(lderrors.GetCategory(w))]++
	}
	for c, n := range byCategory {
		d.recorder.AddWarnings(c, n)
	}
}

func (d *Driver) record(ctx context.Context, report *Report, runErr error) {
	if d.history == nil {
		return
	}
	run := history.Run{
		ID:        report.BuildID,
		Trigger:   string(report.Trigger),
		Started:   report.StartTime,
		Finished:  report.EndTime,
		Status:    history.StatusSuccess,
		Languages: report.Languages,
		Artifacts: report.Artifacts,
		Changed:   len(report.Changed),
	}
	if run.Languages == nil {
		run.Languages = []string{}
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		run.Error = runErr.Error()
	}
	for _, w := range report.Warnings {
		run.Warnings = append(run.Warnings, history.WarningFromError(w))
	}
	// history must not fail the build
	if err := d.history.Record(context.WithoutCancel(ctx), run); err != nil {
		d.logger.WarnContext(ctx, "Failed to record build history", logfields.Error(err))
	}
}
