package build

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/langdocs/internal/config"
	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/history"
	"git.home.luguber.info/inful/langdocs/internal/langs"
	"git.home.luguber.info/inful/langdocs/internal/manifest"
	"git.home.luguber.info/inful/langdocs/internal/notify"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
	"git.home.luguber.info/inful/langdocs/pkg/supportmatrix"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

var fixture = map[string]string{
	"en/api/01-intro.md":                   "---\nsort: 2\n---\n# Intro\n\nIntro text\n",
	"en/api/02-usage.md":                   "---\nsort: 1\n---\n# Usage\n\n## Install\n",
	"en/guides/setup.md":                   "---\ntitle: Setup\ndescription: Get going\nsort: 1\n---\n# Setup\n",
	"en/guides/advanced/a.md":              "---\ntitle: Advanced\nsort: 0\n---\n# Part A\n",
	"en/guides/advanced/b.md":              "---\nsort: 1\n---\n# Part B\n",
	"en/guides/notitle.md":                 "# No title\n",
	"en/tutorials/intro/lesson.md":         "# Welcome\n",
	"en/tutorials/intro/lesson.json":       `{"files": []}`,
	"en/tutorials/directory.json":          `[{"lessonName":"Intro","internalName":"intro"}]`,
	"en/examples/$descriptor.json":         `["counter"]`,
	"en/examples/counter/$descriptor.json": `{"name":"Counter","description":"Counts","files":["index.jsx"]}`,
	"en/examples/counter/index.jsx":        "export default 1\n",
	"fr/api/intro.md":                      "# Introduction\n",
}

type env struct {
	cfg      *config.Config
	langsDir string
	outDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	langsDir := filepath.Join(root, "langs")
	writeFiles(t, langsDir, fixture)
	require.NoError(t, os.MkdirAll(filepath.Join(langsDir, "fr", "tutorials"), 0o755))

	cfg := config.Default()
	cfg.Source.LangsDir = langsDir
	cfg.Output.Directory = filepath.Join(root, "out")
	cfg.State.Directory = filepath.Join(root, "state")
	cfg.Build.Concurrency = 2
	return env{cfg: cfg, langsDir: langsDir, outDir: cfg.Output.Directory}
}

func (e env) readMatrix(t *testing.T) *supportmatrix.Matrix {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.outDir, SupportedFile))
	require.NoError(t, err)
	m, err := supportmatrix.Parse(data)
	require.NoError(t, err)
	return m
}

func (e env) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.WalkDir(e.outDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(e.outDir, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return out
}

func TestBuild_WritesArtifactsAndMatrix(t *testing.T) {
	e := newEnv(t)
	report, err := New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, report.Status)
	assert.Equal(t, []string{"en", "fr"}, report.Languages)
	assert.NotEmpty(t, report.BuildID)

	files := e.snapshot(t)
	for _, rel := range []string{
		"supported.json",
		"docs/en/api.json",
		"docs/en/guides/setup.json",
		"docs/en/guides/advanced.json",
		"docs/en/guides/notitle.json",
		"docs/en/guides/_metadata.json",
		"docs/fr/api.json",
		"tutorials/en/intro.json",
		"tutorials/en/directory.json",
		"examples/en/counter.json",
		"examples/en/directory.json",
	} {
		assert.Contains(t, files, rel)
	}
	assert.Len(t, report.Changed, len(files))

	m := e.readMatrix(t)
	assert.True(t, m.Supports("api", "en"))
	assert.True(t, m.Supports("api", "fr"))
	assert.True(t, m.Supports("tutorials/intro", "en"))
	assert.False(t, m.Supports("tutorials/intro", "fr"))
	assert.True(t, m.Supports("guides/advanced", "en"))
	assert.True(t, m.Supports("examples/counter", "en"))
	assert.Equal(t, []string{"en", "fr"}, m.Lookup("api").Unwrap().Languages())

	var api langdocs.DocFile
	require.NoError(t, json.Unmarshal([]byte(files["docs/en/api.json"]), &api))
	assert.Equal(t, langdocs.DocFormatTOC, api.Format)
	assert.Less(t, strings.Index(api.HTML, "Usage"), strings.Index(api.HTML, "Intro text"))
	require.Len(t, api.Sections, 2)
	assert.Equal(t, "Usage", api.Sections[0].Title)
	assert.Equal(t, "install", api.Sections[0].Children[0].Slug)

	var meta map[string]langdocs.ResourceMetadata
	require.NoError(t, json.Unmarshal([]byte(files["docs/en/guides/_metadata.json"]), &meta))
	dir := langdocs.GuideDirectory(meta)
	require.Len(t, dir, 2)
	assert.Equal(t, "guides/advanced", dir[0].Resource)
	assert.Equal(t, "guides/setup", dir[1].Resource)

	var lesson langdocs.LessonFile
	require.NoError(t, json.Unmarshal([]byte(files["tutorials/en/intro.json"]), &lesson))
	assert.JSONEq(t, `{"files":[]}`, string(lesson.Lesson))
	assert.Contains(t, lesson.Markdown, "Welcome")

	m2, err := manifest.Load(filepath.Join(e.cfg.State.Directory, manifest.FileName))
	require.NoError(t, err)
	require.NotNil(t, m2)
	assert.Equal(t, report.BuildID, m2.ID)
	assert.Contains(t, m2.Outputs.Artifacts["docs/en/api.json"], "en/api/01-intro.md")
	assert.Len(t, report.Diff.AddedSources, len(m2.Inputs.Sources))
}

func TestBuild_IsDeterministic(t *testing.T) {
	e := newEnv(t)
	_, err := New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	first := e.snapshot(t)

	report, err := New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	assert.Empty(t, report.Changed)
	assert.True(t, report.Diff.Empty())
	assert.Equal(t, first, e.snapshot(t))
}

func TestBuild_ConcurrencyBelowOneIsSequential(t *testing.T) {
	e := newEnv(t)
	e.cfg.Build.Concurrency = 0
	report, err := New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, report.Status)
}

func TestRebuild_AddsTutorialLanguage(t *testing.T) {
	e := newEnv(t)
	d := New(e.cfg)
	_, err := d.Build(t.Context())
	require.NoError(t, err)
	assert.False(t, e.readMatrix(t).Supports("tutorials/intro", "fr"))

	writeFiles(t, e.langsDir, map[string]string{"fr/tutorials/intro/lesson.md": "# Bienvenue\n"})
	report, err := d.Rebuild(t.Context(), "fr", langs.KindTutorials)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"supported.json", "tutorials/fr/intro.json"}, report.Changed)

	m := e.readMatrix(t)
	assert.True(t, m.Supports("tutorials/intro", "fr"))
	assert.True(t, m.Supports("api", "en"), "other languages come from the cache")
	assert.Equal(t, []string{"en", "fr"}, m.Lookup("tutorials/intro").Unwrap().Languages())
	assert.True(t, d.Matrix().Supports("tutorials/intro", "fr"))
}

func TestRebuild_RemovesStaleArtifacts(t *testing.T) {
	e := newEnv(t)
	d := New(e.cfg)
	_, err := d.Build(t.Context())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(e.langsDir, "en", "guides", "setup.md")))
	report, err := d.Rebuild(t.Context(), "en", langs.KindDocs)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/en/guides/setup.json"}, report.Removed)
	assert.NoFileExists(t, filepath.Join(e.outDir, "docs", "en", "guides", "setup.json"))
	assert.False(t, e.readMatrix(t).Supports("guides/setup", "en"))
	assert.Equal(t, []string{"en/guides/setup.md"}, report.Diff.RemovedSources)
}

func TestRebuild_DeletedLanguageRemovesEveryKind(t *testing.T) {
	e := newEnv(t)
	d := New(e.cfg)
	_, err := d.Build(t.Context())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(e.langsDir, "en")))
	report, err := d.Rebuild(t.Context(), "en", langs.KindDocs)
	require.NoError(t, err)

	for _, rel := range []string{
		"docs/en/api.json",
		"docs/en/guides/setup.json",
		"tutorials/en/intro.json",
		"tutorials/en/directory.json",
		"examples/en/counter.json",
		"examples/en/directory.json",
	} {
		assert.Contains(t, report.Removed, rel)
		assert.NoFileExists(t, filepath.Join(e.outDir, filepath.FromSlash(rel)))
	}
	assert.FileExists(t, filepath.Join(e.outDir, "docs", "fr", "api.json"))

	m := e.readMatrix(t)
	assert.Equal(t, []string{"fr"}, m.Languages())
	assert.False(t, m.Supports("examples/counter", "en"))
	assert.Equal(t, []string{"fr"}, report.Languages)
}

func TestRebuild_RejectsInvalidLanguage(t *testing.T) {
	e := newEnv(t)
	report, err := New(e.cfg).Rebuild(t.Context(), "not a tag!", langs.KindDocs)
	require.Error(t, err)
	assert.Equal(t, BuildStatusFailed, report.Status)
	assert.Equal(t, lderrors.CategoryValidation, lderrors.GetCategory(err))
}

func TestBuild_CleanPrunesUnknownArtifacts(t *testing.T) {
	e := newEnv(t)
	writeFiles(t, e.outDir, map[string]string{"docs/de/api.json": "{}", "keep.txt": "x"})

	e.cfg.Output.Clean = false
	report, err := New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	assert.FileExists(t, filepath.Join(e.outDir, "docs", "de", "api.json"))

	e.cfg.Output.Clean = true
	report, err = New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/de/api.json"}, report.Removed)
	assert.NoFileExists(t, filepath.Join(e.outDir, "docs", "de", "api.json"))
	assert.FileExists(t, filepath.Join(e.outDir, "keep.txt"))
	assert.FileExists(t, filepath.Join(e.outDir, "docs", "en", "api.json"))
}

func TestBuild_WarningsDoNotFail(t *testing.T) {
	e := newEnv(t)
	writeFiles(t, e.langsDir, map[string]string{
		"en/examples/broken/$descriptor.json": `{oops`,
		"en/api/03-bad.md":                    "---\ntitle: [unclosed\n---\nbody\n",
	})
	report, err := New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, report.Status)
	require.Len(t, report.Warnings, 2)
	for _, w := range report.Warnings {
		assert.Equal(t, lderrors.SeverityWarning, lderrors.GetSeverity(w))
	}
	assert.True(t, e.readMatrix(t).Supports("examples/counter", "en"))
}

func TestBuild_NonFiniteSortIsAWarning(t *testing.T) {
	e := newEnv(t)
	writeFiles(t, e.langsDir, map[string]string{
		"en/guides/bad.md": "---\ntitle: Bad\nsort: .nan\n---\n# Bad\n",
	})
	report, err := New(e.cfg).Build(t.Context())
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, lderrors.SeverityWarning, lderrors.GetSeverity(report.Warnings[0]))

	m := e.readMatrix(t)
	assert.True(t, m.Supports("guides/setup", "en"))
	assert.False(t, m.Supports("guides/bad", "en"))
	assert.NoFileExists(t, filepath.Join(e.outDir, "docs", "en", "guides", "bad.json"))
}

func TestBuild_MissingLangsDirFails(t *testing.T) {
	e := newEnv(t)
	e.cfg.Source.LangsDir = filepath.Join(t.TempDir(), "missing")
	report, err := New(e.cfg).Build(t.Context())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscovery))
	assert.True(t, lderrors.IsFatal(err))
	assert.Equal(t, BuildStatusFailed, report.Status)
}

func TestBuild_CancelledContext(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	report, err := New(e.cfg).Build(ctx)
	require.Error(t, err)
	assert.Equal(t, BuildStatusCancelled, report.Status)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *capturePublisher) Publish(_ context.Context, e notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestBuild_RecordsHistoryAndNotifies(t *testing.T) {
	e := newEnv(t)
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pub := &capturePublisher{}

	d := New(e.cfg, WithHistory(store), WithPublisher(pub))
	first, err := d.Build(t.Context())
	require.NoError(t, err)
	_, err = d.Build(t.Context())
	require.NoError(t, err)

	runs, err := store.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"en", "fr"}, runs[0].Languages)

	require.Len(t, pub.events, 1, "unchanged rebuilds are not announced")
	assert.Equal(t, first.BuildID, pub.events[0].BuildID)
	assert.Contains(t, pub.events[0].Changed, "supported.json")
}
