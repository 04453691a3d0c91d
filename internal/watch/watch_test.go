package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/langdocs/internal/build"
	"git.home.luguber.info/inful/langdocs/internal/langs"
)

type call struct {
	trigger build.Trigger
	lang    string
	kind    langs.Kind
}

type fakeBuilder struct {
	mu    sync.Mutex
	calls []call
	block chan struct{}
}

func (f *fakeBuilder) BuildWithTrigger(_ context.Context, trigger build.Trigger) (*build.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{trigger: trigger})
	f.mu.Unlock()
	return &build.Report{Trigger: trigger, Status: build.BuildStatusSuccess}, nil
}

func (f *fakeBuilder) Rebuild(_ context.Context, lang string, kind langs.Kind) (*build.Report, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{trigger: build.TriggerWatch, lang: lang, kind: kind})
	f.mu.Unlock()
	return &build.Report{Trigger: build.TriggerWatch, Status: build.BuildStatusSuccess}, nil
}

func (f *fakeBuilder) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestHandle_ClassifiesPaths(t *testing.T) {
	root := t.TempDir()
	w := New(root, &fakeBuilder{}, Options{Debounce: time.Hour})
	t.Cleanup(w.stopTimer)

	assert.True(t, w.Handle(filepath.Join(root, "en", "api.md")))
	assert.True(t, w.Handle(filepath.Join(root, "en", "guides", "intro.md")))
	assert.True(t, w.Handle(filepath.Join(root, "fr", "tutorials", "basics", "lesson.md")))
	assert.True(t, w.Handle(filepath.Join(root, "en", "examples", "hello", "index.js")))

	assert.False(t, w.Handle(filepath.Join(root, "en", "guides", ".intro.md.swp")))
	assert.False(t, w.Handle(filepath.Join(root, "en", "api.md~")))
	assert.False(t, w.Handle(filepath.Join(root, "README.md")))
	assert.False(t, w.Handle(filepath.Join(filepath.Dir(root), "elsewhere", "api.md")))
	assert.False(t, w.Handle(root))

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Equal(t, map[target]struct{}{
		{lang: "en", kind: langs.KindDocs}:      {},
		{lang: "fr", kind: langs.KindTutorials}: {},
		{lang: "en", kind: langs.KindExamples}:  {},
	}, w.pending)
}

func TestShouldIgnoreEvent(t *testing.T) {
	ignored := []string{".DS_Store", "a.md~", "a.swp", "a.swx", "#a.md#", ".#a.md", "Thumbs.db"}
	for _, name := range ignored {
		assert.True(t, shouldIgnoreEvent(filepath.Join("x", name)), name)
	}
	assert.False(t, shouldIgnoreEvent(filepath.Join("x", "api.md")))
}

func TestProcess_CoalescesAndSortsTargets(t *testing.T) {
	root := t.TempDir()
	fb := &fakeBuilder{}
	w := New(root, fb, Options{Debounce: time.Hour})
	t.Cleanup(w.stopTimer)

	w.Handle(filepath.Join(root, "fr", "api.md"))
	w.Handle(filepath.Join(root, "en", "examples", "a", "x.js"))
	w.Handle(filepath.Join(root, "en", "api.md"))
	w.Handle(filepath.Join(root, "en", "guides", "g.md"))

	w.process(context.Background())

	assert.Equal(t, []call{
		{trigger: build.TriggerWatch, lang: "en", kind: langs.KindDocs},
		{trigger: build.TriggerWatch, lang: "en", kind: langs.KindExamples},
		{trigger: build.TriggerWatch, lang: "fr", kind: langs.KindDocs},
	}, fb.snapshot())

	w.process(context.Background())
	assert.Len(t, fb.snapshot(), 3, "pending set is drained")
}

func TestProcess_FullRebuildTakesPrecedence(t *testing.T) {
	root := t.TempDir()
	fb := &fakeBuilder{}
	w := New(root, fb, Options{Debounce: time.Hour})
	t.Cleanup(w.stopTimer)

	w.Handle(filepath.Join(root, "en", "api.md"))
	w.RequestFull()
	w.process(context.Background())

	assert.Equal(t, []call{{trigger: build.TriggerSchedule}}, fb.snapshot())
}

func TestDebounce_SignalsOnceAfterQuietPeriod(t *testing.T) {
	root := t.TempDir()
	w := New(root, &fakeBuilder{}, Options{Debounce: 20 * time.Millisecond})
	t.Cleanup(w.stopTimer)

	for range 5 {
		w.Handle(filepath.Join(root, "en", "api.md"))
	}
	select {
	case <-w.requests:
	case <-time.After(2 * time.Second):
		t.Fatal("debounce timer never fired")
	}
	select {
	case <-w.requests:
		t.Fatal("expected a single signal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSignal_KeepsOnePendingRequest(t *testing.T) {
	w := New(t.TempDir(), &fakeBuilder{}, Options{})
	w.signal()
	w.signal()
	w.signal()
	assert.Len(t, w.requests, 1)
}

func TestRun_InitialBuildAndRebuildOnChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "en", "guides"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "en", "api.md"), []byte("# API\n"), 0o644))

	fb := &fakeBuilder{}
	reports := make(chan *build.Report, 16)
	w := New(root, fb, Options{
		Debounce: 10 * time.Millisecond,
		OnReport: func(r *build.Report, _ error) {
			select {
			case reports <- r:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case r := <-reports:
		assert.Equal(t, build.TriggerWatch, r.Trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("initial build did not run")
	}

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(root, "en", "guides", "intro.md"), []byte("# Intro\n"), 0o644)
		for _, c := range fb.snapshot() {
			if c.lang == "en" && c.kind == langs.KindDocs {
				return true
			}
		}
		return false
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_MissingRootFails(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), &fakeBuilder{}, Options{})
	err := w.Run(context.Background())
	require.Error(t, err)
}

func TestRun_ScheduledFullRebuild(t *testing.T) {
	root := t.TempDir()
	fb := &fakeBuilder{}
	w := New(root, fb, Options{Debounce: time.Millisecond, FullRebuildInterval: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, c := range fb.snapshot() {
			if c.trigger == build.TriggerSchedule {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
