package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/langdocs/internal/history"
	"git.home.luguber.info/inful/langdocs/internal/metrics"
	"git.home.luguber.info/inful/langdocs/pkg/foundation"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

func outputFS() fstest.MapFS {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }
	return fstest.MapFS{
		"supported.json":                file(`{"api":["en"],"guides":{"intro":["en"]},"tutorials":{"basics":["en"]},"examples":{"hello":["en"],"broken":["en"]}}`),
		"docs/en/api.json":              file(`{"toc":[],"default":"<h1>API</h1>"}`),
		"docs/en/guides/intro.json":     file(`{"toc":[],"default":"<p>intro</p>"}`),
		"docs/en/guides/_metadata.json": file(`{"intro":{"resource":"guides/intro","title":"Intro","description":"","sort":0}}`),
		"tutorials/en/basics.json":      file(`{"markdown":"<p>hi</p>"}`),
		"tutorials/en/directory.json":   file(`[{"lessonName":"Basics","internalName":"basics"}]`),
		"examples/en/hello.json":        file(`{"id":"hello","name":"Hello","description":"","files":[]}`),
		"examples/en/directory.json":    file(`[{"id":"hello","name":"Hello","description":""}]`),
		"examples/en/broken.json":       file(`{`),
	}
}

type fakeRuns struct {
	runs []history.Run
	err  error
}

func (f *fakeRuns) Recent(_ context.Context, limit int) ([]history.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeRuns) Get(_ context.Context, id string) (foundation.Option[history.Run], error) {
	for _, r := range f.runs {
		if r.ID == id {
			return foundation.Some(r), nil
		}
	}
	return foundation.None[history.Run](), nil
}

func newTestServer(opts ...Option) *Server {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}, opts...)
	return NewServer(":0", langdocs.NewResolver(outputFS()), opts...)
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHealthEndpoint(t *testing.T) {
	w, _ := get(t, newTestServer(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"healthy"}`, w.Body.String())
}

func TestSupportedAndLanguages(t *testing.T) {
	srv := newTestServer()

	w, resp := get(t, srv, "/supported")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"success":true,"data":{"api":["en"],"examples":{"hello":["en"],"broken":["en"]},"guides":{"intro":["en"]},"tutorials":{"basics":["en"]}}}`, w.Body.String())

	w, resp = get(t, srv, "/languages")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"en"}, resp.Data)
}

func TestResolveEndpoint(t *testing.T) {
	srv := newTestServer()

	w, _ := get(t, srv, "/resolve?path=guides&lang=en")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"kind":"category","supported":true,"keys":["intro"]}}`, w.Body.String())

	w, _ = get(t, srv, "/resolve?path=guides/intro&lang=fr")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"kind":"resource","supported":false}}`, w.Body.String())

	w, resp := get(t, srv, "/resolve?path=api")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestResourceEndpoints(t *testing.T) {
	srv := newTestServer()

	for _, path := range []string{
		"/docs/en/api",
		"/docs/en/guides",
		"/docs/en/guides/intro",
		"/guides/en",
		"/tutorials/en",
		"/tutorials/en/basics",
		"/examples/en",
		"/examples/en/hello",
	} {
		w, resp := get(t, srv, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.True(t, resp.Success, path)
		assert.NotNil(t, resp.Data, path)
	}

	w, _ := get(t, srv, "/docs/en/guides/intro")
	assert.JSONEq(t, `{"success":true,"data":{"toc":[],"default":"<p>intro</p>"}}`, w.Body.String())
}

func TestResourceEndpoints_NotFound(t *testing.T) {
	srv := newTestServer()

	for _, path := range []string{
		"/docs/fr/api",
		"/docs/en/guides/missing",
		"/docs/en/guides/_metadata",
		"/tutorials/fr",
		"/tutorials/en/directory",
		"/examples/en/missing",
	} {
		w, resp := get(t, srv, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.False(t, resp.Success, path)
		assert.Contains(t, resp.Error, "not found", path)
	}
}

func TestResourceEndpoints_CorruptArtifact(t *testing.T) {
	w, resp := get(t, newTestServer(), "/examples/en/broken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
}

func TestRunsEndpoints(t *testing.T) {
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	runs := &fakeRuns{runs: []history.Run{
		{ID: "b", Trigger: "watch", Started: started, Finished: started.Add(time.Second), Status: history.StatusSuccess},
		{ID: "a", Trigger: "build", Started: started, Finished: started, Status: history.StatusFailed, Error: "boom"},
	}}
	srv := newTestServer(WithRuns(runs))

	w, resp := get(t, srv, "/runs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	list, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].(map[string]any)["id"])

	w, resp = get(t, srv, "/runs/a")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "boom", resp.Data.(map[string]any)["error"])

	w, _ = get(t, srv, "/runs/zzz")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = get(t, srv, "/runs?limit=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	runs.err = errors.New("db closed")
	w, _ = get(t, srv, "/runs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRunsEndpoints_DisabledWithoutStore(t *testing.T) {
	w, _ := get(t, newTestServer(), "/runs")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncRebuild("watch")
	srv := newTestServer(WithMetrics(metrics.HTTPHandler(reg)))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `langdocs_rebuilds_total{trigger="watch"} 1`)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := newTestServer()
	srv.server.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
