package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("docs", time.Second)
	r.IncBuildOutcome(BuildOutcomeSuccess)
	r.AddArtifacts("created", 3)
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var p *PrometheusRecorder
	p.ObserveBuildDuration(time.Second)
	p.AddWarnings("render", 1)
	p.SetLanguages(2)
}

func TestPrometheusRecorder_Counts(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("en/docs", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("en/docs", ResultSuccess)
	pr.IncStageResult("en/docs", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeWarning)
	pr.AddArtifacts("created", 4)
	pr.AddArtifacts("unchanged", 0)
	pr.AddWarnings("bundle", 2)
	pr.SetLanguages(3)
	pr.IncRebuild("watch")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	byName := map[string]*dto.MetricFamily{}
	for _, mf := range mfs {
		byName[mf.GetName()] = mf
	}

	stage := byName["langdocs_stage_results_total"]
	require.NotNil(t, stage)
	require.Len(t, stage.GetMetric(), 1)
	assert.InDelta(t, 2, stage.GetMetric()[0].GetCounter().GetValue(), 0)

	artifacts := byName["langdocs_artifacts_written_total"]
	require.NotNil(t, artifacts)
	require.Len(t, artifacts.GetMetric(), 1, "zero adds create no series")
	assert.InDelta(t, 4, artifacts.GetMetric()[0].GetCounter().GetValue(), 0)

	langs := byName["langdocs_languages"]
	require.NotNil(t, langs)
	assert.InDelta(t, 3, langs.GetMetric()[0].GetGauge().GetValue(), 0)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncRebuild("schedule")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `langdocs_rebuilds_total{trigger="schedule"} 1`))
}
