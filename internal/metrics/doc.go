// Package metrics provides build metrics behind a Recorder interface.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed:
//
//	driver := build.New(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation registers its collectors on the registry it
// is given; HTTPHandler exposes that registry for scraping.
package metrics
