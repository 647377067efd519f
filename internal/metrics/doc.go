// Package metrics provides observability hooks for pipeline executions.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default so the engine never has to nil-check; PrometheusRecorder is
// wired in by the CLI when metrics are enabled in configuration.
//
//	rec := metrics.NewPrometheusRecorder(reg)
//	eng := engine.New(engine.WithRecorder(rec))
package metrics
