package metrics

import (
	"testing"
	"time"
)

// Compile-time interface checks.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveExecutionDuration(time.Second)
	r.IncExecutionOutcome(ResultFatal)
	r.ObservePipelineDuration("p", time.Millisecond)
	r.IncPipelineResult("p", ResultSkipped)
	r.ObserveModuleDuration("p", "m", time.Millisecond)
	r.SetPipelineDocuments("p", 1)
	r.IncCacheResult("p", CacheMiss)
}
