package metrics

import "time"

// ResultLabel enumerates pipeline and module result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultFatal   ResultLabel = "fatal"
	ResultSkipped ResultLabel = "skipped"
)

// CacheResult distinguishes cache hits from misses.
type CacheResult string

const (
	CacheHit  CacheResult = "hit"
	CacheMiss CacheResult = "miss"
)

// Recorder defines observability hooks for engine, pipeline and module metrics.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveExecutionDuration(d time.Duration)
	IncExecutionOutcome(result ResultLabel)
	ObservePipelineDuration(pipeline string, d time.Duration)
	IncPipelineResult(pipeline string, result ResultLabel)
	ObserveModuleDuration(pipeline, module string, d time.Duration)
	SetPipelineDocuments(pipeline string, n int)
	IncCacheResult(pipeline string, result CacheResult)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveExecutionDuration(time.Duration)                {}
func (NoopRecorder) IncExecutionOutcome(ResultLabel)                       {}
func (NoopRecorder) ObservePipelineDuration(string, time.Duration)         {}
func (NoopRecorder) IncPipelineResult(string, ResultLabel)                 {}
func (NoopRecorder) ObserveModuleDuration(string, string, time.Duration)   {}
func (NoopRecorder) SetPipelineDocuments(string, int)                      {}
func (NoopRecorder) IncCacheResult(string, CacheResult)                    {}
