package engine

import (
	"time"
)

// PipelineResult summarizes one pipeline within an execution.
type PipelineResult struct {
	Name      string
	Documents int
	// Changed counts output documents whose source is new or whose content
	// fingerprint differs from the previous execution.
	Changed int
	// Removed counts sources present in the previous execution but not this one.
	Removed  int
	Duration time.Duration
	// Skipped is set for process-once pipelines that kept earlier output.
	Skipped bool
	// Failures holds per-document errors tolerated by PolicyContinue.
	Failures []error
}

// ExecutionResult summarizes an engine execution.
type ExecutionResult struct {
	ExecutionID string
	Started     time.Time
	Duration    time.Duration
	Pipelines   []PipelineResult
	// Disposed counts documents from the previous execution that were closed
	// because no pipeline output them anymore.
	Disposed int
}

// Pipeline returns the result for the named pipeline.
func (r *ExecutionResult) Pipeline(name string) (PipelineResult, bool) {
	for _, p := range r.Pipelines {
		if p.Name == name {
			return p, true
		}
	}
	return PipelineResult{}, false
}

// Documents sums output documents across pipelines.
func (r *ExecutionResult) Documents() int {
	n := 0
	for _, p := range r.Pipelines {
		n += p.Documents
	}
	return n
}

// Changed sums changed documents across pipelines.
func (r *ExecutionResult) Changed() int {
	n := 0
	for _, p := range r.Pipelines {
		n += p.Changed
	}
	return n
}

// HasFailures reports whether any pipeline tolerated errors.
func (r *ExecutionResult) HasFailures() bool {
	for _, p := range r.Pipelines {
		if len(p.Failures) > 0 {
			return true
		}
	}
	return false
}
