package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitepipe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	executionDuration prom.Histogram
	executionOutcome  *prom.CounterVec
	pipelineDuration  *prom.HistogramVec
	pipelineResults   *prom.CounterVec
	moduleDuration    *prom.HistogramVec
	pipelineDocuments *prom.GaugeVec
	cacheResults      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		executionDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Duration of full engine executions",
			Buckets:   prom.DefBuckets,
		}),
		executionOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "execution_outcomes_total",
			Help:      "Engine executions by final outcome",
		}, []string{"result"}),
		pipelineDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of individual pipeline executions",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline"}),
		pipelineResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_results_total",
			Help:      "Pipeline result counts by outcome",
		}, []string{"pipeline", "result"}),
		moduleDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "module_duration_seconds",
			Help:      "Duration of module executions within a pipeline",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline", "module"}),
		pipelineDocuments: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_documents",
			Help:      "Completed documents produced by the last pipeline execution",
		}, []string{"pipeline"}),
		cacheResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Execution cache lookups by result",
		}, []string{"pipeline", "result"}),
	}
	reg.MustRegister(pr.executionDuration, pr.executionOutcome, pr.pipelineDuration, pr.pipelineResults,
		pr.moduleDuration, pr.pipelineDocuments, pr.cacheResults)
	return pr
}

func (p *PrometheusRecorder) ObserveExecutionDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.executionDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncExecutionOutcome(result ResultLabel) {
	if p == nil {
		return
	}
	p.executionOutcome.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObservePipelineDuration(pipeline string, d time.Duration) {
	if p == nil {
		return
	}
	p.pipelineDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineResult(pipeline string, result ResultLabel) {
	if p == nil {
		return
	}
	p.pipelineResults.WithLabelValues(pipeline, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveModuleDuration(pipeline, module string, d time.Duration) {
	if p == nil {
		return
	}
	p.moduleDuration.WithLabelValues(pipeline, module).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetPipelineDocuments(pipeline string, n int) {
	if p == nil {
		return
	}
	p.pipelineDocuments.WithLabelValues(pipeline).Set(float64(n))
}

func (p *PrometheusRecorder) IncCacheResult(pipeline string, result CacheResult) {
	if p == nil {
		return
	}
	p.cacheResults.WithLabelValues(pipeline, string(result)).Inc()
}
