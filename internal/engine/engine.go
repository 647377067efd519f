package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/observability"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Engine executes a collection of pipelines.
type Engine struct {
	fs          afero.Fs
	logger      *slog.Logger
	recorder    metrics.Recorder
	parallelism int

	settings  atomic.Pointer[metadata.Metadata]
	pipelines *PipelineCollection
	documents atomic.Pointer[DocumentCollection]
	running   atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithFS sets the file system handed to modules. Defaults to the OS file system.
func WithFS(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = rec }
}

// WithSettings sets the initial metadata every pipeline starts from.
func WithSettings(md *metadata.Metadata) Option {
	return func(e *Engine) {
		if md != nil {
			e.settings.Store(md)
		}
	}
}

// WithParallelism bounds data-parallel module fan-out. Zero or less selects
// one worker per CPU.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// New creates an engine with no pipelines.
func New(opts ...Option) *Engine {
	e := &Engine{
		fs:       afero.NewOsFs(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	e.settings.Store(metadata.Empty())
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism <= 0 {
		e.parallelism = runtime.GOMAXPROCS(0)
	}
	e.pipelines = newPipelineCollection(e.recorder, e.running.Load)
	e.documents.Store(emptyDocuments())
	return e
}

// Pipelines returns the engine's pipeline collection.
func (e *Engine) Pipelines() *PipelineCollection { return e.pipelines }

// Documents returns the most recently published documents.
func (e *Engine) Documents() *DocumentCollection { return e.documents.Load() }

// Settings returns the initial metadata.
func (e *Engine) Settings() *metadata.Metadata { return e.settings.Load() }

// SetSettings replaces the initial metadata. It fails while an execution is
// in progress.
func (e *Engine) SetSettings(md *metadata.Metadata) error {
	if e.running.Load() {
		return errors.RuntimeError("settings cannot be changed while the engine is executing").Build()
	}
	if md == nil {
		md = metadata.Empty()
	}
	e.settings.Store(md)
	return nil
}

// FS returns the engine's file system.
func (e *Engine) FS() afero.Fs { return e.fs }

// Running reports whether an execution is in progress.
func (e *Engine) Running() bool { return e.running.Load() }

// run holds per-execution state.
type run struct {
	id     string
	engine *Engine
}

// Execute runs every pipeline once. Only one execution may be in progress at
// a time.
func (e *Engine) Execute(ctx context.Context) (*ExecutionResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, errors.RuntimeError("engine is already executing").Build()
	}
	defer e.running.Store(false)

	r := &run{id: uuid.NewString(), engine: e}
	ctx = observability.WithExecutionID(ctx, r.id)
	result := &ExecutionResult{ExecutionID: r.id, Started: time.Now()}

	order, err := executionOrder(e.pipelines.snapshot())
	if err != nil {
		e.recorder.IncExecutionOutcome(metrics.ResultFatal)
		return result, err
	}

	observability.InfoContext(ctx, e.logger, "Starting execution", slog.Int("pipelines", len(order)))

	previous := e.documents.Load()
	current := emptyDocuments()
	for _, p := range order {
		if p.skip() {
			current = current.with(p.name, previous.ByPipeline(p.name))
		}
	}
	e.documents.Store(current)

	for _, p := range order {
		pr, err := r.executePipeline(ctx, p)
		result.Pipelines = append(result.Pipelines, pr)
		if err != nil {
			result.Duration = time.Since(result.Started)
			e.recorder.ObserveExecutionDuration(result.Duration)
			e.recorder.IncExecutionOutcome(metrics.ResultFatal)
			observability.ErrorContext(ctx, e.logger, "Execution failed", logfields.Error(err))
			return result, err
		}
	}

	result.Disposed = dispose(previous, e.documents.Load())
	result.Duration = time.Since(result.Started)
	e.recorder.ObserveExecutionDuration(result.Duration)
	outcome := metrics.ResultSuccess
	if result.HasFailures() {
		outcome = metrics.ResultWarning
	}
	e.recorder.IncExecutionOutcome(outcome)

	observability.InfoContext(ctx, e.logger, "Execution completed",
		logfields.Documents(result.Documents()),
		logfields.Changed(result.Changed()),
		logfields.DurationMS(float64(result.Duration.Microseconds())/1000))
	return result, nil
}

// dispose closes documents that were published previously but are not part
// of the new snapshot.
func dispose(previous, current *DocumentCollection) int {
	keep := current.ids()
	n := 0
	for _, doc := range previous.All() {
		if _, ok := keep[doc.ID()]; ok {
			continue
		}
		_ = doc.Close()
		n++
	}
	return n
}

func (r *run) executePipeline(ctx context.Context, p *Pipeline) (PipelineResult, error) {
	e := r.engine
	ctx = observability.WithPipeline(ctx, p.name)
	pr := PipelineResult{Name: p.name}
	start := time.Now()

	if p.skip() {
		pr.Skipped = true
		pr.Documents = len(e.documents.Load().ByPipeline(p.name))
		e.recorder.IncPipelineResult(p.name, metrics.ResultSkipped)
		observability.DebugContext(ctx, e.logger, "Skipping process-once pipeline")
		return pr, nil
	}

	if err := ctx.Err(); err != nil {
		return pr, fmt.Errorf("execution canceled before pipeline %s: %w", p.name, err)
	}

	p.setState(StateRunning)
	settings := e.Settings()
	if p.Metadata != nil {
		settings = settings.CloneWith(metadataPairs(p.Metadata)...)
	}

	base := &executionContext{run: r, pipeline: p, settings: settings, failures: &failureLog{}}
	var inputs []*document.Document
	if p.InputPipeline != "" {
		inputs = e.documents.Load().ByPipeline(p.InputPipeline)
	} else {
		inputs = []*document.Document{base.GetDocument(nil)}
	}

	outputs, err := r.executeModules(ctx, base, p.modules, inputs)
	pr.Duration = time.Since(start)
	e.recorder.ObservePipelineDuration(p.name, pr.Duration)
	if err != nil {
		p.setState(StateNotStarted)
		e.recorder.IncPipelineResult(p.name, metrics.ResultFatal)
		return pr, err
	}

	e.documents.Store(e.documents.Load().with(p.name, outputs))
	pr.Documents = len(outputs)
	pr.Changed, pr.Removed = p.diff(outputs)
	pr.Failures = base.failures.list()
	evicted := p.cache.ResetUnused()
	p.setState(StateCompleted)

	label := metrics.ResultSuccess
	if len(pr.Failures) > 0 {
		label = metrics.ResultWarning
	}
	e.recorder.IncPipelineResult(p.name, label)
	e.recorder.SetPipelineDocuments(p.name, len(outputs))

	stats := p.cache.Stats()
	observability.InfoContext(ctx, e.logger, "Pipeline completed",
		logfields.Documents(pr.Documents),
		logfields.Changed(pr.Changed),
		slog.Int("removed", pr.Removed),
		slog.Int("evicted", evicted),
		logfields.CacheHits(stats.Hits),
		logfields.CacheMisses(stats.Misses),
		logfields.DurationMS(float64(pr.Duration.Microseconds())/1000))
	return pr, nil
}

func metadataPairs(md *metadata.Metadata) []metadata.KV {
	pairs := make([]metadata.KV, 0, md.Len())
	for _, k := range md.Keys() {
		raw, _ := md.GetRaw(k)
		pairs = append(pairs, metadata.KV{Key: k, Value: raw})
	}
	return pairs
}

// executeModules is strict sequential composition: every module sees the
// complete output of the previous one. Failures tolerated by PolicyContinue
// are recorded on the pipeline's failure log.
func (r *run) executeModules(ctx context.Context, base *executionContext, modules []pipeline.Module, inputs []*document.Document) ([]*document.Document, error) {
	e := r.engine
	p := base.pipeline
	docs := inputs
	for _, m := range modules {
		name := pipeline.NameOf(m)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline %s canceled before module %s: %w", p.name, name, err)
		}
		mctx := observability.WithModule(ctx, name)
		ec := base.forModule(mctx, name)

		out, err := pipeline.Chain(m, r.observeModule(p.name)).Execute(mctx, docs, ec)
		if err != nil {
			if p.ErrorPolicy != pipeline.PolicyContinue || !pipeline.Recoverable(err) {
				return nil, moduleFailure(p.name, name, err)
			}
			for _, me := range pipeline.ModuleErrors(err) {
				annotate(me, p.name, name)
				if base.failures.add(me) {
					observability.WarnContext(mctx, e.logger, "Document failed, continuing",
						logfields.Source(me.Source), logfields.Error(me.Err))
				}
			}
		}
		docs = compact(out)
	}
	return docs, nil
}

// observeModule records the duration of each module call and logs it.
func (r *run) observeModule(pipelineName string) pipeline.Middleware {
	e := r.engine
	return pipeline.Around(func(ctx context.Context, name string, inputs []*document.Document, next func() ([]*document.Document, error)) ([]*document.Document, error) {
		start := time.Now()
		out, err := next()
		elapsed := time.Since(start)
		e.recorder.ObserveModuleDuration(pipelineName, name, elapsed)
		observability.DebugContext(ctx, e.logger, "Module executed",
			slog.Int("inputs", len(inputs)),
			logfields.Documents(len(out)),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000))
		return out, err
	})
}

func annotate(me *pipeline.ModuleExecutionError, pipelineName, module string) {
	if me.Pipeline == "" {
		me.Pipeline = pipelineName
	}
	if me.Module == "" {
		me.Module = module
	}
}

// moduleFailure converts a module error into the fatal engine error that
// names the pipeline, the module and, when known, the failing document.
func moduleFailure(pipelineName, module string, err error) error {
	if ce, ok := errors.AsClassified(err); ok && ce.Severity() == errors.SeverityFatal {
		if _, has := ce.Context().GetString(errors.ContextPipeline); has {
			return err
		}
	}
	b := errors.WrapError(err, errors.CategoryModule, "module execution failed").
		Fatal().
		WithContext(errors.ContextPipeline, pipelineName).
		WithContext(errors.ContextModule, module)
	if failed := pipeline.ModuleErrors(err); len(failed) > 0 {
		for _, me := range failed {
			annotate(me, pipelineName, module)
		}
		if failed[0].Source != "" {
			b = b.WithContext(errors.ContextSource, failed[0].Source)
		}
	}
	return b.Build()
}

func compact(docs []*document.Document) []*document.Document {
	out := docs[:0:0]
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}
