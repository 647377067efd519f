package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Status represents the outcome of a build.
type Status string

const (
	// StatusSuccess indicates every pipeline completed without failures.
	StatusSuccess Status = "success"

	// StatusDegraded indicates the build completed but some documents failed
	// under the continue policy.
	StatusDegraded Status = "degraded"

	// StatusFailed indicates a fatal error stopped the build.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the context was cancelled mid-build.
	StatusCancelled Status = "cancelled"
)

// IsSuccess returns true if the build produced output.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusDegraded
}

// Result contains the outcome of a build.
type Result struct {
	Status    Status
	Execution *engine.ExecutionResult
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Service builds engines from configuration and runs them.
type Service struct {
	registry *modules.Registry
	fs       afero.Fs
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry replaces the built-in module registry.
func WithRegistry(r *modules.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithFS sets the file system engines are created with (for testing).
func WithFS(fs afero.Fs) Option {
	return func(s *Service) { s.fs = fs }
}

// WithLogger sets the logger engines are created with.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecorder sets the metrics recorder engines are created with.
func WithRecorder(rec metrics.Recorder) Option {
	return func(s *Service) { s.recorder = rec }
}

// NewService creates a Service with the default registry and the OS file
// system.
func NewService(opts ...Option) *Service {
	s := &Service{
		registry: modules.DefaultRegistry(),
		fs:       afero.NewOsFs(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewEngine creates an engine with every configured pipeline registered.
func (s *Service) NewEngine(cfg *config.Config) (*engine.Engine, error) {
	if cfg == nil {
		return nil, errors.ConfigError("config required").Build()
	}

	eng := engine.New(
		engine.WithFS(s.fs),
		engine.WithLogger(s.logger),
		engine.WithRecorder(s.recorder),
		engine.WithSettings(metadata.New(cfg.Settings)),
		engine.WithParallelism(cfg.Parallelism),
	)

	for i, pc := range cfg.Pipelines {
		if err := s.addPipeline(eng, cfg, pc); err != nil {
			label := pc.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			if ce, ok := errors.AsClassified(err); ok {
				return nil, ce.WithContext(errors.ContextPipeline, label)
			}
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid pipeline").
				WithContext(errors.ContextPipeline, label).
				Build()
		}
	}
	return eng, nil
}

func (s *Service) addPipeline(eng *engine.Engine, cfg *config.Config, pc config.PipelineConfig) error {
	specs := make([]any, 0, len(pc.Modules))
	for _, spec := range pc.ModuleSpecs() {
		specs = append(specs, resolveRoots(cfg, spec))
	}
	mods, err := s.registry.NewChain(specs)
	if err != nil {
		return err
	}
	policy, err := pipeline.ParseErrorPolicy(pc.ErrorPolicy)
	if err != nil {
		return err
	}

	var p *engine.Pipeline
	if pc.Name == "" {
		p, err = eng.Pipelines().AddUnnamed(mods...)
	} else {
		p, err = eng.Pipelines().Add(pc.Name, mods...)
	}
	if err != nil {
		return err
	}
	p.ErrorPolicy = policy
	p.ProcessOnce = pc.ProcessOnce
	p.InputPipeline = pc.InputPipeline
	p.Dependencies = pc.Dependencies
	if len(pc.Metadata) > 0 {
		p.Metadata = metadata.New(pc.Metadata)
	}
	return nil
}

// Run executes eng once and classifies the outcome.
func (s *Service) Run(ctx context.Context, eng *engine.Engine) (*Result, error) {
	start := time.Now()
	exec, err := eng.Execute(ctx)
	res := &Result{
		Execution: exec,
		StartTime: start,
		EndTime:   time.Now(),
	}
	res.Duration = res.EndTime.Sub(start)

	switch {
	case err != nil && ctx.Err() != nil:
		res.Status = StatusCancelled
	case err != nil:
		res.Status = StatusFailed
	case exec.HasFailures():
		res.Status = StatusDegraded
	default:
		res.Status = StatusSuccess
	}
	return res, err
}
