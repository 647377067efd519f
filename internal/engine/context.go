package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepipe/internal/cache"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/observability"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// executionContext implements pipeline.Context for one module invocation.
type executionContext struct {
	run      *run
	pipeline *Pipeline
	settings *metadata.Metadata
	module   string
	logger   *slog.Logger
	failures *failureLog
}

// failureLog collects per-document failures tolerated during one pipeline
// run. Nested chains and parallel modules share it.
type failureLog struct {
	mu   sync.Mutex
	seen map[*pipeline.ModuleExecutionError]struct{}
	errs []error
}

// add records me once and reports whether it was new.
func (l *failureLog) add(me *pipeline.ModuleExecutionError) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[me]; ok {
		return false
	}
	if l.seen == nil {
		l.seen = make(map[*pipeline.ModuleExecutionError]struct{})
	}
	l.seen[me] = struct{}{}
	l.errs = append(l.errs, me)
	return true
}

func (l *failureLog) list() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.errs)
}

var _ pipeline.Context = (*executionContext)(nil)

func (ec *executionContext) ExecutionID() string           { return ec.run.id }
func (ec *executionContext) PipelineName() string          { return ec.pipeline.name }
func (ec *executionContext) ModuleName() string            { return ec.module }
func (ec *executionContext) Settings() *metadata.Metadata  { return ec.settings }
func (ec *executionContext) Cache() *cache.ExecutionCache  { return ec.pipeline.cache }
func (ec *executionContext) FS() afero.Fs                  { return ec.run.engine.fs }
func (ec *executionContext) Logger() *slog.Logger          { return ec.logger }
func (ec *executionContext) Parallelism() int              { return ec.run.engine.parallelism }
func (ec *executionContext) Documents() pipeline.Documents { return ec.run.engine.documents.Load() }

func (ec *executionContext) GetDocument(parent *document.Document, opts ...document.CloneOption) *document.Document {
	if parent == nil {
		parent = document.New("", "", ec.settings)
	}
	return parent.Clone(opts...)
}

func (ec *executionContext) Execute(ctx context.Context, modules []pipeline.Module, inputs []*document.Document) ([]*document.Document, error) {
	if inputs == nil {
		inputs = []*document.Document{ec.GetDocument(nil)}
	}
	return ec.run.executeModules(ctx, ec, modules, inputs)
}

// forModule derives the context handed to a single module.
func (ec *executionContext) forModule(ctx context.Context, name string) *executionContext {
	next := *ec
	next.module = name
	next.logger = observability.Logger(ctx, ec.run.engine.logger)
	return &next
}
