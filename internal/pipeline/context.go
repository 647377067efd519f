package pipeline

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepipe/internal/cache"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
)

// Context is handed to every module invocation. It is the sole way for a
// module to create documents, run nested module chains and reach the
// engine's collaborators.
type Context interface {
	// ExecutionID identifies the current engine execution.
	ExecutionID() string
	// PipelineName is the name of the pipeline being executed.
	PipelineName() string
	// ModuleName is the display name of the running module.
	ModuleName() string
	// Settings is the engine's initial metadata layered with the pipeline's
	// own metadata.
	Settings() *metadata.Metadata

	// GetDocument derives a document from parent. A nil parent yields a fresh
	// document sourced from the pipeline whose metadata is layered over
	// Settings.
	GetDocument(parent *document.Document, opts ...document.CloneOption) *document.Document

	// Execute runs modules in sequence over inputs. Nil inputs start the chain
	// from a single fresh document.
	Execute(ctx context.Context, modules []Module, inputs []*document.Document) ([]*document.Document, error)

	// Documents exposes the completed output of pipelines that already ran in
	// this execution, and of process-once pipelines from earlier executions.
	Documents() Documents

	Cache() *cache.ExecutionCache
	FS() afero.Fs
	Logger() *slog.Logger

	// Parallelism bounds data-parallel fan-out inside a module. Zero means
	// one worker per CPU.
	Parallelism() int
}

// Documents is a read-only view of completed pipeline outputs.
type Documents interface {
	// ByPipeline returns the documents of the named pipeline. Names match
	// case-insensitively. Unknown pipelines yield nil.
	ByPipeline(name string) []*document.Document
	// ExceptPipeline returns the documents of every other pipeline.
	ExceptPipeline(name string) []*document.Document
	// All returns every completed document in pipeline registration order.
	All() []*document.Document
	// Pipelines lists the pipelines that have published documents.
	Pipelines() []string
}
