package modules

import (
	"context"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Execute runs fn once per input document and concatenates the results.
func Execute(fn pipeline.DocumentFunc) pipeline.Module {
	return pipeline.WithName("Execute", pipeline.ForEach(fn))
}

// ExecuteAll runs fn once with the complete input list.
func ExecuteAll(fn pipeline.ModuleFunc) pipeline.Module {
	return pipeline.WithName("ExecuteAll", fn)
}

// Meta sets a metadata value on every input document. The value may be a
// metadata.Deferred or metadata.CachedDeferred, which is then evaluated on
// read against the document it ends up in. Each document memoizes a
// CachedDeferred separately.
type Meta struct {
	key           string
	value         any
	compute       func(doc *document.Document, ec pipeline.Context) (any, error)
	onlyIfMissing bool
}

// NewMeta sets key to value.
func NewMeta(key string, value any) *Meta {
	return &Meta{key: key, value: value}
}

// MetaFunc sets key to the result of fn, evaluated eagerly per document.
func MetaFunc(key string, fn func(doc *document.Document, ec pipeline.Context) (any, error)) *Meta {
	return &Meta{key: key, compute: fn}
}

// IfMissing leaves documents that already carry the key untouched.
func (m *Meta) IfMissing() *Meta {
	m.onlyIfMissing = true
	return m
}

func (m *Meta) Name() string { return "Meta" }

func (m *Meta) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		if m.onlyIfMissing && doc.ContainsKey(m.key) {
			return doc, nil
		}
		value := metadata.Fresh(m.value)
		if m.compute != nil {
			v, err := m.compute(doc, ec)
			if err != nil {
				return nil, err
			}
			value = v
		}
		return ec.GetDocument(doc, document.WithValue(m.key, value)), nil
	})(ctx, inputs, ec)
}

// Where keeps the documents for which keep returns true.
func Where(keep func(doc *document.Document) bool) pipeline.Module {
	return pipeline.WithName("Where", pipeline.ModuleFunc(func(_ context.Context, inputs []*document.Document, _ pipeline.Context) ([]*document.Document, error) {
		out := make([]*document.Document, 0, len(inputs))
		for _, doc := range inputs {
			if keep(doc) {
				out = append(out, doc)
			}
		}
		return out, nil
	}))
}

// Take keeps the first n documents.
func Take(n int) pipeline.Module {
	return pipeline.WithName("Take", pipeline.ModuleFunc(func(_ context.Context, inputs []*document.Document, _ pipeline.Context) ([]*document.Document, error) {
		count := max(0, min(n, len(inputs)))
		return inputs[:count:count], nil
	}))
}

// Branch runs modules over the inputs for their side effects and passes the
// inputs through unchanged.
func Branch(modules ...pipeline.Module) pipeline.Module {
	return pipeline.WithName("Branch", pipeline.ModuleFunc(func(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
		if _, err := ec.Execute(ctx, modules, inputs); err != nil {
			return nil, err
		}
		return inputs, nil
	}))
}

// Concat appends the output of modules, run from a fresh document, to the
// inputs.
func Concat(modules ...pipeline.Module) pipeline.Module {
	return pipeline.WithName("Concat", pipeline.ModuleFunc(func(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
		extra, err := ec.Execute(ctx, modules, nil)
		if err != nil {
			return nil, err
		}
		out := make([]*document.Document, 0, len(inputs)+len(extra))
		out = append(out, inputs...)
		return append(out, extra...), nil
	}))
}

// Documents replaces the inputs with the completed documents of the named
// pipelines, in the order given. Without names it returns the documents of
// every pipeline except the current one.
func Documents(pipelines ...string) pipeline.Module {
	return pipeline.WithName("Documents", pipeline.ModuleFunc(func(_ context.Context, _ []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
		if len(pipelines) == 0 {
			return ec.Documents().ExceptPipeline(ec.PipelineName()), nil
		}
		var out []*document.Document
		for _, name := range pipelines {
			out = append(out, ec.Documents().ByPipeline(name)...)
		}
		return out, nil
	}))
}
