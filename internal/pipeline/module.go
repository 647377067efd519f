package pipeline

import (
	"context"
	"reflect"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// Module transforms a list of input documents into output documents.
//
// Inputs are read-only. A module may emit zero, one or many outputs per input
// and may ignore inputs entirely. New documents must be produced through
// Context.GetDocument.
type Module interface {
	Execute(ctx context.Context, inputs []*document.Document, ec Context) ([]*document.Document, error)
}

// ModuleFunc adapts a plain function to the Module interface.
type ModuleFunc func(ctx context.Context, inputs []*document.Document, ec Context) ([]*document.Document, error)

// Execute calls f.
func (f ModuleFunc) Execute(ctx context.Context, inputs []*document.Document, ec Context) ([]*document.Document, error) {
	return f(ctx, inputs, ec)
}

// Named is implemented by modules that report a display name for logs,
// metrics and error context.
type Named interface {
	Name() string
}

type namedModule struct {
	name string
	Module
}

func (n namedModule) Name() string { return n.name }

// WithName attaches a display name to m.
func WithName(name string, m Module) Module {
	return namedModule{name: name, Module: m}
}

// NameOf returns the display name of m. Modules that do not implement Named
// are reported by their Go type name.
func NameOf(m Module) string {
	if m == nil {
		return "<nil>"
	}
	if n, ok := m.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return strings.TrimPrefix(t.String(), "*")
}

// DocumentFunc processes a single document.
type DocumentFunc func(ctx context.Context, doc *document.Document, ec Context) ([]*document.Document, error)

// ForEach builds a module that applies fn to every input in order and
// concatenates the results. A failing document does not stop the loop: its
// error is recorded as a ModuleExecutionError and all failures are returned
// joined, together with the outputs of the documents that succeeded. The
// pipeline's ErrorPolicy decides what happens next.
func ForEach(fn DocumentFunc) ModuleFunc {
	return func(ctx context.Context, inputs []*document.Document, ec Context) ([]*document.Document, error) {
		outputs := make([]*document.Document, 0, len(inputs))
		var failures []error
		for _, doc := range inputs {
			if err := ctx.Err(); err != nil {
				return outputs, err
			}
			out, err := fn(ctx, doc, ec)
			if err != nil {
				failures = append(failures, DocumentError(doc, err))
				continue
			}
			outputs = append(outputs, out...)
		}
		return outputs, JoinErrors(failures)
	}
}

// Map is ForEach for functions that always produce exactly one output.
func Map(fn func(ctx context.Context, doc *document.Document, ec Context) (*document.Document, error)) ModuleFunc {
	return ForEach(func(ctx context.Context, doc *document.Document, ec Context) ([]*document.Document, error) {
		out, err := fn(ctx, doc, ec)
		if err != nil {
			return nil, err
		}
		return []*document.Document{out}, nil
	})
}
