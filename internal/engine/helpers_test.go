package engine

import (
	"context"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

func quietEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

func fn(name string, f pipeline.ModuleFunc) pipeline.Module {
	return pipeline.WithName(name, f)
}

// emit replaces the inputs with n fresh documents carrying Value=1.
func emit(n int) pipeline.Module {
	return fn("Emit", func(_ context.Context, _ []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
		out := make([]*document.Document, n)
		for i := range out {
			out[i] = ec.GetDocument(nil, document.WithValue("Value", 1))
		}
		return out, nil
	})
}

func values(docs []*document.Document, key string) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		v, _ := d.Metadata().GetInt(key)
		out[i] = v
	}
	return out
}
