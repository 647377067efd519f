package pipeline

import (
	"context"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// Middleware decorates a module with cross-cutting behaviour.
type Middleware func(Module) Module

// Chain wraps m with the given middleware. The first middleware is the
// outermost one.
func Chain(m Module, middlewares ...Middleware) Module {
	for i := len(middlewares) - 1; i >= 0; i-- {
		m = middlewares[i](m)
	}
	return m
}

// Wrap returns a module that keeps the display name of inner while running
// exec in its place.
func Wrap(inner Module, exec ModuleFunc) Module {
	return WithName(NameOf(inner), exec)
}

// Around is a convenience for middleware that only need to observe a call.
func Around(observe func(ctx context.Context, name string, inputs []*document.Document, next func() ([]*document.Document, error)) ([]*document.Document, error)) Middleware {
	return func(m Module) Module {
		name := NameOf(m)
		return Wrap(m, func(ctx context.Context, inputs []*document.Document, ec Context) ([]*document.Document, error) {
			return observe(ctx, name, inputs, func() ([]*document.Document, error) {
				return m.Execute(ctx, inputs, ec)
			})
		})
	}
}
