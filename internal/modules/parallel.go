package modules

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// AsParallel runs inner once per input document on a bounded worker pool and
// reassembles the outputs in input order. Per-document failures are
// collected; any other error cancels the remaining work.
type AsParallel struct {
	inner pipeline.Module
	limit int
}

// NewAsParallel wraps inner. The worker count defaults to the context's
// Parallelism.
func NewAsParallel(inner pipeline.Module) *AsParallel {
	return &AsParallel{inner: inner}
}

// WithLimit bounds the number of concurrent workers.
func (p *AsParallel) WithLimit(n int) *AsParallel {
	p.limit = n
	return p
}

func (p *AsParallel) Name() string { return "AsParallel(" + pipeline.NameOf(p.inner) + ")" }

func (p *AsParallel) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	limit := p.limit
	if limit <= 0 {
		limit = ec.Parallelism()
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([][]*document.Document, len(inputs))
	failures := make([]error, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, doc := range inputs {
		g.Go(func() error {
			out, err := p.inner.Execute(gctx, []*document.Document{doc}, ec)
			if err != nil {
				if !pipeline.Recoverable(err) {
					return err
				}
				failures[i] = err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*document.Document
	var errs []error
	for i := range inputs {
		out = append(out, results[i]...)
		if failures[i] != nil {
			errs = append(errs, failures[i])
		}
	}
	return out, pipeline.JoinErrors(errs)
}
