package modules

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

func newEngine(fs afero.Fs) *engine.Engine {
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	return engine.New(
		engine.WithFS(fs),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// run executes modules as a single pipeline named "Test" and returns its output.
func run(t *testing.T, fs afero.Fs, modules ...pipeline.Module) []*document.Document {
	t.Helper()
	e := newEngine(fs)
	_, err := e.Pipelines().Add("Test", modules...)
	require.NoError(t, err)
	_, err = e.Execute(context.Background())
	require.NoError(t, err)
	return e.Documents().ByPipeline("Test")
}

// docs emits one document per content string, sourced as "docN".
func docs(contents ...string) pipeline.Module {
	return ExecuteAll(func(_ context.Context, _ []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
		out := make([]*document.Document, len(contents))
		for i, c := range contents {
			out[i] = ec.GetDocument(nil,
				document.WithSource("doc"+string(rune('a'+i))),
				document.WithContent(c))
		}
		return out, nil
	})
}

// withValues emits one document per value under key.
func withValues(key string, vals ...any) pipeline.Module {
	return ExecuteAll(func(_ context.Context, _ []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
		out := make([]*document.Document, len(vals))
		for i, v := range vals {
			out[i] = ec.GetDocument(nil, document.WithValue(key, v), document.WithValue("Pos", i))
		}
		return out, nil
	})
}

func ints(t *testing.T, docs []*document.Document, key string) []int {
	t.Helper()
	out := make([]int, len(docs))
	for i, d := range docs {
		v, err := d.Metadata().GetInt(key)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func contents(docs []*document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content()
	}
	return out
}
