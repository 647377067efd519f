package modules

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

func TestMeta(t *testing.T) {
	out := run(t, nil,
		docs("a", "b"),
		NewMeta("Layout", "post"),
		NewMeta("Layout", "page").IfMissing(),
		MetaFunc("Length", func(doc *document.Document, _ pipeline.Context) (any, error) {
			return len(doc.Content()), nil
		}),
	)
	require.Len(t, out, 2)
	for _, d := range out {
		assert.Equal(t, "post", d.String("Layout", ""))
		assert.Equal(t, 1, d.Get("Length", 0))
	}
}

func TestMetaDeferredEvaluation(t *testing.T) {
	var plain, cached atomic.Int32
	out := run(t, nil,
		docs("x"),
		NewMeta("Upper", metadata.Deferred(func(_ string, md *metadata.Metadata) any {
			plain.Add(1)
			return strings.ToUpper(md.StringOr("Name", ""))
		})),
		NewMeta("Once", metadata.CachedDeferred(func(string, *metadata.Metadata) any {
			cached.Add(1)
			return "memo"
		})),
		NewMeta("Name", "late"),
	)
	require.Len(t, out, 1)
	d := out[0]
	// Deferred values see keys added after them.
	assert.Equal(t, "LATE", d.String("Upper", ""))
	assert.Equal(t, "LATE", d.String("Upper", ""))
	assert.Equal(t, int32(2), plain.Load())

	assert.Equal(t, "memo", d.String("Once", ""))
	assert.Equal(t, "memo", d.String("Once", ""))
	assert.Equal(t, int32(1), cached.Load())
}

func TestMetaCachedDeferredPerDocument(t *testing.T) {
	var calls atomic.Int32
	out := run(t, nil,
		withValues("Name", "first", "second"),
		NewMeta("Slug", metadata.CachedDeferred(func(_ string, md *metadata.Metadata) any {
			calls.Add(1)
			return md.StringOr("Name", "") + ".html"
		})),
	)
	require.Len(t, out, 2)
	assert.Equal(t, "first.html", out[0].String("Slug", ""))
	assert.Equal(t, "second.html", out[1].String("Slug", ""))
	assert.Equal(t, "second.html", out[1].String("Slug", ""))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWhereAndTake(t *testing.T) {
	out := run(t, nil,
		withValues("N", 1, 2, 3, 4, 5),
		Where(func(d *document.Document) bool { return d.Get("N", 0).(int)%2 == 1 }),
		Take(2),
	)
	assert.Equal(t, []int{1, 3}, ints(t, out, "N"))

	none := run(t, nil, withValues("N", 1), Take(-1))
	assert.Empty(t, none)
}

func TestBranchPassesInputsThrough(t *testing.T) {
	var seen atomic.Int32
	out := run(t, nil,
		docs("a", "b"),
		Branch(
			NewMeta("Branched", true),
			Execute(func(_ context.Context, d *document.Document, _ pipeline.Context) ([]*document.Document, error) {
				seen.Add(1)
				return nil, nil
			}),
		),
	)
	require.Len(t, out, 2)
	assert.Equal(t, int32(2), seen.Load())
	assert.False(t, out[0].ContainsKey("Branched"))
}

func TestConcat(t *testing.T) {
	out := run(t, nil, docs("a"), Concat(docs("b", "c")))
	assert.Equal(t, []string{"a", "b", "c"}, contents(out))
}

func TestDocumentsFromOtherPipelines(t *testing.T) {
	e := newEngine(nil)
	_, err := e.Pipelines().Add("Posts", docs("p1", "p2"))
	require.NoError(t, err)
	_, err = e.Pipelines().Add("Pages", docs("g1"))
	require.NoError(t, err)
	_, err = e.Pipelines().Add("Sitemap", Documents())
	require.NoError(t, err)
	_, err = e.Pipelines().Add("Feed", Documents("posts"))
	require.NoError(t, err)

	_, err = e.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "g1"}, contents(e.Documents().ByPipeline("Sitemap")))
	assert.Equal(t, []string{"p1", "p2"}, contents(e.Documents().ByPipeline("Feed")))
}
