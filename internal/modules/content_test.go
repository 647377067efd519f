package modules

import (
	"context"
	"strings"
	"testing"

	"github.com/inful/mdfp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/frontmatter"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

func TestFrontMatter(t *testing.T) {
	out := run(t, nil,
		docs("---\ntitle: Hello\ntags: [go, web]\n---\n# Body\n", "no front matter"),
		NewFrontMatter(),
	)
	require.Len(t, out, 2)
	assert.Equal(t, "Hello", out[0].String("title", ""))
	tags, err := out[0].Metadata().GetStringSlice("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web"}, tags)
	assert.Equal(t, "# Body\n", out[0].Content())
	assert.Equal(t, "no front matter", out[1].Content())
}

func TestFrontMatterCustomDelimiter(t *testing.T) {
	out := run(t, nil, docs(";;;\nlayout: post\n;;;\nbody"), NewFrontMatter().WithDelimiter(";;;"))
	assert.Equal(t, "post", out[0].String("layout", ""))
	assert.Equal(t, "body", out[0].Content())
}

func TestFrontMatterInvalidYAMLFailsDocument(t *testing.T) {
	e := newEngine(nil)
	p, err := e.Pipelines().Add("P", docs("---\ntitle: [oops\n---\nbody", "fine"), NewFrontMatter())
	require.NoError(t, err)
	p.ErrorPolicy = pipeline.PolicyContinue

	res, err := e.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fine"}, contents(e.Documents().ByPipeline("P")))
	pr, _ := res.Pipeline("P")
	require.Len(t, pr.Failures, 1)
	assert.Contains(t, pr.Failures[0].Error(), "source doca")
}

func TestMarkdown(t *testing.T) {
	out := run(t, nil,
		docs("# Title\n\nSome *text* with ~~strike~~.\n\n<div>raw</div>\n"),
		NewMarkdown(),
	)
	html := out[0].Content()
	assert.Contains(t, html, `<h1 id="title">Title</h1>`)
	assert.Contains(t, html, "<em>text</em>")
	assert.Contains(t, html, "<del>strike</del>")
	assert.NotContains(t, html, "<div>raw</div>")

	unsafe := run(t, nil, docs("<div>raw</div>\n"), NewMarkdown().AllowHTML())
	assert.Contains(t, unsafe[0].Content(), "<div>raw</div>")
}

func TestMarkdownCachesAcrossExecutions(t *testing.T) {
	fs := seedFS(t, map[string]string{"in/a.md": "# A", "in/b.md": "# B"})
	e := newEngine(fs)
	p, err := e.Pipelines().Add("Pages", NewReadFiles("in"), NewMarkdown())
	require.NoError(t, err)

	_, err = e.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Cache().Stats().Misses)

	_, err = e.Execute(context.Background())
	require.NoError(t, err)
	stats := p.Cache().Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Contains(t, e.Documents().ByPipeline("Pages")[0].Content(), "<h1")
}

func TestExcerpt(t *testing.T) {
	out := run(t, nil,
		docs("<h1>T</h1><p>First <b>para</b>.</p><p>Second</p>", "<h1>No paragraphs</h1>"),
		NewExcerpt(),
	)
	assert.Equal(t, "<p>First <b>para</b>.</p>", out[0].String(KeyExcerpt, ""))
	assert.False(t, out[1].ContainsKey(KeyExcerpt))

	out = run(t, nil, docs("<p>a</p><h2>Heading</h2>"), NewExcerpt().WithTag("H2").WithKey("Lead"))
	assert.Equal(t, "<h2>Heading</h2>", out[0].String("Lead", ""))
}

func TestTitle(t *testing.T) {
	fs := seedFS(t, map[string]string{
		"in/getting-started.md": "x",
		"in/has_title.md":       "---\nTitle: Kept\n---\n",
	})
	out := run(t, fs, NewReadFiles("in"), NewFrontMatter(), NewTitle())
	require.Len(t, out, 2)
	assert.Equal(t, "Getting Started", out[0].String(KeyTitle, ""))
	assert.Equal(t, "Kept", out[1].String(KeyTitle, ""))

	out = run(t, fs, NewReadFiles("in"), NewFrontMatter(), NewTitle().Overwrite())
	assert.Equal(t, "Has Title", out[1].String(KeyTitle, ""))

	// Falls back to the document source.
	out = run(t, nil, docs("x"), NewTitle())
	assert.Equal(t, "Doca", out[0].String(KeyTitle, ""))
}

func TestFingerprintIgnoresFieldOrderAndVolatileFields(t *testing.T) {
	out := run(t, nil,
		docs(
			"---\ntitle: A\ntags: [x]\n---\nbody\n",
			"---\ntags: [x]\nlastmod: 2024-01-01\ntitle: A\n---\nbody\n",
			"---\ntitle: B\ntags: [x]\n---\nbody\n",
		),
		NewFingerprint(),
	)
	fp := func(i int) string { return out[i].String(KeyFingerprint, "") }
	require.NotEmpty(t, fp(0))
	assert.Equal(t, fp(0), fp(1))
	assert.NotEqual(t, fp(0), fp(2))
	assert.Equal(t, mdfp.CalculateFingerprintFromParts("tags:\n  - x\ntitle: A", "body\n"), fp(0))
}

func TestFingerprintUpsert(t *testing.T) {
	out := run(t, nil, docs("---\ntitle: A\n---\nbody\n"), NewFingerprint().Upsert())
	fp := out[0].String(KeyFingerprint, "")

	block, err := frontmatter.Split(out[0].Bytes(), "")
	require.NoError(t, err)
	fields, err := block.Fields()
	require.NoError(t, err)
	assert.Equal(t, fp, fields[mdfp.FingerprintField])
	assert.Equal(t, "body\n", string(block.Body))

	// Running again over the upserted content is stable.
	again := run(t, nil, docs(out[0].Content()), NewFingerprint().Upsert())
	assert.Equal(t, fp, again[0].String(KeyFingerprint, ""))
	assert.Equal(t, out[0].Content(), again[0].Content())
	assert.True(t, strings.HasPrefix(again[0].Content(), "---\n"))
}

func TestLinks(t *testing.T) {
	src := "See [setup](guides/setup.md), [site](https://example.com) and ![logo](img/logo.png).\n\n" +
		"`[skip](code.md)`\n"
	out := run(t, nil, docs(src), NewLinks())
	links, err := out[0].Metadata().GetStringSlice(KeyLinks)
	require.NoError(t, err)
	assert.Equal(t, []string{"guides/setup.md", "https://example.com", "img/logo.png"}, links)

	out = run(t, nil, docs(src), NewLinks().InternalOnly().WithKey("Refs"))
	refs, err := out[0].Metadata().GetStringSlice("Refs")
	require.NoError(t, err)
	assert.Equal(t, []string{"guides/setup.md", "img/logo.png"}, refs)
}
