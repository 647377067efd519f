package modules

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitepipe/internal/cache"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/frontmatter"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// FrontMatter moves YAML front matter into metadata and strips it from the
// content. Documents without front matter pass through unchanged.
type FrontMatter struct {
	delimiter string
}

// NewFrontMatter uses the "---" delimiter.
func NewFrontMatter() *FrontMatter {
	return &FrontMatter{delimiter: frontmatter.DefaultDelimiter}
}

// WithDelimiter changes the delimiter line.
func (f *FrontMatter) WithDelimiter(d string) *FrontMatter {
	f.delimiter = d
	return f
}

func (f *FrontMatter) Name() string { return "FrontMatter" }

func (f *FrontMatter) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		content := doc.Bytes()
		if err := doc.Err(); err != nil {
			return nil, err
		}
		block, err := frontmatter.Split(content, f.delimiter)
		if err != nil {
			return nil, err
		}
		if !block.Found {
			return doc, nil
		}
		fields, err := block.Fields()
		if err != nil {
			return nil, fmt.Errorf("parse front matter: %w", err)
		}
		return ec.GetDocument(doc, document.WithBytes(block.Body), document.WithMetadata(fields)), nil
	})(ctx, inputs, ec)
}

// Markdown renders content as HTML with GitHub Flavored Markdown. Rendered
// output is cached by content fingerprint.
type Markdown struct {
	md     goldmark.Markdown
	unsafe bool
}

// NewMarkdown creates a renderer that escapes raw HTML.
func NewMarkdown() *Markdown {
	return (&Markdown{}).build()
}

// AllowHTML passes raw HTML in the source through to the output.
func (m *Markdown) AllowHTML() *Markdown {
	m.unsafe = true
	return m.build()
}

func (m *Markdown) build() *Markdown {
	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if m.unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}
	m.md = goldmark.New(rendererOpts...)
	return m
}

func (m *Markdown) Name() string { return "Markdown" }

func (m *Markdown) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		rendered, err := cache.GetOrCompute(ec.Cache(), doc, "markdown", func() (string, error) {
			src := doc.Bytes()
			if err := doc.Err(); err != nil {
				return "", err
			}
			var buf bytes.Buffer
			if err := m.md.Convert(src, &buf); err != nil {
				return "", fmt.Errorf("render markdown: %w", err)
			}
			return buf.String(), nil
		})
		if err != nil {
			return nil, err
		}
		return ec.GetDocument(doc, document.WithContent(rendered)), nil
	})(ctx, inputs, ec)
}

// Excerpt stores the outer HTML of the first matching element of the
// document's HTML content under KeyExcerpt.
type Excerpt struct {
	tag atom.Atom
	key string
}

// NewExcerpt extracts the first paragraph.
func NewExcerpt() *Excerpt {
	return &Excerpt{tag: atom.P, key: KeyExcerpt}
}

// WithTag selects a different element, e.g. "div".
func (e *Excerpt) WithTag(tag string) *Excerpt {
	if a := atom.Lookup([]byte(strings.ToLower(tag))); a != 0 {
		e.tag = a
	}
	return e
}

// WithKey changes the metadata key.
func (e *Excerpt) WithKey(key string) *Excerpt {
	e.key = key
	return e
}

func (e *Excerpt) Name() string { return "Excerpt" }

func (e *Excerpt) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		excerpt, err := firstElement(doc.Content(), e.tag)
		if err != nil {
			return nil, err
		}
		if excerpt == "" {
			return doc, nil
		}
		return ec.GetDocument(doc, document.WithValue(e.key, excerpt)), nil
	})(ctx, inputs, ec)
}

func firstElement(content string, tag atom.Atom) (string, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if found == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, found); err != nil {
		return "", fmt.Errorf("render excerpt: %w", err)
	}
	return buf.String(), nil
}

// Title sets KeyTitle from the source file name when the document has no
// title yet: "getting-started.md" becomes "Getting Started".
type Title struct {
	key    string
	always bool
}

// NewTitle derives titles in English title case.
func NewTitle() *Title {
	return &Title{key: KeyTitle}
}

// WithKey changes the metadata key.
func (t *Title) WithKey(key string) *Title {
	t.key = key
	return t
}

// Overwrite replaces existing titles as well.
func (t *Title) Overwrite() *Title {
	t.always = true
	return t
}

func (t *Title) Name() string { return "Title" }

func (t *Title) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		if !t.always && doc.String(t.key, "") != "" {
			return doc, nil
		}
		base := doc.String(KeySourceFileBase, "")
		if base == "" && doc.Source() != "" {
			name := path.Base(doc.Source())
			base = strings.TrimSuffix(name, path.Ext(name))
		}
		if base == "" {
			return doc, nil
		}
		words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(base))
		if len(words) == 0 {
			return doc, nil
		}
		// A Caser is stateful and not safe for concurrent use.
		caser := cases.Title(language.English)
		return ec.GetDocument(doc, document.WithValue(t.key, caser.String(strings.Join(words, " ")))), nil
	})(ctx, inputs, ec)
}

// fingerprintExcluded lists front matter fields that do not contribute to
// the content fingerprint.
var fingerprintExcluded = []string{mdfp.FingerprintField, "lastmod", "uid", "aliases"}

// Fingerprint computes a canonical fingerprint of Markdown content from its
// front matter and body and stores it under KeyFingerprint. Front matter is
// canonicalized by sorting keys and dropping volatile fields, so reordering
// front matter does not change the fingerprint. With Upsert the fingerprint
// is also written back into the front matter.
type Fingerprint struct {
	upsert bool
}

// NewFingerprint computes fingerprints without touching content.
func NewFingerprint() *Fingerprint {
	return &Fingerprint{}
}

// Upsert writes the fingerprint into the document's front matter.
func (f *Fingerprint) Upsert() *Fingerprint {
	f.upsert = true
	return f
}

func (f *Fingerprint) Name() string { return "Fingerprint" }

func (f *Fingerprint) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		content := doc.Bytes()
		if err := doc.Err(); err != nil {
			return nil, err
		}
		block, err := frontmatter.Split(content, "")
		if err != nil {
			return nil, err
		}
		fields, err := block.Fields()
		if err != nil {
			return nil, fmt.Errorf("parse front matter: %w", err)
		}
		fp, err := canonicalFingerprint(fields, block.Body)
		if err != nil {
			return nil, err
		}

		opts := []document.CloneOption{document.WithValue(KeyFingerprint, fp)}
		if f.upsert {
			if existing, _ := fields[mdfp.FingerprintField].(string); existing != fp {
				updated := maps.Clone(fields)
				updated[mdfp.FingerprintField] = fp
				raw, err := frontmatter.Serialize(updated, block.Newline)
				if err != nil {
					return nil, err
				}
				opts = append(opts, document.WithBytes(frontmatter.Join(raw, block.Body, true, "", block.Newline)))
			}
		}
		return ec.GetDocument(doc, opts...), nil
	})(ctx, inputs, ec)
}

func canonicalFingerprint(fields map[string]any, body []byte) (string, error) {
	hashed := maps.Clone(fields)
	for _, k := range fingerprintExcluded {
		delete(hashed, k)
	}
	fm := ""
	if len(hashed) > 0 {
		raw, err := frontmatter.Serialize(hashed, "\n")
		if err != nil {
			return "", err
		}
		fm = strings.TrimSuffix(string(raw), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}
