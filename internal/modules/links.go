package modules

import (
	"context"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/markdown"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Links records the distinct link destinations of Markdown content as a
// []string. Place it before Markdown so the source is still Markdown.
type Links struct {
	key          string
	internalOnly bool
}

// NewLinks stores destinations under KeyLinks.
func NewLinks() *Links {
	return &Links{key: KeyLinks}
}

// WithKey changes the metadata key.
func (l *Links) WithKey(key string) *Links {
	l.key = key
	return l
}

// InternalOnly drops links with a scheme or host and pure fragments.
func (l *Links) InternalOnly() *Links {
	l.internalOnly = true
	return l
}

func (l *Links) Name() string { return "Links" }

func (l *Links) Execute(ctx context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	return pipeline.Map(func(_ context.Context, doc *document.Document, ec pipeline.Context) (*document.Document, error) {
		body := doc.Bytes()
		if err := doc.Err(); err != nil {
			return nil, err
		}
		dests := markdown.Destinations(markdown.ExtractLinks(body), l.internalOnly)
		return ec.GetDocument(doc, document.WithValue(l.key, dests)), nil
	})(ctx, inputs, ec)
}
