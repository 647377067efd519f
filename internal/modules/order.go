package modules

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// OrderBy stable-sorts documents by a metadata value. Documents missing the
// key sort last in either direction.
type OrderBy struct {
	key        string
	descending bool
	then       *OrderBy
}

// NewOrderBy sorts ascending by key.
func NewOrderBy(key string) *OrderBy {
	return &OrderBy{key: key}
}

// Descending reverses the order of the most recently added key.
func (o *OrderBy) Descending() *OrderBy {
	last := o
	for last.then != nil {
		last = last.then
	}
	last.descending = true
	return o
}

// ThenBy adds a tie-breaking key.
func (o *OrderBy) ThenBy(key string) *OrderBy {
	last := o
	for last.then != nil {
		last = last.then
	}
	last.then = &OrderBy{key: key}
	return o
}

func (o *OrderBy) Name() string { return "OrderBy" }

func (o *OrderBy) Execute(_ context.Context, inputs []*document.Document, _ pipeline.Context) ([]*document.Document, error) {
	out := slices.Clone(inputs)
	slices.SortStableFunc(out, o.compare)
	return out, nil
}

func (o *OrderBy) compare(a, b *document.Document) int {
	for k := o; k != nil; k = k.then {
		av, aok := a.TryGetValue(k.key)
		bv, bok := b.TryGetValue(k.key)
		var c int
		switch {
		case !aok && !bok:
			c = 0
		case !aok:
			return 1
		case !bok:
			return -1
		default:
			c = compareValues(av, bv)
			if k.descending {
				c = -c
			}
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// compareValues orders times chronologically, numbers numerically and
// everything else as case-insensitive text.
func compareValues(a, b any) int {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if isNumber(a) && isNumber(b) {
		return cmp.Compare(cast.ToFloat64(a), cast.ToFloat64(b))
	}
	return cmp.Compare(strings.ToLower(cast.ToString(a)), strings.ToLower(cast.ToString(b)))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// Index sets a 1-based position key in input order.
type Index struct {
	key   string
	start int
}

// NewIndex numbers documents starting at 1 under KeyIndex.
func NewIndex() *Index {
	return &Index{key: KeyIndex, start: 1}
}

// WithKey changes the metadata key.
func (i *Index) WithKey(key string) *Index {
	i.key = key
	return i
}

// StartAt changes the first number.
func (i *Index) StartAt(n int) *Index {
	i.start = n
	return i
}

func (i *Index) Name() string { return "Index" }

func (i *Index) Execute(_ context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	out := make([]*document.Document, len(inputs))
	for n, doc := range inputs {
		out[n] = ec.GetDocument(doc, document.WithValue(i.key, i.start+n))
	}
	return out, nil
}

// Paginate groups inputs into page documents of at most size items. Each page
// carries its items under KeyPageDocuments together with navigation keys.
type Paginate struct {
	size   int
	source func(page int) string
}

// NewPaginate creates pages of size items.
func NewPaginate(size int) *Paginate {
	return &Paginate{size: size}
}

// WithSource names each page's source; page numbers start at 1.
func (p *Paginate) WithSource(fn func(page int) string) *Paginate {
	p.source = fn
	return p
}

func (p *Paginate) Name() string { return "Paginate" }

func (p *Paginate) Execute(_ context.Context, inputs []*document.Document, ec pipeline.Context) ([]*document.Document, error) {
	if p.size <= 0 {
		return nil, errors.ConfigError("page size must be positive").
			WithContext("size", p.size).
			Build()
	}
	chunks := slices.Collect(slices.Chunk(inputs, p.size))
	total := len(chunks)
	pages := make([]*document.Document, 0, total)
	for i, chunk := range chunks {
		page := i + 1
		opts := []document.CloneOption{
			document.WithValue(KeyPageDocuments, slices.Clip(chunk)),
			document.WithValue(KeyCurrentPage, page),
			document.WithValue(KeyTotalPages, total),
			document.WithValue(KeyTotalItems, len(inputs)),
			document.WithValue(KeyHasNextPage, page < total),
			document.WithValue(KeyHasPreviousPage, page > 1),
		}
		if p.source != nil {
			opts = append(opts, document.WithSource(p.source(page)))
		}
		pages = append(pages, ec.GetDocument(nil, opts...))
	}
	return pages, nil
}
