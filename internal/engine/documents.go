package engine

import (
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// DocumentCollection is an immutable snapshot of completed pipeline outputs.
// The engine replaces the whole snapshot when a pipeline finishes, so readers
// never observe a partially published pipeline.
type DocumentCollection struct {
	order []string
	docs  map[string][]*document.Document
}

func emptyDocuments() *DocumentCollection {
	return &DocumentCollection{docs: map[string][]*document.Document{}}
}

// with returns a copy of c where pipeline name maps to docs.
func (c *DocumentCollection) with(name string, docs []*document.Document) *DocumentCollection {
	key := strings.ToLower(name)
	next := &DocumentCollection{
		order: slices.Clone(c.order),
		docs:  make(map[string][]*document.Document, len(c.docs)+1),
	}
	for k, v := range c.docs {
		next.docs[k] = v
	}
	if _, ok := next.docs[key]; !ok {
		next.order = append(next.order, name)
	}
	next.docs[key] = slices.Clip(slices.Clone(docs))
	return next
}

// ByPipeline returns the documents published by the named pipeline.
func (c *DocumentCollection) ByPipeline(name string) []*document.Document {
	return slices.Clone(c.docs[strings.ToLower(name)])
}

// ExceptPipeline returns the documents of every pipeline but name.
func (c *DocumentCollection) ExceptPipeline(name string) []*document.Document {
	var out []*document.Document
	for _, p := range c.order {
		if strings.EqualFold(p, name) {
			continue
		}
		out = append(out, c.docs[strings.ToLower(p)]...)
	}
	return out
}

// All returns every document in publication order.
func (c *DocumentCollection) All() []*document.Document {
	var out []*document.Document
	for _, p := range c.order {
		out = append(out, c.docs[strings.ToLower(p)]...)
	}
	return out
}

// Pipelines lists the pipelines with published documents.
func (c *DocumentCollection) Pipelines() []string {
	return slices.Clone(c.order)
}

// Len returns the total number of documents.
func (c *DocumentCollection) Len() int {
	n := 0
	for _, docs := range c.docs {
		n += len(docs)
	}
	return n
}

func (c *DocumentCollection) ids() map[uint64]struct{} {
	ids := make(map[uint64]struct{}, c.Len())
	for _, docs := range c.docs {
		for _, d := range docs {
			ids[d.ID()] = struct{}{}
		}
	}
	return ids
}
