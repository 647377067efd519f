package document

import (
	"io"
	"sort"

	"git.home.luguber.info/inful/sitepipe/internal/metadata"
)

type cloneConfig struct {
	source    *string
	body      *body
	overrides []metadata.KV
	base      *metadata.Metadata
}

// CloneOption customizes Clone.
type CloneOption func(*cloneConfig)

// WithSource replaces the source identifier.
func WithSource(source string) CloneOption {
	return func(c *cloneConfig) { c.source = &source }
}

// WithContent replaces the content with text.
func WithContent(content string) CloneOption {
	return func(c *cloneConfig) { c.body = textBody(content) }
}

// WithBytes replaces the content with raw bytes.
func WithBytes(data []byte) CloneOption {
	return func(c *cloneConfig) { c.body = bytesBody(data) }
}

// WithStream replaces the content with rc; the clone owns it.
func WithStream(rc io.ReadCloser) CloneOption {
	return func(c *cloneConfig) { c.body = streamBody(rc) }
}

// WithOpener replaces the content with a lazily opened stream.
func WithOpener(open Opener) CloneOption {
	return func(c *cloneConfig) { c.body = openerBody(open) }
}

// WithMetadata adds metadata overrides. New keys are ordered lexically.
func WithMetadata(overrides map[string]any) CloneOption {
	return func(c *cloneConfig) {
		if len(overrides) == 0 {
			return
		}
		c.overrides = append(c.overrides, sortedPairs(overrides)...)
	}
}

// WithValue adds a single metadata override, preserving call order.
func WithValue(key string, value any) CloneOption {
	return func(c *cloneConfig) {
		c.overrides = append(c.overrides, metadata.KV{Key: key, Value: value})
	}
}

// WithBaseMetadata replaces the metadata the overrides are layered on.
func WithBaseMetadata(md *metadata.Metadata) CloneOption {
	return func(c *cloneConfig) { c.base = md }
}

func sortedPairs(m map[string]any) []metadata.KV {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]metadata.KV, len(keys))
	for i, k := range keys {
		pairs[i] = metadata.KV{Key: k, Value: m[k]}
	}
	return pairs
}

// Clone returns a new document. Omitted options retain the parent's values and
// metadata keys not overridden are shared by reference. When the content is
// not replaced, ownership of an owned stream moves to the clone.
func (d *Document) Clone(opts ...CloneOption) *Document {
	var cfg cloneConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	source := d.source
	if cfg.source != nil {
		source = *cfg.source
	}
	md := d.md
	if cfg.base != nil {
		md = cfg.base
	}
	md = md.CloneWith(cfg.overrides...)

	if cfg.body != nil {
		return newDocument(source, md, cfg.body)
	}

	clone := &Document{
		id:     nextID.Add(1),
		source: source,
		md:     md,
		body:   d.body,
	}
	if d.owns.Swap(false) {
		clone.owns.Store(true)
	}
	return clone
}
