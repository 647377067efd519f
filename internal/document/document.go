package document

import (
	"fmt"
	"io"
	"sync/atomic"

	"git.home.luguber.info/inful/sitepipe/internal/metadata"
)

var nextID atomic.Uint64

// Document is an immutable unit of content plus metadata flowing through a
// pipeline. Content and stream views are interconvertible and materialize
// lazily, at most once.
//
// A document built from an io.ReadCloser owns it. Cloning without replacing
// the content transfers ownership to the clone; Close releases the stream only
// on the current owner, exactly once.
type Document struct {
	id     uint64
	source string
	md     *metadata.Metadata
	body   *body
	owns   atomic.Bool
}

func newDocument(source string, md *metadata.Metadata, b *body) *Document {
	if md == nil {
		md = metadata.Empty()
	}
	d := &Document{
		id:     nextID.Add(1),
		source: source,
		md:     md,
		body:   b,
	}
	d.owns.Store(b.ownsResource())
	return d
}

// New creates a document from text content.
func New(source, content string, md *metadata.Metadata) *Document {
	return newDocument(source, md, textBody(content))
}

// NewFromBytes creates a document from raw bytes. The slice must not be
// modified afterwards.
func NewFromBytes(source string, data []byte, md *metadata.Metadata) *Document {
	return newDocument(source, md, bytesBody(data))
}

// NewFromStream creates a document that owns rc.
func NewFromStream(source string, rc io.ReadCloser, md *metadata.Metadata) *Document {
	return newDocument(source, md, streamBody(rc))
}

// NewFromOpener creates a document whose content is read through open on
// first access.
func NewFromOpener(source string, open Opener, md *metadata.Metadata) *Document {
	return newDocument(source, md, openerBody(open))
}

// ID is a process-unique identity. Clones always get a new ID.
func (d *Document) ID() uint64 { return d.id }

// Source is the stable identifier used for caching and diagnostics.
func (d *Document) Source() string { return d.source }

// Metadata returns the document's metadata.
func (d *Document) Metadata() *metadata.Metadata { return d.md }

// Content returns the text content, materializing the stream if needed. It
// returns "" when the stream failed; see Err.
func (d *Document) Content() string { return d.body.string() }

// Bytes returns the content bytes. Callers must not modify the slice.
func (d *Document) Bytes() []byte {
	data, _ := d.body.bytes()
	return data
}

// Stream returns a fresh reader over the content. Closing it is optional.
func (d *Document) Stream() io.ReadCloser { return d.body.reader() }

// Err reports a failure to materialize the content stream.
func (d *Document) Err() error {
	_, _ = d.body.bytes()
	return d.body.error()
}

// Fingerprint returns a hex content hash used to detect changes between builds.
func (d *Document) Fingerprint() string { return d.body.fingerprint() }

// OwnsStream reports whether Close would release an underlying stream.
func (d *Document) OwnsStream() bool { return d.owns.Load() }

// Close releases an owned, unread stream. It is safe to call more than once
// and is a no-op on documents that gave up ownership.
func (d *Document) Close() error {
	if !d.owns.Swap(false) {
		return nil
	}
	return d.body.release()
}

// Get returns the resolved metadata value for key, or def.
func (d *Document) Get(key string, def any) any { return d.md.Get(key, def) }

// TryGetValue returns the resolved metadata value for key.
func (d *Document) TryGetValue(key string) (any, bool) { return d.md.TryGetValue(key) }

// ContainsKey reports whether key exists in the document's metadata.
func (d *Document) ContainsKey(key string) bool { return d.md.ContainsKey(key) }

// String returns key as a string, or def when missing or unconvertible.
func (d *Document) String(key, def string) string { return d.md.StringOr(key, def) }

// GoString helps test failure output.
func (d *Document) GoString() string {
	return fmt.Sprintf("Document{id:%d source:%q keys:%v}", d.id, d.source, d.md.Keys())
}
