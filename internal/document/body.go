package document

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ErrReleased is returned when content is read after its underlying stream
// was released without having been materialized.
var ErrReleased = errors.New("document stream already released")

// Opener lazily opens a stream. It is called at most once.
type Opener func() (io.ReadCloser, error)

// body holds document content. It is shared by clones that do not replace the
// content and materializes at most once.
type body struct {
	mu       sync.Mutex
	loaded   bool
	fromText bool
	text     string
	data     []byte
	rc       io.ReadCloser
	open     Opener
	released bool
	err      error

	textOnce sync.Once
	fpOnce   sync.Once
	fp       string
}

func textBody(s string) *body {
	return &body{fromText: true, text: s}
}

func bytesBody(b []byte) *body {
	return &body{loaded: true, data: b}
}

func streamBody(rc io.ReadCloser) *body {
	return &body{rc: rc}
}

func openerBody(open Opener) *body {
	return &body{open: open}
}

// ownsResource reports whether the body wraps a stream that has to be closed.
func (b *body) ownsResource() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rc != nil
}

func (b *body) bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return b.data, b.err
	}
	b.loaded = true
	switch {
	case b.fromText:
		b.data = []byte(b.text)
	case b.released:
		b.err = ErrReleased
	case b.rc != nil:
		b.data, b.err = readAndClose(b.rc)
		b.rc = nil
		b.released = true
	case b.open != nil:
		rc, err := b.open()
		if err != nil {
			b.err = fmt.Errorf("open stream: %w", err)
			break
		}
		b.data, b.err = readAndClose(rc)
		b.released = true
	}
	if b.data == nil {
		b.data = []byte{}
	}
	return b.data, b.err
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return data, nil
}

func (b *body) string() string {
	if b.fromText {
		return b.text
	}
	b.textOnce.Do(func() {
		data, _ := b.bytes()
		b.text = string(data)
	})
	return b.text
}

func (b *body) reader() io.ReadCloser {
	data, _ := b.bytes()
	return io.NopCloser(bytes.NewReader(data))
}

func (b *body) fingerprint() string {
	b.fpOnce.Do(func() {
		data, _ := b.bytes()
		var sum [8]byte
		h := xxhash.Sum64(data)
		for i := range sum {
			sum[7-i] = byte(h >> (8 * i))
		}
		b.fp = hex.EncodeToString(sum[:])
	})
	return b.fp
}

func (b *body) error() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// release closes an unread stream. It is idempotent.
func (b *body) release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released || b.rc == nil {
		return nil
	}
	b.released = true
	rc := b.rc
	b.rc = nil
	return rc.Close()
}
