// Package frontmatter splits delimited YAML front matter from document
// content and converts it to and from metadata maps.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// DefaultDelimiter opens and closes a YAML front matter block.
const DefaultDelimiter = "---"

// ErrUnterminated is returned when content opens a front matter block that is
// never closed.
var ErrUnterminated = errors.New("front matter opening delimiter without closing delimiter")

// Block is content split into front matter and body.
type Block struct {
	// Raw is the text between the delimiters, without them.
	Raw []byte
	// Body is everything after the closing delimiter line.
	Body []byte
	// Found reports whether the content started with a front matter block.
	Found bool
	// Newline is the line ending detected in the content.
	Newline string
}

// Split separates front matter delimited by delimiter lines from the body.
// Content that does not start with the delimiter has no front matter and is
// returned entirely as Body. An empty delimiter selects DefaultDelimiter.
func Split(content []byte, delimiter string) (Block, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	nl := newline(content)
	b := Block{Body: content, Newline: nl}

	open := []byte(delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return b, nil
	}
	rest := content[len(open):]

	// Block with nothing between the delimiters.
	if bytes.HasPrefix(rest, open) {
		return Block{Raw: []byte{}, Body: rest[len(open):], Found: true, Newline: nl}, nil
	}

	closing := []byte(nl + delimiter)
	offset := 0
	for {
		idx := bytes.Index(rest[offset:], closing)
		if idx < 0 {
			return Block{Body: content, Newline: nl}, ErrUnterminated
		}
		end := offset + idx
		after := rest[end+len(closing):]
		// The closing delimiter must occupy a whole line.
		switch {
		case len(after) == 0:
			return Block{Raw: rest[:end+len(nl)], Body: []byte{}, Found: true, Newline: nl}, nil
		case bytes.HasPrefix(after, []byte(nl)):
			return Block{Raw: rest[:end+len(nl)], Body: after[len(nl):], Found: true, Newline: nl}, nil
		}
		offset = end + len(closing)
	}
}

// Fields parses the block's YAML.
func (b Block) Fields() (map[string]any, error) {
	return Parse(b.Raw)
}

// Join reassembles front matter and body with the given delimiter. Without
// front matter the body is returned unchanged.
func Join(raw, body []byte, found bool, delimiter, nl string) []byte {
	if !found {
		return body
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if nl == "" {
		nl = "\n"
	}
	out := make([]byte, 0, 2*(len(delimiter)+len(nl))+len(raw)+len(body))
	out = append(out, delimiter...)
	out = append(out, nl...)
	out = append(out, raw...)
	out = append(out, delimiter...)
	out = append(out, nl...)
	out = append(out, body...)
	return out
}

// Parse decodes raw YAML front matter into a map. Empty input yields an empty
// map.
func Parse(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func newline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
