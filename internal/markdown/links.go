package markdown

import (
	"net/url"
	"strings"
)

// LinkKind classifies a link-like construct.
type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
)

// Link is one destination found in a Markdown body.
type Link struct {
	Kind        LinkKind
	Destination string
}

// Internal reports whether the link points inside the site: no scheme, no
// host, and not a pure fragment.
func (l Link) Internal() bool {
	dest := strings.TrimSpace(l.Destination)
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "//") {
		return false
	}
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
