package types

import "strings"

// Kind classifies raw document text.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

// ParseKind maps a host-supplied kind (case-insensitive) to a Kind. Anything
// other than html is treated as markdown, matching how hosts label files.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "htm", "text/html":
		return KindHTML
	default:
		return KindMarkdown
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindMarkdown || k == KindHTML
}

func (k Kind) String() string { return string(k) }

// Document is raw text acquired from a document source together with the
// base-directory identifier used to resolve its relative references.
type Document struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
	BaseURI string `json:"baseUri"`
}
