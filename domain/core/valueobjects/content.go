package valueobjects

import (
	"strings"
	"unicode/utf8"

	pkgerrors "papertree/pkg/errors"
)

// ContentType is the render hint for a node's payload.
type ContentType string

const (
	ContentPlain    ContentType = "plain"
	ContentMarkdown ContentType = "markdown"
	ContentLaTeX    ContentType = "latex"
	ContentDiagram  ContentType = "diagram"
	ContentCode     ContentType = "code"
	ContentMixed    ContentType = "mixed"
)

// NodeContent is a value object pairing a node's payload with its render hint.
// The body may be empty: page-summary nodes exist before their summary arrives.
type NodeContent struct {
	body        string
	contentType ContentType
}

// NewNodeContent creates content with validation.
func NewNodeContent(body string, contentType ContentType) (NodeContent, error) {
	if !isValidContentType(contentType) {
		return NodeContent{}, pkgerrors.NewValidationError("invalid content type")
	}
	return NodeContent{body: body, contentType: contentType}, nil
}

// MarkdownContent is a shorthand for markdown content.
func MarkdownContent(body string) NodeContent {
	return NodeContent{body: body, contentType: ContentMarkdown}
}

// PlainContent is a shorthand for plain-text content.
func PlainContent(body string) NodeContent {
	return NodeContent{body: body, contentType: ContentPlain}
}

// Body returns the content payload
func (c NodeContent) Body() string {
	return c.body
}

// Type returns the content's render hint
func (c NodeContent) Type() ContentType {
	return c.contentType
}

// IsEmpty checks if the payload is empty
func (c NodeContent) IsEmpty() bool {
	return c.body == ""
}

// Equals checks if two contents are equal
func (c NodeContent) Equals(other NodeContent) bool {
	return c.body == other.body && c.contentType == other.contentType
}

// WithBody returns a copy of the content with a replaced payload.
func (c NodeContent) WithBody(body string) NodeContent {
	return NodeContent{body: body, contentType: c.contentType}
}

// Summary returns the payload flattened to one line and truncated to
// maxLength runes, with a trailing ellipsis when cut.
func (c NodeContent) Summary(maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	flat := strings.TrimSpace(strings.Join(strings.Fields(c.body), " "))
	if utf8.RuneCountInString(flat) <= maxLength {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:maxLength]) + "…"
}

func isValidContentType(t ContentType) bool {
	switch t {
	case ContentPlain, ContentMarkdown, ContentLaTeX, ContentDiagram, ContentCode, ContentMixed:
		return true
	default:
		return false
	}
}
