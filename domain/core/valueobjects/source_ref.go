package valueobjects

// SourceRef is a non-owning pointer back to a location in the document:
// a 0-indexed page and/or a highlight ID from the reading view. It is
// lookup-only data; nothing in the canvas validates or interprets it.
type SourceRef struct {
	page        int
	hasPage     bool
	highlightID string
}

// NewPageRef references a page without a highlight.
func NewPageRef(page int) SourceRef {
	return SourceRef{page: page, hasPage: true}
}

// NewHighlightRef references a highlight on a page.
func NewHighlightRef(page int, highlightID string) SourceRef {
	return SourceRef{page: page, hasPage: true, highlightID: highlightID}
}

// Page returns the referenced page and whether one is set.
func (r SourceRef) Page() (int, bool) {
	return r.page, r.hasPage
}

// HighlightID returns the referenced highlight ID, empty if none.
func (r SourceRef) HighlightID() string {
	return r.highlightID
}

// IsZero checks if the reference points at nothing.
func (r SourceRef) IsZero() bool {
	return !r.hasPage && r.highlightID == ""
}

// Equals checks if two references are equal
func (r SourceRef) Equals(other SourceRef) bool {
	return r == other
}
