package dom

import (
	"context"
)

// Source captures the raw DOM of a live document. Each call reads the
// current state; implementations descend into reachable frames and fill
// RawNode.Frame for them.
type Source interface {
	Capture(ctx context.Context) (*RawDocument, error)
}

// Highlighter is implemented by sources that can draw the index overlay
// into the live page. The overlay subtree is shared per document, so
// builds against the same page must not run concurrently.
type Highlighter interface {
	ClearHighlights(ctx context.Context) error
	Highlight(ctx context.Context, marks []HighlightMark) error
}

// HighlightMark is one overlay box with its numeric label.
type HighlightMark struct {
	Index   int         `json:"index"`
	Box     BoundingBox `json:"box"`
	Color   string      `json:"color"`
	Focused bool        `json:"focused"`
}

// SearchContext is a document or frame scope in which selectors resolve.
type SearchContext interface {
	// Query returns the first element matching selector, or nil when
	// nothing matches.
	Query(ctx context.Context, selector string) (Handle, error)

	// Frame switches into the embedded document of the frame element
	// matched by selector.
	Frame(ctx context.Context, selector string) (SearchContext, error)
}

// LocatorContext is a SearchContext that resolves selectors through
// nested-frame-aware locators instead of direct queries.
type LocatorContext interface {
	SearchContext

	// Locate returns a handle for the first match, or nil when nothing matches.
	Locate(ctx context.Context, selector string) (Handle, error)
}

// Handle is a live element reference valid in the context that produced it.
type Handle interface {
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error

	// Evaluate runs fn, a JavaScript function taking the element as its
	// only argument.
	Evaluate(ctx context.Context, fn string) error
}
