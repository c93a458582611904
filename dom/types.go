// Package dom snapshots a live document into an indexed tree of element
// descriptors and relocates previously indexed elements afterwards.
package dom

import (
	"time"
)

// NodeID addresses a node inside the arena of a single Snapshot.
type NodeID int

// NoParent is the parent id of the snapshot root.
const NoParent NodeID = -1

// NodeKind distinguishes element descriptors from text descriptors.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
)

// Attribute is a single name/value pair copied from a live element.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BoundingBox is an element rectangle in CSS pixels relative to its document viewport.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether the box has no area.
func (b BoundingBox) IsEmpty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Intersects reports whether b overlaps r.
func (b BoundingBox) Intersects(r BoundingBox) bool {
	return b.X < r.X+r.Width && b.X+b.Width > r.X &&
		b.Y < r.Y+r.Height && b.Y+b.Height > r.Y
}

// Offset returns b translated by dx, dy.
func (b BoundingBox) Offset(dx, dy float64) BoundingBox {
	b.X += dx
	b.Y += dy
	return b
}

// Viewport is the visible area of a document.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns the viewport rectangle inflated by margin pixels on every side.
func (v Viewport) Rect(margin float64) BoundingBox {
	return BoundingBox{
		X:      -margin,
		Y:      -margin,
		Width:  v.Width + 2*margin,
		Height: v.Height + 2*margin,
	}
}

// Node is one element or text run observed at snapshot time. Every field
// is a copy; nothing refers back into the live document.
type Node struct {
	ID     NodeID   `json:"id"`
	Parent NodeID   `json:"parent"`
	Kind   NodeKind `json:"kind"`

	TagName    string      `json:"tagName,omitempty"`
	XPath      string      `json:"xpath,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Children   []NodeID    `json:"children,omitempty"`

	IsVisible     bool `json:"isVisible"`
	IsInteractive bool `json:"isInteractive"`
	IsTopElement  bool `json:"isTopElement"`
	IsInViewport  bool `json:"isInViewport"`
	IsShadowRoot  bool `json:"isShadowRoot"`

	HighlightIndex *int `json:"highlightIndex"`
	ElementIndex   *int `json:"elementIndex"`

	// Text is the trimmed direct text of an element, or the run of a text node.
	Text string `json:"text,omitempty"`

	// BoundingBox is relative to the top-level viewport.
	BoundingBox BoundingBox `json:"boundingBox"`
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// IsFrame reports whether the node is an embedded-frame element.
func (n *Node) IsFrame() bool {
	return n.Kind == ElementNode && frameTags[n.TagName]
}

var frameTags = map[string]bool{"iframe": true, "frame": true}

// SelectorMap maps highlight indices to interactive nodes.
type SelectorMap map[int]NodeID

// ElementMap maps element indices to every indexed node.
type ElementMap map[int]NodeID

// Snapshot is the result of one traversal of a live document. It is
// ephemeral: indices are only meaningful against the snapshot that
// produced them.
type Snapshot struct {
	ID         string    `json:"id"`
	CapturedAt time.Time `json:"capturedAt"`
	URL        string    `json:"url,omitempty"`
	Title      string    `json:"title,omitempty"`
	Viewport   Viewport  `json:"viewport"`

	Root        NodeID      `json:"root"`
	Nodes       []*Node     `json:"nodes"`
	SelectorMap SelectorMap `json:"selectorMap"`
	ElementMap  ElementMap  `json:"elementMap"`
}

// Node returns the node with the given id, or nil.
func (s *Snapshot) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(s.Nodes) {
		return nil
	}
	return s.Nodes[id]
}

// RootNode returns the snapshot root.
func (s *Snapshot) RootNode() *Node {
	return s.Node(s.Root)
}

// ByHighlightIndex returns the interactive node with the given highlight index.
func (s *Snapshot) ByHighlightIndex(index int) (*Node, bool) {
	id, ok := s.SelectorMap[index]
	if !ok {
		return nil, false
	}
	return s.Node(id), true
}

// ByElementIndex returns the indexed node with the given element index.
func (s *Snapshot) ByElementIndex(index int) (*Node, bool) {
	id, ok := s.ElementMap[index]
	if !ok {
		return nil, false
	}
	return s.Node(id), true
}

// Ancestors returns the chain from the root down to id, inclusive.
func (s *Snapshot) Ancestors(id NodeID) []*Node {
	var chain []*Node
	for n := s.Node(id); n != nil; n = s.Node(n.Parent) {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Len returns the number of interactive nodes.
func (s *Snapshot) Len() int {
	return len(s.SelectorMap)
}

// RawDocument is the uninterpreted capture of one document or frame.
type RawDocument struct {
	URL      string   `json:"url,omitempty"`
	Title    string   `json:"title,omitempty"`
	Viewport Viewport `json:"viewport"`
	Body     *RawNode `json:"body"`
}

// RawNode is the per-node data read from a live document. Box is nil when
// geometry could not be read.
type RawNode struct {
	Text       bool         `json:"text,omitempty"`
	Tag        string       `json:"tag,omitempty"`
	Attrs      []Attribute  `json:"attrs,omitempty"`
	Value      string       `json:"value,omitempty"`
	Box        *BoundingBox `json:"box,omitempty"`
	Display    string       `json:"display,omitempty"`
	Visibility string       `json:"visibility,omitempty"`
	Top        bool         `json:"top,omitempty"`
	ShadowRoot bool         `json:"shadowRoot,omitempty"`
	Children   []*RawNode   `json:"children,omitempty"`

	// InShadowRoot reports a child of its parent's shadow root rather
	// than a light child.
	InShadowRoot bool `json:"inShadowRoot,omitempty"`

	// Frame is the embedded document of an iframe or frame element.
	Frame *RawDocument `json:"frame,omitempty"`
}

// Attr returns the value of the named attribute.
func (r *RawNode) Attr(name string) (string, bool) {
	for _, a := range r.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
