package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyDocument is returned when a capture has no body to traverse.
var ErrEmptyDocument = errors.New("dom: document has no body")

// Options control a snapshot build.
type Options struct {
	// HighlightElements draws the index overlay into the page.
	HighlightElements bool `yaml:"highlight_elements"`

	// FocusHighlightIndex is drawn in FocusColor when set.
	FocusHighlightIndex *int `yaml:"focus_highlight_index"`

	// ViewportExpansion inflates the viewport by this many pixels on every
	// side for the visibility test. Negative disables the test.
	ViewportExpansion int `yaml:"viewport_expansion"`

	// IncludeDynamicAttributes allows data-* test ids in synthesized selectors.
	IncludeDynamicAttributes bool `yaml:"include_dynamic_attributes"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		HighlightElements:        true,
		ViewportExpansion:        DefaultViewportExpansion,
		IncludeDynamicAttributes: true,
	}
}

// indexCounters are the two independent index spaces of one traversal.
// highlight counts visible interactive elements; element counts every
// indexed node.
type indexCounters struct {
	highlight int
	element   int
}

func (c *indexCounters) nextHighlight() *int {
	v := c.highlight
	c.highlight++
	return &v
}

func (c *indexCounters) nextElement() *int {
	v := c.element
	c.element++
	return &v
}

// treeBuilder holds the output of one traversal.
type treeBuilder struct {
	opts  Options
	snap  *Snapshot
	marks []HighlightMark
}

// BuildSnapshot captures src and indexes it. The traversal is pre-order
// from the document body; nested frames are descended into at their
// frame element.
func BuildSnapshot(ctx context.Context, src Source, opts Options) (*Snapshot, error) {
	hl, canHighlight := src.(Highlighter)
	if canHighlight {
		// The overlay is cosmetic; a failure to clear it must not cost the snapshot.
		_ = hl.ClearHighlights(ctx)
	}

	doc, err := src.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: capture: %w", err)
	}
	snap, marks, err := buildFromRaw(doc, opts)
	if err != nil {
		return nil, err
	}

	if canHighlight && opts.HighlightElements && len(marks) > 0 {
		_ = hl.Highlight(ctx, marks)
	}
	return snap, nil
}

// BuildFromRaw indexes an already captured document.
func BuildFromRaw(doc *RawDocument, opts Options) (*Snapshot, error) {
	snap, _, err := buildFromRaw(doc, opts)
	return snap, err
}

func buildFromRaw(doc *RawDocument, opts Options) (*Snapshot, []HighlightMark, error) {
	if doc == nil || doc.Body == nil {
		return nil, nil, ErrEmptyDocument
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, nil, fmt.Errorf("dom: snapshot id: %w", err)
	}

	b := &treeBuilder{
		opts: opts,
		snap: &Snapshot{
			ID:          id.String(),
			CapturedAt:  time.Now(),
			URL:         doc.URL,
			Title:       doc.Title,
			Viewport:    doc.Viewport,
			SelectorMap: make(SelectorMap),
			ElementMap:  make(ElementMap),
		},
	}

	counters := &indexCounters{}
	b.snap.Root = b.visitElement(documentRoot(doc.Body), NoParent, doc.Viewport, 0, 0, counters)
	return b.snap, b.marks, nil
}

// visitElement records pn and its subtree. dx, dy translate the current
// document's coordinates into the top-level viewport. An element takes an
// element index exactly when it takes a highlight index; text children
// then take the following element indexes.
func (b *treeBuilder) visitElement(pn *rawPathNode, parent NodeID, vp Viewport, dx, dy float64, c *indexCounters) NodeID {
	raw := pn.raw
	node := &Node{
		ID:           NodeID(len(b.snap.Nodes)),
		Parent:       parent,
		Kind:         ElementNode,
		TagName:      strings.ToLower(raw.Tag),
		XPath:        structuralPath(pn),
		Attributes:   append([]Attribute(nil), raw.Attrs...),
		IsTopElement: raw.Top,
		IsShadowRoot: raw.ShadowRoot,
		Text:         ExtractText(raw),
	}
	if node.TagName == "" {
		node.TagName = "unknown"
	}
	node.IsVisible = IsVisible(raw, vp, b.opts.ViewportExpansion)
	node.IsInViewport = IsInViewport(raw, vp)
	node.IsInteractive = IsInteractive(raw)
	if raw.Box != nil {
		node.BoundingBox = raw.Box.Offset(dx, dy)
	}
	b.snap.Nodes = append(b.snap.Nodes, node)

	if node.IsVisible && node.IsInteractive {
		node.HighlightIndex = c.nextHighlight()
		b.snap.SelectorMap[*node.HighlightIndex] = node.ID
		b.mark(node)
	}
	if node.HighlightIndex != nil {
		node.ElementIndex = c.nextElement()
		b.snap.ElementMap[*node.ElementIndex] = node.ID
	}

	if node.IsFrame() {
		if raw.Frame != nil && raw.Frame.Body != nil {
			fx, fy := dx, dy
			if raw.Box != nil {
				fx += raw.Box.X
				fy += raw.Box.Y
			}
			child := b.visitElement(documentRoot(raw.Frame.Body), node.ID, raw.Frame.Viewport, fx, fy, c)
			node.Children = append(node.Children, child)
		}
		return node.ID
	}

	elems := childPathNodes(pn, raw.Children)
	for _, ch := range raw.Children {
		if ch == nil {
			continue
		}
		if ch.Text {
			if id, ok := b.visitText(ch, node, c); ok {
				node.Children = append(node.Children, id)
			}
			continue
		}
		if shouldSkip(ch) {
			continue
		}
		node.Children = append(node.Children, b.visitElement(elems[ch], node.ID, vp, dx, dy, c))
	}
	return node.ID
}

// visitText records a non-empty text run. It takes an element index only
// when its parent element holds one.
func (b *treeBuilder) visitText(raw *RawNode, parent *Node, c *indexCounters) (NodeID, bool) {
	text := strings.TrimSpace(raw.Value)
	if text == "" {
		return 0, false
	}
	node := &Node{
		ID:        NodeID(len(b.snap.Nodes)),
		Parent:    parent.ID,
		Kind:      TextNode,
		Text:      text,
		IsVisible: parent.IsVisible,
	}
	b.snap.Nodes = append(b.snap.Nodes, node)

	if parent.ElementIndex != nil {
		node.ElementIndex = c.nextElement()
		b.snap.ElementMap[*node.ElementIndex] = node.ID
	}
	return node.ID, true
}

func (b *treeBuilder) mark(n *Node) {
	if !b.opts.HighlightElements {
		return
	}
	focused := b.opts.FocusHighlightIndex != nil && *b.opts.FocusHighlightIndex == *n.HighlightIndex
	b.marks = append(b.marks, HighlightMark{
		Index:   *n.HighlightIndex,
		Box:     n.BoundingBox,
		Color:   HighlightColor(*n.HighlightIndex, focused),
		Focused: focused,
	})
}
