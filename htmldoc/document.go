// Package htmldoc models a static HTML page as a live document: it can be
// captured, queried with CSS selectors, entered through srcdoc frames and
// acted upon. Layout is synthetic, one row per rendered element.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/anxuanzi/bua-dom/dom"
)

// Default synthetic viewport.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Document is a parsed page. Highlights and events may be read
// concurrently; captures and actions must be serialized by the caller.
type Document struct {
	root     *html.Node
	url      string
	title    string
	viewport dom.Viewport

	mu       sync.Mutex
	frames   map[*html.Node]*Document
	shadow   map[*html.Node]*html.Node // host to its shadow root template
	marks    []dom.HighlightMark
	events   []Event
	recorder *Document // events of frames are recorded on the top document
}

// Option configures a Document.
type Option func(*Document)

// WithViewport sets the viewport size.
func WithViewport(width, height float64) Option {
	return func(d *Document) {
		d.viewport = dom.Viewport{Width: width, Height: height}
	}
}

// WithURL sets the document URL.
func WithURL(u string) Option {
	return func(d *Document) { d.url = u }
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	d := &Document{
		root:     root,
		viewport: dom.Viewport{Width: DefaultWidth, Height: DefaultHeight},
		frames:   make(map[*html.Node]*Document),
		shadow:   make(map[*html.Node]*html.Node),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.recorder = d
	d.attachShadowRoots(root)
	if t := findFirst(root, "title"); t != nil {
		d.title = strings.TrimSpace(textOf(t))
	}
	return d, nil
}

// ParseString parses an HTML string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element.
func (d *Document) Body() *html.Node { return findFirst(d.root, "body") }

// Capture implements dom.Source.
func (d *Document) Capture(ctx context.Context) (*dom.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := d.Body()
	if body == nil {
		return nil, fmt.Errorf("htmldoc: no body element")
	}
	l := newLayout(d.viewport)
	raw, err := d.captureNode(ctx, body, l, inherited{})
	if err != nil {
		return nil, err
	}
	return &dom.RawDocument{
		URL:      d.url,
		Title:    d.title,
		Viewport: d.viewport,
		Body:     raw,
	}, nil
}

func (d *Document) captureNode(ctx context.Context, n *html.Node, l *layout, inh inherited) (*dom.RawNode, error) {
	if n.Type == html.TextNode {
		return &dom.RawNode{Text: true, Value: n.Data}, nil
	}

	shadowRoot := d.shadow[n]
	raw := &dom.RawNode{Tag: strings.ToLower(n.Data), ShadowRoot: shadowRoot != nil}
	for _, a := range n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		raw.Attrs = append(raw.Attrs, dom.Attribute{Name: name, Value: a.Val})
	}

	st := parseStyle(attr(n, "style"))
	inh = inh.apply(n, st)
	raw.Display = inh.display
	raw.Visibility = inh.visibility
	if box, ok := l.place(n, st, inh); ok {
		raw.Box = &box
		raw.Top = inh.visibility != "hidden"
	}

	if isFrameTag(raw.Tag) {
		if frame, err := d.frame(n); err == nil {
			fraw, err := frame.Capture(ctx)
			if err == nil {
				raw.Frame = fraw
			}
		}
		return raw, nil
	}

	if shadowRoot != nil {
		for c := shadowRoot.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode && c.Type != html.TextNode {
				continue
			}
			child, err := d.captureNode(ctx, c, l, inh)
			if err != nil {
				return nil, err
			}
			child.InShadowRoot = true
			raw.Children = append(raw.Children, child)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c == shadowRoot || (c.Type != html.ElementNode && c.Type != html.TextNode) {
			continue
		}
		child, err := d.captureNode(ctx, c, l, inh)
		if err != nil {
			return nil, err
		}
		raw.Children = append(raw.Children, child)
	}
	return raw, nil
}

// attachShadowRoots records the first declarative shadow root template of
// every host. The template stays in the tree and holds the shadow children,
// so they are siblings of each other only.
func (d *Document) attachShadowRoots(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "template" && n.Type == html.ElementNode {
			if _, ok := attrOK(c, "shadowrootmode"); ok && d.shadow[n] == nil {
				d.shadow[n] = c
			}
		}
		d.attachShadowRoots(c)
	}
}

// composedParent returns the parent element of n, crossing from a shadow
// root to its host.
func (d *Document) composedParent(n *html.Node) *html.Node {
	p := n.Parent
	if p == nil {
		return nil
	}
	if p.Parent != nil && d.shadow[p.Parent] == p {
		return p.Parent
	}
	if p.Type != html.ElementNode {
		return nil
	}
	return p
}

// composedWalk visits elements in composed order: a host's shadow children
// before its light children. Shadow root templates are not visited.
func (d *Document) composedWalk(n *html.Node, visit func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && !visit(n) {
		return false
	}
	if t := d.shadow[n]; t != nil {
		for c := t.FirstChild; c != nil; c = c.NextSibling {
			if !d.composedWalk(c, visit) {
				return false
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c == d.shadow[n] {
			continue
		}
		if !d.composedWalk(c, visit) {
			return false
		}
	}
	return true
}

// frame returns the document embedded by an iframe's srcdoc, parsing it once.
func (d *Document) frame(n *html.Node) (*Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.frames[n]; ok {
		return f, nil
	}
	src, ok := attrOK(n, "srcdoc")
	if !ok {
		return nil, fmt.Errorf("htmldoc: frame has no srcdoc")
	}
	f, err := ParseString(src, WithViewport(frameSize(n)))
	if err != nil {
		return nil, err
	}
	f.recorder = d.recorder
	d.frames[n] = f
	return f, nil
}

// Query implements dom.SearchContext.
func (d *Document) Query(ctx context.Context, selector string) (dom.Handle, error) {
	n, err := d.queryNode(ctx, selector)
	if err != nil || n == nil {
		return nil, err
	}
	return &Element{doc: d, node: n}, nil
}

// Frame implements dom.SearchContext.
func (d *Document) Frame(ctx context.Context, selector string) (dom.SearchContext, error) {
	n, err := d.queryNode(ctx, selector)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("htmldoc: no frame matches %q", selector)
	}
	if !isFrameTag(n.Data) {
		return nil, fmt.Errorf("htmldoc: %q matched <%s>, not a frame", selector, n.Data)
	}
	f, err := d.frame(n)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// queryNode returns the first element matching selector. Light DOM
// matches come first; otherwise the child combinators of the selector are
// matched across open shadow root boundaries.
func (d *Document) queryNode(ctx context.Context, selector string) (*html.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: invalid selector %q: %w", selector, err)
	}
	for _, n := range goquery.NewDocumentFromNode(d.root).FindMatcher(sel).Nodes {
		if n.Parent == nil || d.shadow[n.Parent] != n {
			return n, nil
		}
	}
	if len(d.shadow) == 0 {
		return nil, nil
	}

	parts := splitChildCombinators(selector)
	chain := make([]cascadia.Sel, 0, len(parts))
	for _, p := range parts {
		s, err := cascadia.Parse(p)
		if err != nil {
			return nil, nil
		}
		chain = append(chain, s)
	}
	var match *html.Node
	d.composedWalk(d.root, func(n *html.Node) bool {
		if d.matchesComposed(chain, n) {
			match = n
			return false
		}
		return true
	})
	return match, nil
}

// matchesComposed matches a child combinator chain against n and its
// composed ancestors.
func (d *Document) matchesComposed(chain []cascadia.Sel, n *html.Node) bool {
	cur := n
	for i := len(chain) - 1; i >= 0; i-- {
		if cur == nil || !chain[i].Match(cur) {
			return false
		}
		if i > 0 {
			cur = d.composedParent(cur)
		}
	}
	return true
}

// splitChildCombinators splits a selector at its top-level child
// combinators. Selector lists are returned whole.
func splitChildCombinators(selector string) []string {
	var (
		parts []string
		quote rune
		depth int
		start int
	)
	for i := 0; i < len(selector); i++ {
		ch := rune(selector[i])
		switch {
		case ch == '\\':
			i++
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[' || ch == '(':
			depth++
		case ch == ']' || ch == ')':
			depth--
		case depth == 0 && ch == ',':
			return []string{selector}
		case depth == 0 && ch == '>':
			parts = append(parts, strings.TrimSpace(selector[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(selector[start:]))
}

// FindXPath evaluates an XPath expression against the document.
func (d *Document) FindXPath(expr string) ([]*html.Node, error) {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: xpath %q: %w", expr, err)
	}
	return nodes, nil
}

// ClearHighlights implements dom.Highlighter.
func (d *Document) ClearHighlights(ctx context.Context) error {
	d.mu.Lock()
	d.marks = nil
	d.mu.Unlock()
	return nil
}

// Highlight implements dom.Highlighter.
func (d *Document) Highlight(ctx context.Context, marks []dom.HighlightMark) error {
	d.mu.Lock()
	d.marks = append([]dom.HighlightMark(nil), marks...)
	d.mu.Unlock()
	return nil
}

// Highlights returns the marks currently drawn.
func (d *Document) Highlights() []dom.HighlightMark {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dom.HighlightMark(nil), d.marks...)
}

func isFrameTag(tag string) bool {
	return tag == "iframe" || tag == "frame"
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findFirst(c, tag); f != nil {
			return f
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, name string) string {
	v, _ := attrOK(n, name)
	return v
}

func attrOK(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name && a.Namespace == "" {
			return a.Val, true
		}
	}
	return "", false
}
