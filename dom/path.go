package dom

import (
	"fmt"
	"regexp"
	"strings"
)

// pathElement is the view of a tree the path builder needs. It lets the
// same algorithm run over raw captures and over offline documents.
type pathElement interface {
	pathTag() string
	pathID() string
	pathParent() pathElement

	// pathSiblings returns the element children of the parent that share
	// el's tree, el included. Shadow and light children are counted apart.
	pathSiblings() []pathElement
}

// structuralPath computes the absolute path of el from its document root.
// An element or ancestor with a usable id anchors the path and stops the walk.
func structuralPath(el pathElement) string {
	var segments []string
	for cur := el; cur != nil; cur = cur.pathParent() {
		if anchor := idAnchor(cur.pathID()); anchor != "" {
			segments = append(segments, anchor)
			reverse(segments)
			return strings.Join(segments, "/")
		}
		segments = append(segments, ordinalSegment(cur))
	}
	reverse(segments)
	return "/" + strings.Join(segments, "/")
}

func ordinalSegment(el pathElement) string {
	tag := el.pathTag()
	parent := el.pathParent()
	if parent == nil {
		return tag
	}
	pos, total := 0, 0
	for _, sib := range el.pathSiblings() {
		if sib.pathTag() != tag {
			continue
		}
		total++
		if sib == el {
			pos = total
		}
	}
	if total > 1 && pos > 0 {
		return fmt.Sprintf("%s[%d]", tag, pos)
	}
	return tag
}

func idAnchor(id string) string {
	if id == "" {
		return ""
	}
	switch {
	case !strings.Contains(id, `"`):
		return `//*[@id="` + id + `"]`
	case !strings.Contains(id, `'`):
		return `//*[@id='` + id + `']`
	}
	return ""
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

var (
	idAnchorRe = regexp.MustCompile(`^//\*\[@id=(?:"([^"]*)"|'([^']*)')\]`)
	segmentRe  = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_-]*|\*)((?:\[[^\]]*\])*)$`)
	predRe     = regexp.MustCompile(`\[([^\]]*)\]`)
)

// CSSFromPath converts a structural path into a child-combinator CSS
// selector. Ordinal predicates become :nth-of-type; other predicates are
// dropped. It returns "" when the path cannot be parsed.
func CSSFromPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	var parts []string
	if m := idAnchorRe.FindStringSubmatch(path); m != nil {
		id := m[1]
		if id == "" {
			id = m[2]
		}
		parts = append(parts, `[id="`+escapeCSSString(id)+`"]`)
		path = path[len(m[0]):]
	}

	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return strings.Join(parts, " > ")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return ""
		}
		m := segmentRe.FindStringSubmatch(seg)
		if m == nil {
			return ""
		}
		part := m[1]
		for _, p := range predRe.FindAllStringSubmatch(m[2], -1) {
			pred := strings.TrimSpace(p[1])
			switch {
			case isDigits(pred):
				part += ":nth-of-type(" + pred + ")"
			case pred == "last()":
				part += ":last-of-type"
			}
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " > ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// rawPathNode adapts the raw capture tree to pathElement.
type rawPathNode struct {
	raw      *RawNode
	parent   *rawPathNode
	siblings []*rawPathNode
}

func (n *rawPathNode) pathTag() string { return strings.ToLower(n.raw.Tag) }

// pathID returns the id exactly as written. Blank ids do not anchor.
func (n *rawPathNode) pathID() string {
	id, _ := n.raw.Attr("id")
	if strings.TrimSpace(id) == "" {
		return ""
	}
	return id
}

func (n *rawPathNode) pathParent() pathElement {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *rawPathNode) pathSiblings() []pathElement {
	out := make([]pathElement, len(n.siblings))
	for i, s := range n.siblings {
		out[i] = s
	}
	return out
}

// documentRoot returns the synthetic html element that owns a document body.
func documentRoot(body *RawNode) *rawPathNode {
	html := &rawPathNode{raw: &RawNode{Tag: "html"}}
	b := &rawPathNode{raw: body, parent: html}
	b.siblings = []*rawPathNode{b}
	return b
}

// childPathNodes wraps the element children of parent in document order.
// Children of a shadow root and light children form separate sibling sets.
func childPathNodes(parent *rawPathNode, children []*RawNode) map[*RawNode]*rawPathNode {
	var light, shadow []*rawPathNode
	out := make(map[*RawNode]*rawPathNode)
	for _, c := range children {
		if c == nil || c.Text {
			continue
		}
		e := &rawPathNode{raw: c, parent: parent}
		if c.InShadowRoot {
			shadow = append(shadow, e)
		} else {
			light = append(light, e)
		}
		out[c] = e
	}
	for _, e := range light {
		e.siblings = light
	}
	for _, e := range shadow {
		e.siblings = shadow
	}
	return out
}
