package dom

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TextUntilNextClickable aggregates the text below id, stopping at any
// descendant that carries its own highlight index.
func (s *Snapshot) TextUntilNextClickable(id NodeID) string {
	start := s.Node(id)
	if start == nil {
		return ""
	}
	var parts []string
	var walk func(n *Node)
	walk = func(n *Node) {
		if n != start && n.HighlightIndex != nil {
			return
		}
		if n.Kind == TextNode {
			parts = append(parts, n.Text)
			return
		}
		for _, c := range n.Children {
			if child := s.Node(c); child != nil {
				walk(child)
			}
		}
	}
	walk(start)
	return strings.Join(parts, " ")
}

// listedAttributes are shown in element listings.
var listedAttributes = []string{"role", "type", "name", "placeholder", "aria-label", "title", "href"}

// ElementListing renders the interactive nodes one per line as
// "[index]<tag attr=value>text</tag>". Nodes whose structural path is
// absent from prev are prefixed with "*". maxElements <= 0 means no limit.
func (s *Snapshot) ElementListing(prev *Snapshot, maxElements int) string {
	var known map[string]bool
	if prev != nil {
		known = make(map[string]bool, len(prev.SelectorMap))
		for _, id := range prev.SelectorMap {
			if n := prev.Node(id); n != nil {
				known[n.XPath] = true
			}
		}
	}

	var sb strings.Builder
	if s.Title != "" {
		sb.WriteString(fmt.Sprintf("Page: %s\n", s.Title))
	}
	if s.URL != "" {
		sb.WriteString(fmt.Sprintf("URL: %s\n", s.URL))
	}

	total := len(s.SelectorMap)
	if maxElements > 0 && total > maxElements {
		sb.WriteString(fmt.Sprintf("Elements (%d of %d shown):\n", maxElements, total))
	} else {
		sb.WriteString(fmt.Sprintf("Elements (%d):\n", total))
	}

	for i := 0; i < total; i++ {
		if maxElements > 0 && i >= maxElements {
			break
		}
		n, ok := s.ByHighlightIndex(i)
		if !ok || n == nil {
			continue
		}
		if known != nil && !known[n.XPath] {
			sb.WriteString("*")
		}
		sb.WriteString(fmt.Sprintf("[%d]<%s", i, n.TagName))
		for _, name := range listedAttributes {
			if v, ok := n.Attr(name); ok && v != "" {
				sb.WriteString(fmt.Sprintf(" %s=%q", name, truncate(v, 80)))
			}
		}
		sb.WriteString(">")
		sb.WriteString(truncate(s.TextUntilNextClickable(n.ID), 100))
		sb.WriteString(fmt.Sprintf("</%s>\n", n.TagName))
	}
	return sb.String()
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
