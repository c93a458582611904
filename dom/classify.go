package dom

import (
	"strings"
)

// DefaultViewportExpansion is the margin in pixels added around the
// viewport when deciding visibility.
const DefaultViewportExpansion = 500

// interactiveTags are always considered interactive.
var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "option": true, "optgroup": true,
	"fieldset": true, "legend": true, "details": true, "summary": true,
}

// interactiveRoles from ARIA that indicate interactivity.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "menuitem": true, "tab": true, "option": true,
}

// handlerAttributes are inline pointer/mouse handlers that make an element clickable.
var handlerAttributes = []string{
	"onclick", "ondblclick", "onmousedown", "onmouseup", "onpointerdown", "onpointerup",
}

// skippedTags are never traversed.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "meta": true, "link": true,
}

// HighlightContainerID is the id of the overlay subtree injected into pages.
const HighlightContainerID = "bua-highlight-container"

// IsVisible reports whether el is rendered and intersects the viewport
// inflated by expansion pixels. A negative expansion disables the
// viewport test. Missing geometry counts as not visible.
func IsVisible(el *RawNode, vp Viewport, expansion int) bool {
	if el == nil || el.Text || el.Box == nil {
		return false
	}
	if el.Display == "none" || el.Visibility == "hidden" {
		return false
	}
	if el.Box.IsEmpty() {
		return false
	}
	if expansion < 0 {
		return true
	}
	return el.Box.Intersects(vp.Rect(float64(expansion)))
}

// IsInViewport reports whether el intersects the unexpanded viewport.
func IsInViewport(el *RawNode, vp Viewport) bool {
	if el == nil || el.Box == nil || el.Box.IsEmpty() {
		return false
	}
	return el.Box.Intersects(vp.Rect(0))
}

// IsInteractive reports whether el is something a user can act on.
func IsInteractive(el *RawNode) bool {
	if el == nil || el.Text {
		return false
	}
	tag := strings.ToLower(el.Tag)

	// Tier 1: explicit interactive tags
	if interactiveTags[tag] {
		return true
	}

	// Tier 2: inline event handlers
	for _, name := range handlerAttributes {
		if _, ok := el.Attr(name); ok {
			return true
		}
	}

	// Tier 3: ARIA role
	if role, ok := el.Attr("role"); ok && interactiveRoles[strings.ToLower(strings.TrimSpace(role))] {
		return true
	}

	// Tier 4: focusable through tabindex
	if tabindex, ok := el.Attr("tabindex"); ok && strings.TrimSpace(tabindex) != "-1" {
		return true
	}

	return false
}

// ExtractText returns the trimmed direct text of el, joining its text
// children with single spaces.
func ExtractText(el *RawNode) string {
	if el == nil {
		return ""
	}
	if el.Text {
		return strings.TrimSpace(el.Value)
	}
	var parts []string
	for _, child := range el.Children {
		if child == nil || !child.Text {
			continue
		}
		if t := strings.TrimSpace(child.Value); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func shouldSkip(el *RawNode) bool {
	if skippedTags[strings.ToLower(el.Tag)] {
		return true
	}
	id, _ := el.Attr("id")
	return id == HighlightContainerID
}
