package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func box(x, y, w, h float64) *BoundingBox {
	return &BoundingBox{X: x, Y: y, Width: w, Height: h}
}

func el(tag string, attrs ...string) *RawNode {
	n := &RawNode{Tag: tag, Box: box(0, 0, 100, 20), Display: "block", Visibility: "visible"}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs = append(n.Attrs, Attribute{Name: attrs[i], Value: attrs[i+1]})
	}
	return n
}

// TestIsInteractive_Tiers verifies tags, handlers, roles and tabindex.
func TestIsInteractive_Tiers(t *testing.T) {
	tests := []struct {
		name string
		node *RawNode
		want bool
	}{
		{"button tag", el("button"), true},
		{"anchor tag", el("a", "href", "/"), true},
		{"summary tag", el("summary"), true},
		{"upper-case tag", el("INPUT"), true},
		{"onclick div", el("div", "onclick", "go()"), true},
		{"pointerdown div", el("div", "onpointerdown", ""), true},
		{"role button", el("span", "role", "button"), true},
		{"role tab padded", el("span", "role", " Tab "), true},
		{"role region", el("div", "role", "region"), false},
		{"tabindex zero", el("div", "tabindex", "0"), true},
		{"tabindex negative", el("div", "tabindex", "-1"), false},
		{"plain div", el("div"), false},
		{"text node", &RawNode{Text: true, Value: "x"}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInteractive(tt.node))
		})
	}
}

// TestIsVisible_Geometry verifies style, area and viewport checks.
func TestIsVisible_Geometry(t *testing.T) {
	vp := Viewport{Width: 1000, Height: 800}

	assert.True(t, IsVisible(el("div"), vp, 0))

	hidden := el("div")
	hidden.Display = "none"
	assert.False(t, IsVisible(hidden, vp, 0))

	invisible := el("div")
	invisible.Visibility = "hidden"
	assert.False(t, IsVisible(invisible, vp, 0))

	noBox := el("div")
	noBox.Box = nil
	assert.False(t, IsVisible(noBox, vp, 0), "missing geometry")

	zero := el("div")
	zero.Box = box(10, 10, 0, 20)
	assert.False(t, IsVisible(zero, vp, 0))

	below := el("div")
	below.Box = box(0, 1200, 100, 20)
	assert.False(t, IsVisible(below, vp, 0))
	assert.True(t, IsVisible(below, vp, 500), "inside the expanded viewport")
	assert.False(t, IsVisible(below, vp, 300))
	assert.True(t, IsVisible(below, vp, -1), "negative expansion disables the viewport test")

	assert.False(t, IsInViewport(below, vp))
	assert.True(t, IsInViewport(el("div"), vp))
}

// TestExtractText_DirectChildren verifies only direct text runs are joined.
func TestExtractText_DirectChildren(t *testing.T) {
	n := el("p")
	n.Children = []*RawNode{
		{Text: true, Value: "  Hello\n"},
		{Tag: "b", Children: []*RawNode{{Text: true, Value: "bold"}}},
		{Text: true, Value: "   "},
		{Text: true, Value: "world "},
	}
	assert.Equal(t, "Hello world", ExtractText(n))
	assert.Equal(t, "x", ExtractText(&RawNode{Text: true, Value: " x "}))
	assert.Equal(t, "", ExtractText(nil))
}

// TestShouldSkip verifies skipped tags and the overlay container.
func TestShouldSkip(t *testing.T) {
	assert.True(t, shouldSkip(el("script")))
	assert.True(t, shouldSkip(el("STYLE")))
	assert.True(t, shouldSkip(el("div", "id", HighlightContainerID)))
	assert.False(t, shouldSkip(el("div", "id", "content")))
}

// TestHighlightColor verifies the palette cycles and focus overrides it.
func TestHighlightColor(t *testing.T) {
	assert.Equal(t, HighlightColor(0, false), HighlightColor(len(highlightPalette), false))
	assert.NotEqual(t, HighlightColor(0, false), HighlightColor(1, false))
	assert.Equal(t, FocusColor, HighlightColor(3, true))
}
