package dom_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anxuanzi/bua-dom/dom"
)

// TestElementListing verifies the per-element lines and new-element markers.
func TestElementListing(t *testing.T) {
	page := `<html><head><title>Shop</title></head><body>
<h1>Welcome</h1>
<a href="/cart" title="Cart">View <b>cart</b></a>
<input type="search" placeholder="Find">
</body></html>`
	snap, _ := build(t, page, dom.DefaultOptions())

	out := snap.ElementListing(nil, 0)
	assert.Contains(t, out, "Page: Shop\n")
	assert.Contains(t, out, "URL: https://example.test/\n")
	assert.Contains(t, out, "Elements (2):\n")
	assert.Contains(t, out, `[0]<a title="Cart" href="/cart">View cart</a>`)
	assert.Contains(t, out, `[1]<input type="search" placeholder="Find"></input>`)
	assert.NotContains(t, out, "*[")

	prev, _ := build(t, `<html><body><div><a href="/cart">old</a></div></body></html>`, dom.DefaultOptions())
	out = snap.ElementListing(prev, 1)
	assert.Contains(t, out, "Elements (1 of 2 shown):\n")
	assert.Contains(t, out, "*[0]<a", "a moved into a new path")
	assert.NotContains(t, out, "[1]<input")
}

// TestTextUntilNextClickable verifies text collection stops at nested
// interactive elements.
func TestTextUntilNextClickable(t *testing.T) {
	page := `<html><body><div onclick="open()">Intro <span>more</span><button>Stop</button> tail</div></body></html>`
	snap, _ := build(t, page, dom.DefaultOptions())

	div, ok := snap.ByHighlightIndex(0)
	require.True(t, ok)
	assert.Equal(t, "div", div.TagName)
	assert.Equal(t, "Intro more tail", snap.TextUntilNextClickable(div.ID))

	button, _ := snap.ByHighlightIndex(1)
	assert.Equal(t, "Stop", snap.TextUntilNextClickable(button.ID))
	assert.Equal(t, "", snap.TextUntilNextClickable(dom.NodeID(-1)))
	assert.False(t, strings.Contains(snap.TextUntilNextClickable(div.ID), "Stop"))
}

// TestElementListing_MultibyteTruncation verifies long text is cut on a
// rune boundary.
func TestElementListing_MultibyteTruncation(t *testing.T) {
	long := strings.Repeat("é", 150)
	snap, _ := build(t, `<html><body><button>`+long+`</button></body></html>`, dom.DefaultOptions())

	listing := snap.ElementListing(nil, 0)
	assert.True(t, utf8.ValidString(listing))
	assert.Contains(t, listing, strings.Repeat("é", 97)+"...")
	assert.NotContains(t, listing, strings.Repeat("é", 98))
}
