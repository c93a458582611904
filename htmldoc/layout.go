package htmldoc

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/anxuanzi/bua-dom/dom"
)

// Synthetic geometry: every rendered element takes the next row.
const (
	RowHeight = 24
	RowWidth  = 200
	RowIndent = 8
)

// unrendered tags never get a box.
var unrendered = map[string]bool{
	"head": true, "title": true, "script": true, "style": true,
	"template": true, "meta": true, "link": true, "noscript": true,
}

// inherited carries computed style down the tree.
type inherited struct {
	display    string
	visibility string
}

func (in inherited) apply(n *html.Node, st map[string]string) inherited {
	out := in
	if out.visibility == "" {
		out.visibility = "visible"
	}
	if out.display == "none" {
		return out
	}
	_, hidden := attrOK(n, "hidden")
	switch {
	case hidden || st["display"] == "none" || unrendered[n.Data]:
		out.display = "none"
	case st["display"] != "":
		out.display = st["display"]
	default:
		out.display = "block"
	}
	switch st["visibility"] {
	case "hidden", "collapse":
		out.visibility = "hidden"
	case "visible":
		out.visibility = "visible"
	}
	return out
}

type layout struct {
	vp  dom.Viewport
	row int
}

func newLayout(vp dom.Viewport) *layout {
	return &layout{vp: vp}
}

// place assigns the next row to n. Inline top, left, width and height in
// pixels override the row geometry.
func (l *layout) place(n *html.Node, st map[string]string, in inherited) (dom.BoundingBox, bool) {
	if in.display == "none" {
		return dom.BoundingBox{}, false
	}
	box := dom.BoundingBox{
		X:      RowIndent,
		Y:      float64(l.row * RowHeight),
		Width:  RowWidth,
		Height: RowHeight,
	}
	l.row++
	if v, ok := pixels(st["top"]); ok {
		box.Y = v
	}
	if v, ok := pixels(st["left"]); ok {
		box.X = v
	}
	if v, ok := pixels(st["width"]); ok {
		box.Width = v
	}
	if v, ok := pixels(st["height"]); ok {
		box.Height = v
	}
	return box, true
}

// parseStyle reads an inline style attribute into lowercased declarations.
func parseStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important")))
		if name != "" {
			out[name] = value
		}
	}
	return out
}

func pixels(v string) (float64, bool) {
	v = strings.TrimSpace(strings.TrimSuffix(v, "px"))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// frameSize returns the viewport of a frame from its width and height
// attributes, defaulting to the browser's 300x150.
func frameSize(n *html.Node) (float64, float64) {
	w, h := 300.0, 150.0
	if v, ok := pixels(attr(n, "width")); ok {
		w = v
	}
	if v, ok := pixels(attr(n, "height")); ok {
		h = v
	}
	return w, h
}
