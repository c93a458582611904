// Package screenshot draws snapshot highlight indices onto page screenshots.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // decoder registration
	"sort"
	"strconv"

	"github.com/fogleman/gg"

	"github.com/anxuanzi/bua-dom/dom"
)

// AnnotationConfig configures how annotations are drawn.
type AnnotationConfig struct {
	// BorderWidth is the width of bounding box borders in pixels.
	BorderWidth float64 `yaml:"border_width"`

	// ShowLabels draws the highlight index above each box.
	ShowLabels bool `yaml:"show_labels"`

	// LabelsOnlyForUnlabeled skips labels on elements that carry text.
	LabelsOnlyForUnlabeled bool `yaml:"labels_only_for_unlabeled"`

	// ColorByTag colors boxes by element kind instead of the overlay palette.
	ColorByTag bool `yaml:"color_by_tag"`

	// FocusIndex is drawn in dom.FocusColor when set.
	FocusIndex *int `yaml:"focus_index"`

	LinkColor    color.RGBA `yaml:"-"`
	ButtonColor  color.RGBA `yaml:"-"`
	InputColor   color.RGBA `yaml:"-"`
	DefaultColor color.RGBA `yaml:"-"`
	LabelBg      color.RGBA `yaml:"-"`
	LabelText    color.RGBA `yaml:"-"`
}

// DefaultAnnotationConfig returns the defaults: overlay palette, labels on.
func DefaultAnnotationConfig() AnnotationConfig {
	return AnnotationConfig{
		BorderWidth:  2,
		ShowLabels:   true,
		LinkColor:    color.RGBA{R: 76, G: 175, B: 80, A: 255},
		ButtonColor:  color.RGBA{R: 33, G: 150, B: 243, A: 255},
		InputColor:   color.RGBA{R: 255, G: 152, B: 0, A: 255},
		DefaultColor: color.RGBA{R: 156, G: 39, B: 176, A: 255},
		LabelBg:      color.RGBA{A: 200},
		LabelText:    color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Annotate draws a box and index label for every highlighted element of
// snap. The image keeps its format; anything but PNG is re-encoded as JPEG.
func Annotate(imgData []byte, snap *dom.Snapshot, cfg AnnotationConfig) ([]byte, error) {
	if snap == nil || snap.Len() == 0 {
		return imgData, nil
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("screenshot: decode: %w", err)
	}

	dc := gg.NewContextForImage(img)
	for _, index := range sortedIndices(snap) {
		n, ok := snap.ByHighlightIndex(index)
		if !ok || n == nil || !n.IsVisible || n.BoundingBox.IsEmpty() {
			continue
		}
		focused := cfg.FocusIndex != nil && *cfg.FocusIndex == index

		drawBox(dc, n.BoundingBox, boxColor(n, index, focused, cfg), cfg.BorderWidth)

		if !cfg.ShowLabels {
			continue
		}
		if cfg.LabelsOnlyForUnlabeled && snap.TextUntilNextClickable(n.ID) != "" {
			continue
		}
		drawLabel(dc, index, n.BoundingBox, cfg)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = dc.EncodePNG(&buf)
	default:
		err = jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// AnnotateUnlabeled labels only elements without visible text.
func AnnotateUnlabeled(imgData []byte, snap *dom.Snapshot) ([]byte, error) {
	cfg := DefaultAnnotationConfig()
	cfg.LabelsOnlyForUnlabeled = true
	return Annotate(imgData, snap, cfg)
}

func sortedIndices(snap *dom.Snapshot) []int {
	out := make([]int, 0, len(snap.SelectorMap))
	for i := range snap.SelectorMap {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

type paint struct {
	hex  string
	rgba color.RGBA
}

func boxColor(n *dom.Node, index int, focused bool, cfg AnnotationConfig) paint {
	if focused || !cfg.ColorByTag {
		return paint{hex: dom.HighlightColor(index, focused)}
	}
	switch n.TagName {
	case "a":
		return paint{rgba: cfg.LinkColor}
	case "button":
		return paint{rgba: cfg.ButtonColor}
	case "input", "textarea", "select":
		return paint{rgba: cfg.InputColor}
	}
	role, _ := n.Attr("role")
	switch role {
	case "button", "menuitem", "tab":
		return paint{rgba: cfg.ButtonColor}
	case "link":
		return paint{rgba: cfg.LinkColor}
	case "textbox", "combobox", "searchbox":
		return paint{rgba: cfg.InputColor}
	}
	return paint{rgba: cfg.DefaultColor}
}

func (p paint) apply(dc *gg.Context) {
	if p.hex != "" {
		dc.SetHexColor(p.hex)
		return
	}
	dc.SetColor(p.rgba)
}

func drawBox(dc *gg.Context, b dom.BoundingBox, p paint, width float64) {
	if width <= 0 {
		width = 1
	}
	p.apply(dc)
	dc.SetLineWidth(width)
	dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
	dc.Stroke()
}

// drawLabel puts the index above the top center of the box, or just inside
// it when there is no room above.
func drawLabel(dc *gg.Context, index int, b dom.BoundingBox, cfg AnnotationConfig) {
	const pad = 2.0
	label := strconv.Itoa(index)
	tw, th := dc.MeasureString(label)
	w, h := tw+2*pad, th+2*pad

	x := b.X + b.Width/2 - w/2
	y := b.Y - h - 2
	if y < 0 {
		y = b.Y + 2
	}
	maxX := float64(dc.Width()) - w
	if x > maxX {
		x = maxX
	}
	if x < 0 {
		x = 0
	}

	dc.SetColor(cfg.LabelBg)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetColor(cfg.LabelText)
	dc.DrawStringAnchored(label, x+w/2, y+h/2, 0.5, 0.5)
}
