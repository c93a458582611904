package screenshot

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/htmldoc"
)

func blank(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, img))
	return buf.Bytes()
}

func encodePNG(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }

func encodeJPEG(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) }

func snapshotOf(t *testing.T, page string) *dom.Snapshot {
	t.Helper()
	doc, err := htmldoc.ParseString(page, htmldoc.WithViewport(320, 240))
	require.NoError(t, err)
	snap, err := dom.BuildSnapshot(context.Background(), doc, dom.DefaultOptions())
	require.NoError(t, err)
	return snap
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

// TestAnnotate_DrawsBoxes verifies box outlines are drawn and interiors left alone.
func TestAnnotate_DrawsBoxes(t *testing.T) {
	snap := snapshotOf(t, `<body><p>intro</p><button>Go</button></body>`)
	require.Equal(t, 1, snap.Len())
	n, _ := snap.ByHighlightIndex(0)
	box := n.BoundingBox

	out, err := Annotate(blank(t, 320, 240, encodePNG), snap, DefaultAnnotationConfig())
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	edge := img.At(int(box.X), int(box.Y+box.Height/2))
	assert.False(t, isWhite(edge), "left edge is stroked")
	r, _, _, _ := edge.RGBA()
	assert.Greater(t, r, uint32(0x8000), "overlay palette starts red")

	inner := img.At(int(box.X+box.Width/2), int(box.Y+box.Height-4))
	assert.True(t, isWhite(inner))
}

// TestAnnotate_Focus verifies the focused index uses the focus color.
func TestAnnotate_Focus(t *testing.T) {
	snap := snapshotOf(t, `<body><button>Go</button></body>`)
	n, _ := snap.ByHighlightIndex(0)
	box := n.BoundingBox

	cfg := DefaultAnnotationConfig()
	cfg.ShowLabels = false
	focus := 0
	cfg.FocusIndex = &focus

	out, err := Annotate(blank(t, 320, 240, encodePNG), snap, cfg)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, g, b, _ := img.At(int(box.X), int(box.Y+box.Height/2)).RGBA()
	assert.Greater(t, r, uint32(0xe000))
	assert.Greater(t, g, uint32(0xb000))
	assert.Less(t, b, uint32(0x4000))
}

// TestAnnotate_KeepsFormat verifies JPEG input is re-encoded as JPEG.
func TestAnnotate_KeepsFormat(t *testing.T) {
	snap := snapshotOf(t, `<body><a href="/x">x</a></body>`)
	cfg := DefaultAnnotationConfig()
	cfg.ColorByTag = true

	out, err := Annotate(blank(t, 320, 240, encodeJPEG), snap, cfg)
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

// TestAnnotate_Passthrough verifies empty snapshots return the input and
// undecodable input fails.
func TestAnnotate_Passthrough(t *testing.T) {
	in := []byte("not an image")
	out, err := Annotate(in, nil, DefaultAnnotationConfig())
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty := snapshotOf(t, `<body><p>text only</p></body>`)
	out, err = AnnotateUnlabeled(in, empty)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Annotate(in, snapshotOf(t, `<body><button>b</button></body>`), DefaultAnnotationConfig())
	assert.Error(t, err)
}
