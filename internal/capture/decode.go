package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anxuanzi/bua-dom/dom"
)

// MaxFrameDepth bounds how deep nested frames are captured.
const MaxFrameDepth = 8

// ErrNoBody is returned for documents without a body element.
var ErrNoBody = errors.New("capture: document has no body")

type wireDocument struct {
	URL      string       `json:"url"`
	Title    string       `json:"title"`
	Viewport dom.Viewport `json:"viewport"`
	Body     *wireNode    `json:"body"`
}

type wireNode struct {
	Text         bool             `json:"text"`
	Tag          string           `json:"tag"`
	Attrs        []dom.Attribute  `json:"attrs"`
	Value        string           `json:"value"`
	Box          *dom.BoundingBox `json:"box"`
	Display      string           `json:"display"`
	Visibility   string           `json:"visibility"`
	Top          bool             `json:"top"`
	ShadowRoot   bool             `json:"shadowRoot"`
	InShadowRoot bool             `json:"inShadowRoot"`
	FrameOrdinal *int             `json:"frameOrdinal"`
	Children     []*wireNode      `json:"children"`
}

// Result is one decoded document.
type Result struct {
	Document *dom.RawDocument

	// Frames maps frame ordinals to their frame elements in Document.
	Frames map[int]*dom.RawNode
}

// Decode parses the output of Script.
func Decode(data []byte) (*Result, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("capture: decode: %w", err)
	}
	if w.Body == nil {
		return nil, ErrNoBody
	}
	res := &Result{Frames: make(map[int]*dom.RawNode)}
	res.Document = &dom.RawDocument{
		URL:      w.URL,
		Title:    w.Title,
		Viewport: w.Viewport,
		Body:     res.convert(w.Body),
	}
	return res, nil
}

func (r *Result) convert(w *wireNode) *dom.RawNode {
	n := &dom.RawNode{
		Text:         w.Text,
		Tag:          w.Tag,
		Attrs:        w.Attrs,
		Value:        w.Value,
		Box:          w.Box,
		Display:      w.Display,
		Visibility:   w.Visibility,
		Top:          w.Top,
		ShadowRoot:   w.ShadowRoot,
		InShadowRoot: w.InShadowRoot,
	}
	if w.FrameOrdinal != nil && *w.FrameOrdinal >= 0 {
		r.Frames[*w.FrameOrdinal] = n
	}
	for _, c := range w.Children {
		if c == nil {
			continue
		}
		n.Children = append(n.Children, r.convert(c))
	}
	return n
}

// Frame is one browsing context a capture can run in.
type Frame interface {
	// Eval runs a zero-argument script and returns its string result.
	Eval(ctx context.Context, script string) (string, error)

	// Child returns the frame at ordinal among this document's frame elements.
	Child(ctx context.Context, ordinal int) (Frame, error)
}

// Capture runs Script in f and in every reachable nested frame. Frames
// that cannot be entered, such as cross-origin ones a driver cannot
// reach, are left without a document.
func Capture(ctx context.Context, f Frame, logger *zap.Logger) (*dom.RawDocument, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return capture(ctx, f, logger, 0)
}

func capture(ctx context.Context, f Frame, logger *zap.Logger, depth int) (*dom.RawDocument, error) {
	out, err := f.Eval(ctx, Script)
	if err != nil {
		return nil, fmt.Errorf("capture: eval: %w", err)
	}
	res, err := Decode([]byte(out))
	if err != nil {
		return nil, err
	}
	if depth >= MaxFrameDepth {
		return res.Document, nil
	}

	for ordinal, el := range res.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, err := f.Child(ctx, ordinal)
		if err != nil {
			logger.Debug("frame not captured", zap.Int("ordinal", ordinal), zap.Error(err))
			continue
		}
		doc, err := capture(ctx, child, logger, depth+1)
		if err != nil {
			logger.Debug("frame capture failed", zap.Int("ordinal", ordinal), zap.Error(err))
			continue
		}
		el.Frame = doc
	}
	return res.Document, nil
}
