package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/internal/capture"
)

// Page is a Chrome tab or frame. It implements dom.Source,
// dom.Highlighter and dom.SearchContext.
type Page struct {
	page *rod.Page
	cfg  Config
}

func newRodPage(p *rod.Page, cfg Config) *Page {
	return &Page{page: p, cfg: cfg}
}

// Rod returns the underlying rod page.
func (p *Page) Rod() *rod.Page { return p.page }

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		p.cfg.Logger.Warn("browser: wait load", zap.String("url", url), zap.Error(err))
	}
	return nil
}

// Capture implements dom.Source.
func (p *Page) Capture(ctx context.Context) (*dom.RawDocument, error) {
	return capture.Capture(ctx, rodFrame{page: p.page}, p.cfg.Logger)
}

// ClearHighlights implements dom.Highlighter.
func (p *Page) ClearHighlights(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(capture.ClearScript); err != nil {
		return fmt.Errorf("browser: clear highlights: %w", err)
	}
	return nil
}

// Highlight implements dom.Highlighter.
func (p *Page) Highlight(ctx context.Context, marks []dom.HighlightMark) error {
	if _, err := p.page.Context(ctx).Eval(capture.HighlightScript, marks); err != nil {
		return fmt.Errorf("browser: highlight: %w", err)
	}
	return nil
}

// Query implements dom.SearchContext.
func (p *Page) Query(ctx context.Context, selector string) (dom.Handle, error) {
	el, err := p.first(ctx, selector)
	if err != nil || el == nil {
		return nil, err
	}
	return &Element{el: el, cfg: p.cfg}, nil
}

// Frame implements dom.SearchContext.
func (p *Page) Frame(ctx context.Context, selector string) (dom.SearchContext, error) {
	el, err := p.first(ctx, selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("browser: no frame matches %q", selector)
	}
	fr, err := el.Context(ctx).Frame()
	if err != nil {
		return nil, fmt.Errorf("browser: enter frame %q: %w", selector, err)
	}
	return newRodPage(fr, p.cfg), nil
}

// Screenshot captures the viewport as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return img, nil
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}

// first returns the first match without waiting, or nil. Elements in open
// shadow roots are found when the light DOM has no match.
func (p *Page) first(ctx context.Context, selector string) (*rod.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	if len(els) > 0 {
		return els[0], nil
	}

	// querySelectorAll stops at shadow roots
	obj, err := p.page.Context(ctx).Evaluate(rod.Eval(capture.QueryScript, selector).ByObject())
	if err != nil {
		return nil, fmt.Errorf("browser: query %q in shadow roots: %w", selector, err)
	}
	if obj.ObjectID == "" {
		return nil, nil
	}
	el, err := p.page.Context(ctx).ElementFromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q in shadow roots: %w", selector, err)
	}
	return el, nil
}

// rodFrame adapts a rod page or frame to capture.Frame.
type rodFrame struct {
	page *rod.Page
}

func (f rodFrame) Eval(ctx context.Context, script string) (string, error) {
	res, err := f.page.Context(ctx).Eval(script)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (f rodFrame) Child(ctx context.Context, ordinal int) (capture.Frame, error) {
	els, err := f.page.Context(ctx).Elements("iframe, frame")
	if err != nil {
		return nil, err
	}
	if ordinal < 0 || ordinal >= len(els) {
		return nil, fmt.Errorf("frame %d of %d", ordinal, len(els))
	}
	fr, err := els[ordinal].Context(ctx).Frame()
	if err != nil {
		return nil, err
	}
	return rodFrame{page: fr}, nil
}

// Element is a live rod element. It implements dom.Handle.
type Element struct {
	el  *rod.Element
	cfg Config
}

// Rod returns the underlying rod element.
func (e *Element) Rod() *rod.Element { return e.el }

// ScrollIntoView implements dom.Handle.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

// Click implements dom.Handle.
func (e *Element) Click(ctx context.Context) error {
	if err := e.delay(ctx); err != nil {
		return err
	}
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// Fill replaces the element's content with text.
func (e *Element) Fill(ctx context.Context, text string) error {
	if err := e.delay(ctx); err != nil {
		return err
	}
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

// Evaluate implements dom.Handle.
func (e *Element) Evaluate(ctx context.Context, fn string) error {
	_, err := e.el.Context(ctx).Eval(`function () { return (` + fn + `)(this) }`)
	return err
}

func (e *Element) delay(ctx context.Context) error {
	s := e.cfg.Stealth
	if !s.HumanLikeDelays {
		return nil
	}
	return humanDelay(ctx, s.MinDelay, s.MaxDelay)
}
