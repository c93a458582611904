package pwpage

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/anxuanzi/bua-dom/dom"
)

// scope is a document reached through a chain of frame selectors. Frames
// are entered lazily through FrameLocator, so a scope stays valid across
// frame reloads.
type scope struct {
	page   playwright.Page
	frames []string
}

func (s *scope) locator(selector string) playwright.Locator {
	if len(s.frames) == 0 {
		return s.page.Locator(selector)
	}
	fl := s.page.FrameLocator(s.frames[0])
	for _, f := range s.frames[1:] {
		fl = fl.FrameLocator(f)
	}
	return fl.Locator(selector)
}

// Locate implements dom.LocatorContext.
func (s *scope) Locate(ctx context.Context, selector string) (dom.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := s.locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("pwpage: count %q: %w", selector, err)
	}
	if n == 0 {
		return nil, nil
	}
	return &Handle{loc: loc.First()}, nil
}

// Query implements dom.SearchContext.
func (s *scope) Query(ctx context.Context, selector string) (dom.Handle, error) {
	return s.Locate(ctx, selector)
}

// Frame implements dom.SearchContext.
func (s *scope) Frame(ctx context.Context, selector string) (dom.SearchContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := s.locator(selector).Count()
	if err != nil {
		return nil, fmt.Errorf("pwpage: count frame %q: %w", selector, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("pwpage: no frame matches %q", selector)
	}
	frames := append(append([]string(nil), s.frames...), selector)
	return &scope{page: s.page, frames: frames}, nil
}

// Handle is a Playwright locator. It implements dom.Handle.
type Handle struct {
	loc playwright.Locator
}

// Locator returns the underlying locator.
func (h *Handle) Locator() playwright.Locator { return h.loc }

// ScrollIntoView implements dom.Handle.
func (h *Handle) ScrollIntoView(ctx context.Context) error {
	return h.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: timeout(ctx)})
}

// Click implements dom.Handle.
func (h *Handle) Click(ctx context.Context) error {
	return h.loc.Click(playwright.LocatorClickOptions{Timeout: timeout(ctx)})
}

// Fill implements dom.Handle.
func (h *Handle) Fill(ctx context.Context, text string) error {
	return h.loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeout(ctx)})
}

// Evaluate implements dom.Handle.
func (h *Handle) Evaluate(ctx context.Context, fn string) error {
	_, err := h.loc.Evaluate(fn, nil, playwright.LocatorEvaluateOptions{Timeout: timeout(ctx)})
	return err
}
