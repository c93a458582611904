// Package pwpage exposes Playwright pages as snapshot sources and as
// locator-based search contexts.
package pwpage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/internal/capture"
)

// Config configures a Playwright browser.
type Config struct {
	Headless  bool         `yaml:"headless"`
	Viewport  dom.Viewport `yaml:"viewport"`
	UserAgent string       `yaml:"user_agent"`

	// Args are extra Chromium command line flags.
	Args []string `yaml:"args"`

	Logger *zap.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = dom.Viewport{Width: 1280, Height: 720}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Browser is a running Playwright Chromium with one browser context.
type Browser struct {
	cfg     Config
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

// Launch starts Playwright and Chromium.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	cfg.defaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("pwpage: start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     cfg.Args,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("pwpage: launch browser: %w", err)
	}

	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  int(cfg.Viewport.Width),
			Height: int(cfg.Viewport.Height),
		},
		IgnoreHttpsErrors: playwright.Bool(true),
	}
	if cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(cfg.UserAgent)
	}
	bctx, err := browser.NewContext(opts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("pwpage: create context: %w", err)
	}

	cfg.Logger.Info("pwpage: launched chromium", zap.Bool("headless", cfg.Headless))
	return &Browser{cfg: cfg, pw: pw, browser: browser, context: bctx}, nil
}

// NewPage opens a tab.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("pwpage: create page: %w", err)
	}
	return NewPage(p, b.cfg.Logger), nil
}

// Close stops the browser and the Playwright driver.
func (b *Browser) Close() error {
	return errors.Join(b.context.Close(), b.browser.Close(), b.pw.Stop())
}

// Page wraps a Playwright page. It implements dom.Source, dom.Highlighter
// and dom.LocatorContext.
type Page struct {
	page   playwright.Page
	logger *zap.Logger
	*scope
}

// NewPage wraps p.
func NewPage(p playwright.Page, logger *zap.Logger) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Page{page: p, logger: logger, scope: &scope{page: p}}
}

// Playwright returns the underlying page.
func (p *Page) Playwright() playwright.Page { return p.page }

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeout(ctx),
	})
	if err != nil {
		return fmt.Errorf("pwpage: navigate %s: %w", url, err)
	}
	return nil
}

// Capture implements dom.Source.
func (p *Page) Capture(ctx context.Context) (*dom.RawDocument, error) {
	return capture.Capture(ctx, pwFrame{frame: p.page.MainFrame()}, p.logger)
}

// ClearHighlights implements dom.Highlighter.
func (p *Page) ClearHighlights(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Evaluate(capture.ClearScript); err != nil {
		return fmt.Errorf("pwpage: clear highlights: %w", err)
	}
	return nil
}

// Highlight implements dom.Highlighter.
func (p *Page) Highlight(ctx context.Context, marks []dom.HighlightMark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Evaluate(capture.HighlightScript, markArgs(marks)); err != nil {
		return fmt.Errorf("pwpage: highlight: %w", err)
	}
	return nil
}

// Screenshot captures the viewport as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: timeout(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("pwpage: screenshot: %w", err)
	}
	return img, nil
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}

// markArgs converts marks to plain values for the driver's serializer.
func markArgs(marks []dom.HighlightMark) []interface{} {
	out := make([]interface{}, len(marks))
	for i, m := range marks {
		out[i] = map[string]interface{}{
			"index":   m.Index,
			"color":   m.Color,
			"focused": m.Focused,
			"box": map[string]interface{}{
				"x":      m.Box.X,
				"y":      m.Box.Y,
				"width":  m.Box.Width,
				"height": m.Box.Height,
			},
		}
	}
	return out
}

// timeout converts the deadline of ctx into a Playwright timeout in ms.
// nil keeps Playwright's default.
func timeout(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

// pwFrame adapts a Playwright frame to capture.Frame.
type pwFrame struct {
	frame playwright.Frame
}

func (f pwFrame) Eval(ctx context.Context, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := f.frame.Evaluate(script)
	if err != nil {
		return "", err
	}
	s, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("pwpage: capture returned %T", res)
	}
	return s, nil
}

func (f pwFrame) Child(ctx context.Context, ordinal int) (capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := f.frame.QuerySelectorAll("iframe, frame")
	if err != nil {
		return nil, err
	}
	if ordinal < 0 || ordinal >= len(els) {
		return nil, fmt.Errorf("frame %d of %d", ordinal, len(els))
	}
	child, err := els[ordinal].ContentFrame()
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("frame %d has no content", ordinal)
	}
	return pwFrame{frame: child}, nil
}
