package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anxuanzi/bua-dom/browser"
	"github.com/anxuanzi/bua-dom/config"
	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/htmldoc"
	"github.com/anxuanzi/bua-dom/pwpage"
	"github.com/anxuanzi/bua-dom/screenshot"
	"github.com/anxuanzi/bua-dom/session"
)

// =============================================================================
// FLAGS
// =============================================================================

type rootFlags struct {
	url          string
	htmlFile     string
	configPath   string
	driver       string
	highlight    bool
	expansion    int
	dynamicAttrs bool
	focus        int
	timeout      time.Duration
}

type app struct {
	flags  rootFlags
	cfg    *config.Config
	logger *zap.Logger
}

// target is an opened document plus whatever the backend offers on top.
type target struct {
	doc     session.Document
	shooter interface {
		Screenshot(ctx context.Context) ([]byte, error)
	}
	events func() []htmldoc.Event
	close  func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "domsnap",
		Short:         "Index the interactive elements of a web page",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.url, "url", "", "page to open in a browser")
	pf.StringVar(&a.flags.htmlFile, "html", "", "HTML file to load without a browser")
	pf.StringVar(&a.flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.flags.driver, "driver", "", "browser driver: rod or playwright")
	pf.BoolVar(&a.flags.highlight, "highlight", true, "draw the index overlay into the page")
	pf.IntVar(&a.flags.expansion, "expansion", dom.DefaultViewportExpansion, "viewport expansion in pixels, negative disables the visibility test")
	pf.BoolVar(&a.flags.dynamicAttrs, "dynamic-attrs", true, "allow data-* test ids in selectors")
	pf.IntVar(&a.flags.focus, "focus", -1, "highlight index drawn in the focus color")
	pf.DurationVar(&a.flags.timeout, "timeout", 2*time.Minute, "overall command timeout")

	root.AddCommand(
		a.snapshotCmd(),
		a.locateCmd(),
		a.clickCmd(),
		a.fillCmd(),
	)
	return root
}

// configure loads the configuration and applies explicitly set flags on top.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath, ".env")
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver = a.flags.driver
	}
	if flags.Changed("highlight") {
		cfg.Snapshot.HighlightElements = a.flags.highlight
	}
	if flags.Changed("expansion") {
		cfg.Snapshot.ViewportExpansion = a.flags.expansion
	}
	if flags.Changed("dynamic-attrs") {
		cfg.Snapshot.IncludeDynamicAttributes = a.flags.dynamicAttrs
	}
	if flags.Changed("focus") && a.flags.focus >= 0 {
		focus := a.flags.focus
		cfg.Snapshot.FocusHighlightIndex = &focus
		cfg.Annotation.FocusIndex = &focus
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	cfg.Browser.Logger = logger
	cfg.Playwright.Logger = logger

	a.cfg = cfg
	a.logger = logger
	return nil
}

// open loads --html, or navigates a browser to --url.
func (a *app) open(ctx context.Context) (*target, error) {
	switch {
	case a.flags.htmlFile != "" && a.flags.url != "":
		return nil, errors.New("--url and --html are mutually exclusive")
	case a.flags.htmlFile != "":
		return a.openHTML()
	case a.flags.url == "":
		return nil, errors.New("one of --url or --html is required")
	case a.cfg.Driver == config.DriverPlaywright:
		return a.openPlaywright(ctx)
	default:
		return a.openRod(ctx)
	}
}

func (a *app) openHTML() (*target, error) {
	f, err := os.Open(a.flags.htmlFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vp := a.cfg.Browser.Viewport
	doc, err := htmldoc.Parse(f,
		htmldoc.WithViewport(vp.Width, vp.Height),
		htmldoc.WithURL("file://"+a.flags.htmlFile))
	if err != nil {
		return nil, err
	}
	return &target{doc: doc, events: doc.Events, close: func() error { return nil }}, nil
}

func (a *app) openRod(ctx context.Context) (*target, error) {
	m := browser.NewManager(a.cfg.Browser)
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	page, err := m.NewPage(ctx)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	if err := page.Navigate(ctx, a.flags.url); err != nil {
		_ = m.Close()
		return nil, err
	}
	return &target{doc: page, shooter: page, close: m.Close}, nil
}

func (a *app) openPlaywright(ctx context.Context) (*target, error) {
	b, err := pwpage.Launch(ctx, a.cfg.Playwright)
	if err != nil {
		return nil, err
	}
	page, err := b.NewPage(ctx)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if err := page.Navigate(ctx, a.flags.url); err != nil {
		_ = b.Close()
		return nil, err
	}
	return &target{doc: page, shooter: page, close: b.Close}, nil
}

// run opens the target, builds a snapshot and hands both to fn.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, t *target, s *session.Session, snap *dom.Snapshot) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.flags.timeout)
	defer cancel()

	t, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.close(); err != nil {
			a.logger.Warn("domsnap: close", zap.Error(err))
		}
	}()

	s := session.New(t.doc, session.WithOptions(a.cfg.Snapshot), session.WithLogger(a.logger))
	snap, err := s.Refresh(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, t, s, snap)
}

// =============================================================================
// SNAPSHOT COMMAND
// =============================================================================

func (a *app) snapshotCmd() *cobra.Command {
	var (
		asJSON   bool
		maxElems int
		shotPath string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the indexed interactive elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, t *target, s *session.Session, snap *dom.Snapshot) error {
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(snap); err != nil {
						return err
					}
				} else {
					fmt.Fprint(out, snap.ElementListing(nil, maxElems))
				}
				if shotPath != "" {
					return a.writeScreenshot(ctx, t, snap, shotPath)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full snapshot as JSON")
	cmd.Flags().IntVar(&maxElems, "max", 0, "list at most this many elements, 0 for all")
	cmd.Flags().StringVar(&shotPath, "screenshot", "", "write an annotated screenshot to this path")
	return cmd
}

func (a *app) writeScreenshot(ctx context.Context, t *target, snap *dom.Snapshot, path string) error {
	if t.shooter == nil {
		return errors.New("screenshots need a browser, use --url")
	}
	img, err := t.shooter.Screenshot(ctx)
	if err != nil {
		return err
	}
	img, err = screenshot.Annotate(img, snap, a.cfg.Annotation)
	if err != nil {
		return err
	}
	a.logger.Info("domsnap: wrote screenshot", zap.String("path", path), zap.Int("bytes", len(img)))
	return os.WriteFile(path, img, 0o644)
}

// =============================================================================
// LOCATE / CLICK / FILL COMMANDS
// =============================================================================

func (a *app) locateCmd() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Relocate an indexed element in the live page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, t *target, s *session.Session, snap *dom.Snapshot) error {
				n, err := s.ElementByIndex(index)
				if err != nil {
					return err
				}
				if _, err := s.Locate(ctx, snap, index); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "[%d] %s\n", index, n.XPath)
				fmt.Fprintf(out, "selector: %s\n", dom.SynthesizeSelector(n, a.cfg.Snapshot.IncludeDynamicAttributes))
				if text := snap.TextUntilNextClickable(n.ID); text != "" {
					fmt.Fprintf(out, "text: %s\n", text)
				}
				return nil
			})
		},
	}
	indexFlag(cmd, &index)
	return cmd
}

func (a *app) clickCmd() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "click",
		Short: "Click an indexed element",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, t *target, s *session.Session, snap *dom.Snapshot) error {
				if err := s.Click(ctx, index); err != nil {
					return err
				}
				reportEvents(cmd.OutOrStdout(), t)
				fmt.Fprintf(cmd.OutOrStdout(), "clicked [%d]\n", index)
				return nil
			})
		},
	}
	indexFlag(cmd, &index)
	return cmd
}

func (a *app) fillCmd() *cobra.Command {
	var (
		index int
		text  string
	)
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Type text into an indexed element",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, t *target, s *session.Session, snap *dom.Snapshot) error {
				if err := s.Fill(ctx, index, text); err != nil {
					return err
				}
				reportEvents(cmd.OutOrStdout(), t)
				fmt.Fprintf(cmd.OutOrStdout(), "filled [%d]\n", index)
				return nil
			})
		},
	}
	indexFlag(cmd, &index)
	cmd.Flags().StringVar(&text, "text", "", "text to enter")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func indexFlag(cmd *cobra.Command, index *int) {
	cmd.Flags().IntVar(index, "index", 0, "highlight index of the element")
	_ = cmd.MarkFlagRequired("index")
}

// reportEvents prints the recorded actions of an offline document.
func reportEvents(w io.Writer, t *target) {
	if t.events == nil {
		return
	}
	for _, ev := range t.events() {
		if ev.Op == "scroll" {
			continue
		}
		if ev.Value != "" {
			fmt.Fprintf(w, "%s <%s> %q\n", ev.Op, ev.Node.Data, ev.Value)
		} else {
			fmt.Fprintf(w, "%s <%s>\n", ev.Op, ev.Node.Data)
		}
	}
}
