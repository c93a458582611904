// Package session keeps the current snapshot of a live document and acts
// on its elements by highlight index.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/internal/capture"
)

// Errors returned by Session.
var (
	ErrNoSnapshot    = errors.New("session: no snapshot")
	ErrStaleSnapshot = errors.New("session: snapshot is not current")
	ErrUnknownIndex  = errors.New("session: unknown highlight index")
)

// Build outcomes.
const (
	outcomeFresh  = "fresh"
	outcomeCached = "cached"
	outcomeFailed = "failed"
)

// Document is a live document that can be captured and searched.
type Document interface {
	dom.Source
	dom.SearchContext
}

// ActionError reports a failed element action.
type ActionError struct {
	Index int
	Op    string
	Cause error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("session: %s element %d: %v", e.Op, e.Index, e.Cause)
}

func (e *ActionError) Unwrap() error { return e.Cause }

// Session owns the current snapshot of one document. Builds are
// serialized because the highlight overlay is shared per document.
type Session struct {
	doc       Document
	opts      dom.Options
	relocator *dom.Relocator
	logger    *zap.Logger
	tracer    trace.Tracer

	buildMu sync.Mutex

	mu      sync.RWMutex
	current *dom.Snapshot
}

// Option configures a Session.
type Option func(*Session)

// WithOptions sets the snapshot build options.
func WithOptions(opts dom.Options) Option {
	return func(s *Session) { s.opts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer. The global tracer provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates a Session over doc.
func New(doc Document, opts ...Option) *Session {
	s := &Session{
		doc:    doc,
		opts:   dom.DefaultOptions(),
		logger: zap.NewNop(),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.relocator = dom.NewRelocator(s.opts.IncludeDynamicAttributes, s.logger)
	return s
}

// Current returns the current snapshot, or nil before the first Refresh.
func (s *Session) Current() *dom.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh builds a new snapshot and makes it current. When the build
// fails and a snapshot is cached, the cached one is returned instead.
func (s *Session) Refresh(ctx context.Context) (snap *dom.Snapshot, err error) {
	ctx, span := s.tracer.Start(ctx, "session.Refresh")
	defer func() { endSpan(span, err) }()

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	fresh, err := dom.BuildSnapshot(ctx, s.doc, s.opts)
	if err != nil {
		cached := s.Current()
		if cached == nil {
			recordBuild(ctx, time.Since(start), 0, outcomeFailed)
			return nil, fmt.Errorf("session: refresh: %w", err)
		}
		s.logger.Warn("session: refresh failed, using cached snapshot",
			zap.String("snapshot", cached.ID), zap.Error(err))
		recordBuild(ctx, time.Since(start), 0, outcomeCached)
		span.SetAttributes(attribute.Bool("session.cached", true))
		return cached, nil
	}

	s.mu.Lock()
	s.current = fresh
	s.mu.Unlock()

	recordBuild(ctx, time.Since(start), fresh.Len(), outcomeFresh)
	span.SetAttributes(
		attribute.String("session.snapshot", fresh.ID),
		attribute.Int("session.interactive", fresh.Len()),
	)
	s.logger.Debug("session: snapshot built",
		zap.String("snapshot", fresh.ID),
		zap.Int("interactive", fresh.Len()),
		zap.Int("nodes", len(fresh.Nodes)))
	return fresh, nil
}

// ElementByIndex returns the node with the given highlight index in the
// current snapshot.
func (s *Session) ElementByIndex(index int) (*dom.Node, error) {
	snap := s.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	n, ok := snap.ByHighlightIndex(index)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndex, index)
	}
	return n, nil
}

// Locate relocates the element with the given highlight index of snap.
// snap must be the current snapshot.
func (s *Session) Locate(ctx context.Context, snap *dom.Snapshot, index int) (h dom.Handle, err error) {
	ctx, span := s.tracer.Start(ctx, "session.Locate", trace.WithAttributes(attribute.Int("session.index", index)))
	defer func() { endSpan(span, err) }()

	cur := s.Current()
	if cur == nil {
		return nil, ErrNoSnapshot
	}
	if snap == nil || snap.ID != cur.ID {
		return nil, ErrStaleSnapshot
	}
	n, ok := snap.ByHighlightIndex(index)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndex, index)
	}
	return s.relocator.Locate(ctx, s.doc, snap, n.ID)
}

// Click clicks the element with the given highlight index of the current
// snapshot. A failed native click is retried once as a synthetic DOM click.
func (s *Session) Click(ctx context.Context, index int) (err error) {
	ctx, span := s.tracer.Start(ctx, "session.Click", trace.WithAttributes(attribute.Int("session.index", index)))
	defer func() { endSpan(span, err) }()

	h, err := s.Locate(ctx, s.Current(), index)
	if err != nil {
		recordAction(ctx, "click", "not_located")
		return &ActionError{Index: index, Op: "click", Cause: err}
	}

	clickErr := h.Click(ctx)
	if clickErr == nil {
		recordAction(ctx, "click", "native")
		return nil
	}
	s.logger.Debug("session: native click failed, dispatching synthetic click",
		zap.Int("index", index), zap.Error(clickErr))

	if evalErr := h.Evaluate(ctx, capture.ClickScript); evalErr != nil {
		recordAction(ctx, "click", "failed")
		return &ActionError{Index: index, Op: "click", Cause: errors.Join(clickErr, evalErr)}
	}
	recordAction(ctx, "click", "synthetic")
	span.SetAttributes(attribute.Bool("session.synthetic", true))
	return nil
}

// Fill replaces the content of the element with the given highlight index
// of the current snapshot.
func (s *Session) Fill(ctx context.Context, index int, text string) (err error) {
	ctx, span := s.tracer.Start(ctx, "session.Fill", trace.WithAttributes(attribute.Int("session.index", index)))
	defer func() { endSpan(span, err) }()

	h, err := s.Locate(ctx, s.Current(), index)
	if err != nil {
		recordAction(ctx, "fill", "not_located")
		return &ActionError{Index: index, Op: "fill", Cause: err}
	}
	if err := h.Fill(ctx, text); err != nil {
		recordAction(ctx, "fill", "failed")
		return &ActionError{Index: index, Op: "fill", Cause: err}
	}
	recordAction(ctx, "fill", "ok")
	return nil
}
