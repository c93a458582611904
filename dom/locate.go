package dom

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotLocatable is returned when a captured node cannot be found in the
// current document. It is an expected outcome: the page may have changed.
var ErrNotLocatable = errors.New("dom: element not locatable")

// Relocator resolves captured nodes back to live handles.
type Relocator struct {
	// IncludeDynamicAttributes mirrors Options.IncludeDynamicAttributes.
	IncludeDynamicAttributes bool

	Logger *zap.Logger
}

// NewRelocator returns a Relocator logging to logger.
func NewRelocator(includeDynamic bool, logger *zap.Logger) *Relocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relocator{IncludeDynamicAttributes: includeDynamic, Logger: logger}
}

// Locate finds the live element for node id of snap, starting in root.
// Frame ancestors are entered outermost first, since each frame element
// is only addressable from its parent document. Every failure wraps
// ErrNotLocatable.
func (r *Relocator) Locate(ctx context.Context, root SearchContext, snap *Snapshot, id NodeID) (Handle, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	node := snap.Node(id)
	if node == nil {
		return nil, fmt.Errorf("%w: node %d not in snapshot", ErrNotLocatable, id)
	}
	if node.Kind != ElementNode {
		node = snap.Node(node.Parent)
		if node == nil {
			return nil, fmt.Errorf("%w: text node %d has no parent element", ErrNotLocatable, id)
		}
	}

	scope := root
	chain := snap.Ancestors(node.ID)
	for _, anc := range chain[:len(chain)-1] {
		if !anc.IsFrame() {
			continue
		}
		sel := SynthesizeSelector(anc, r.IncludeDynamicAttributes)
		next, err := scope.Frame(ctx, sel)
		if err != nil {
			logger.Debug("relocate: frame not entered", zap.String("selector", sel), zap.Error(err))
			return nil, fmt.Errorf("%w: frame %q: %v", ErrNotLocatable, sel, err)
		}
		if next == nil {
			return nil, fmt.Errorf("%w: frame %q not found", ErrNotLocatable, sel)
		}
		scope = next
	}

	sel := SynthesizeSelector(node, r.IncludeDynamicAttributes)
	h, err := resolve(ctx, scope, sel)
	if err != nil {
		logger.Debug("relocate: resolve failed", zap.String("selector", sel), zap.Error(err))
		return nil, fmt.Errorf("%w: %q: %v", ErrNotLocatable, sel, err)
	}
	if h == nil {
		logger.Debug("relocate: no match", zap.String("selector", sel))
		return nil, fmt.Errorf("%w: %q matched nothing", ErrNotLocatable, sel)
	}
	return h, nil
}

// resolve prefers locator lookups where the scope supports them; a direct
// query result is scrolled into view before it is returned.
func resolve(ctx context.Context, scope SearchContext, sel string) (Handle, error) {
	if lc, ok := scope.(LocatorContext); ok {
		return lc.Locate(ctx, sel)
	}
	h, err := scope.Query(ctx, sel)
	if err != nil || h == nil {
		return nil, err
	}
	if err := h.ScrollIntoView(ctx); err != nil {
		return nil, fmt.Errorf("scroll into view: %w", err)
	}
	return h, nil
}
