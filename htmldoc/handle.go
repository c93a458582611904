package htmldoc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Errors returned by element actions.
var (
	ErrDisabled    = errors.New("htmldoc: element is disabled")
	ErrNotFillable = errors.New("htmldoc: element is not fillable")
)

// Event records an action performed on an element.
type Event struct {
	Op    string
	Node  *html.Node
	Value string
}

// Element is a live handle onto a node of a Document. It implements dom.Handle.
type Element struct {
	doc  *Document
	node *html.Node
}

// Node returns the underlying HTML node.
func (e *Element) Node() *html.Node { return e.node }

// ScrollIntoView records a scroll.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.record(Event{Op: "scroll", Node: e.node})
	return nil
}

// Click records a click. Disabled form controls refuse it.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, disabled := attrOK(e.node, "disabled"); disabled {
		return ErrDisabled
	}
	e.doc.record(Event{Op: "click", Node: e.node})
	return nil
}

// Fill replaces the value of a text control.
func (e *Element) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !fillable(e.node) {
		return fmt.Errorf("%w: <%s>", ErrNotFillable, e.node.Data)
	}
	if _, disabled := attrOK(e.node, "disabled"); disabled {
		return ErrDisabled
	}
	setAttr(e.node, "value", text)
	e.doc.record(Event{Op: "fill", Node: e.node, Value: text})
	return nil
}

// Evaluate records fn. Only the click function is understood; it clicks
// regardless of the disabled state, like a synthetic DOM click.
func (e *Element) Evaluate(ctx context.Context, fn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.Contains(fn, ".click()") {
		e.doc.record(Event{Op: "click", Node: e.node, Value: "synthetic"})
		return nil
	}
	e.doc.record(Event{Op: "evaluate", Node: e.node, Value: fn})
	return nil
}

// Events returns the actions performed so far on this document and its frames.
func (d *Document) Events() []Event {
	r := d.recorder
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (d *Document) record(ev Event) {
	r := d.recorder
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func fillable(n *html.Node) bool {
	if n.Data == "input" || n.Data == "textarea" {
		return true
	}
	v, ok := attrOK(n, "contenteditable")
	return ok && (v == "" || v == "true")
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name && a.Namespace == "" {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}
