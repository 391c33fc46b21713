package vtest

import (
	"context"
	"strings"
	"testing"

	"github.com/vango-dev/vtree/pkg/engine"
	"github.com/vango-dev/vtree/pkg/render"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Harness couples a VirtualDom with a reference document.
type Harness struct {
	t   testing.TB
	Dom *engine.VirtualDom
	Doc *render.Document

	// Last holds the edits of the most recent drive call.
	Last []vdom.Edit
}

// Mount creates a VirtualDom for root, rebuilds it and applies the edits.
// Render errors fail the test.
func Mount(t testing.TB, root vdom.Component, opts ...engine.Option) *Harness {
	t.Helper()
	h := &Harness{
		t:   t,
		Dom: engine.New(root, opts...),
		Doc: render.NewDocument(),
	}
	edits, err := h.Dom.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	h.Apply(edits)
	return h
}

// Apply applies edits to the document, failing the test on a bad script.
func (h *Harness) Apply(edits []vdom.Edit) {
	h.t.Helper()
	h.Last = edits
	if err := h.Doc.Apply(edits); err != nil {
		h.t.Fatalf("apply edits: %v\nedits: %v", err, edits)
	}
}

// Flush drives the VirtualDom until no dirty scopes remain and returns all
// edits produced. Render errors fail the test.
func (h *Harness) Flush() []vdom.Edit {
	h.t.Helper()
	edits, err := h.FlushErr()
	if err != nil {
		h.t.Fatalf("WorkWithDeadline() error = %v", err)
	}
	return edits
}

// FlushErr is Flush without failing on render errors. Edits are applied
// even when an error is returned.
func (h *Harness) FlushErr() ([]vdom.Edit, error) {
	h.t.Helper()
	edits, err := h.Dom.WorkWithDeadline(context.Background(), nil)
	h.Apply(edits)
	return edits, err
}

// Step runs one WorkWithDeadline call that yields after every scope.
func (h *Harness) Step() []vdom.Edit {
	h.t.Helper()
	edits, err := h.Dom.WorkWithDeadline(context.Background(), func() bool { return true })
	if err != nil {
		h.t.Fatalf("WorkWithDeadline() error = %v", err)
	}
	h.Apply(edits)
	return edits
}

// HardDiff re-renders scope id and applies the edits.
func (h *Harness) HardDiff(id vdom.ScopeID) []vdom.Edit {
	h.t.Helper()
	edits, err := h.Dom.HardDiff(context.Background(), id)
	if err != nil {
		h.t.Fatalf("HardDiff(%d) error = %v", id, err)
	}
	h.Apply(edits)
	return edits
}

// HTML returns the document's current markup.
func (h *Harness) HTML() string {
	return h.Doc.HTML()
}

// Find returns the first element with the given tag in document order,
// or nil.
func (h *Harness) Find(tag string) *render.Node {
	return find(h.Doc.Root(), func(n *render.Node) bool {
		return n.Kind == render.NodeElement && n.Tag == tag
	})
}

// FindAll returns every element with the given tag in document order.
func (h *Harness) FindAll(tag string) []*render.Node {
	var out []*render.Node
	walk(h.Doc.Root(), func(n *render.Node) {
		if n.Kind == render.NodeElement && n.Tag == tag {
			out = append(out, n)
		}
	})
	return out
}

// Dispatch delivers an event to the listener registered on n, using the
// scope recorded by the NewEventListener edit.
func (h *Harness) Dispatch(n *render.Node, event, value string) {
	h.t.Helper()
	if n == nil {
		h.t.Fatalf("dispatch %s: nil node", event)
	}
	s, ok := n.Listener(event)
	if !ok {
		h.t.Fatalf("dispatch %s: node %d has no listener", event, n.ID)
	}
	err := h.Dom.DispatchEvent(vdom.Event{Name: event, Scope: s, Target: n.ID, Value: value})
	if err != nil {
		h.t.Fatalf("DispatchEvent() error = %v", err)
	}
}

// Click dispatches a click event to n.
func (h *Harness) Click(n *render.Node) {
	h.t.Helper()
	h.Dispatch(n, "click", "")
}

// Input dispatches an input event carrying value to n.
func (h *Harness) Input(n *render.Node, value string) {
	h.t.Helper()
	h.Dispatch(n, "input", value)
}

func find(n *render.Node, match func(*render.Node) bool) *render.Node {
	if match(n) {
		return n
	}
	for _, c := range n.Children {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *render.Node, fn func(*render.Node)) {
	fn(n)
	for _, c := range n.Children {
		walk(c, fn)
	}
}

// ExpectHTML asserts the document markup equals want.
func ExpectHTML(t testing.TB, h *Harness, want string) {
	t.Helper()
	if got := h.HTML(); got != want {
		t.Errorf("HTML = %q, want %q", got, want)
	}
}

// ExpectContains asserts the document markup contains expected.
func ExpectContains(t testing.TB, h *Harness, expected string) {
	t.Helper()
	html := h.HTML()
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts the document markup does not contain unexpected.
func ExpectNotContains(t testing.TB, h *Harness, unexpected string) {
	t.Helper()
	html := h.HTML()
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectAttribute asserts some element carries attr="value".
func ExpectAttribute(t testing.TB, h *Harness, attr, value string) {
	t.Helper()
	html := h.HTML()
	needle := attr + `="` + value + `"`
	if !strings.Contains(html, needle) {
		t.Errorf("expected attribute %s=%q not found, got:\n%s", attr, value, truncate(html, 500))
	}
}

// ExpectOps asserts the ops of edits, in order.
func ExpectOps(t testing.TB, edits []vdom.Edit, want ...vdom.EditOp) {
	t.Helper()
	if len(edits) != len(want) {
		t.Errorf("edits = %v, want ops %v", edits, want)
		return
	}
	for i, e := range edits {
		if e.Op != want[i] {
			t.Errorf("edit %d = %v, want op %v", i, e, want[i])
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
