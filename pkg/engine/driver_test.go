package engine_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/vtree/pkg/engine"
	"github.com/vango-dev/vtree/pkg/hooks"
	"github.com/vango-dev/vtree/pkg/scope"
	"github.com/vango-dev/vtree/pkg/vdom"
	"github.com/vango-dev/vtree/pkg/vtest"
)

func TestDepthOrder(t *testing.T) {
	var log []string
	marks := map[string]func(){}
	leaf := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		log = append(log, "leaf")
		marks["leaf"] = cx.ScheduleUpdate()
		return vdom.Span("leaf")
	})
	mid := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		log = append(log, "mid")
		marks["mid"] = cx.ScheduleUpdate()
		return vdom.Div(vdom.Comp(leaf, nil))
	})
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		log = append(log, "root")
		marks["root"] = cx.ScheduleUpdate()
		return vdom.Main(vdom.Comp(mid, nil))
	}))

	tests := []struct {
		name  string
		dirty []string
		want  []string
	}{
		{"deepest first", []string{"leaf", "mid", "root"}, []string{"root", "mid", "leaf"}},
		{"leaf only", []string{"leaf"}, []string{"leaf"}},
		{"skip a level", []string{"leaf", "root"}, []string{"root", "mid", "leaf"}},
		{"mid and leaf", []string{"leaf", "mid"}, []string{"mid", "leaf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log = nil
			for _, name := range tt.dirty {
				marks[name]()
			}
			if edits := h.Flush(); len(edits) != 0 {
				t.Errorf("edits = %v, want none", edits)
			}
			if !reflect.DeepEqual(log, tt.want) {
				t.Errorf("render order = %v, want %v", log, tt.want)
			}
			if h.Dom.HasWork() {
				t.Error("HasWork() = true after flush")
			}
		})
	}

	for id, want := range map[vdom.ScopeID]int{0: 0, 1: 1, 2: 2} {
		if got := h.Dom.Scope(id).Height(); got != want {
			t.Errorf("Scope(%d).Height() = %d, want %d", id, got, want)
		}
	}
}

func TestWorkWithDeadlineYields(t *testing.T) {
	const n = 4
	marks := make([]func(), n)
	item := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		i := cx.Props().(int)
		marks[i] = cx.ScheduleUpdate()
		renders := hooks.UseRef(cx, 0)
		renders.Current++
		return vdom.Li(vdom.Textf("%d:%d", i, renders.Current))
	})
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Ul(vdom.Repeat(n, func(i int) *vdom.VNode { return vdom.Comp(item, i) }))
	}))

	for _, mark := range marks {
		mark()
	}
	for step := 0; step < n; step++ {
		if !h.Dom.HasWork() {
			t.Fatalf("step %d: HasWork() = false", step)
		}
		edits := h.Step()
		vtest.ExpectOps(t, edits, vdom.EditSetText)
	}
	if h.Dom.HasWork() {
		t.Error("HasWork() = true after draining")
	}
	vtest.ExpectHTML(t, h, "<ul><li>0:2</li><li>1:2</li><li>2:2</li><li>3:2</li></ul>")

	// An idle call returns immediately.
	if edits := h.Step(); len(edits) != 0 {
		t.Errorf("idle Step() = %v, want none", edits)
	}
}

func TestStaleScheduleAfterRemoval(t *testing.T) {
	show := true
	cleaned := 0
	var mark func()
	child := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		mark = cx.ScheduleUpdate()
		hooks.UseCleanup(cx, func() { cleaned++ })
		return vdom.P("child")
	})
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Div(vdom.If(show, vdom.Comp(child, nil)))
	}))
	stale := mark

	stale()
	show = false
	h.HardDiff(h.Dom.Root())
	if h.Dom.HasWork() {
		t.Error("removed scope still counts as work")
	}
	if cleaned != 1 {
		t.Errorf("cleanups = %d, want 1", cleaned)
	}

	// The slot is reused by a new scope; the old handle must not reach it.
	show = true
	h.HardDiff(h.Dom.Root())
	fresh := mark
	stale()
	if h.Dom.HasWork() {
		t.Error("stale handle marked the new scope dirty")
	}

	fresh()
	if !h.Dom.HasWork() {
		t.Fatal("HasWork() = false after marking the new scope")
	}
	if edits := h.Flush(); len(edits) != 0 {
		t.Errorf("edits = %v, want none", edits)
	}
	vtest.ExpectHTML(t, h, "<div><p>child</p></div>")
}

func TestTeardownIsTransitive(t *testing.T) {
	show := true
	var disposed []string
	leaf := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		name := cx.Props().(string)
		hooks.UseCleanup(cx, func() { disposed = append(disposed, name) })
		return vdom.Span(name)
	})
	panel := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		hooks.UseCleanup(cx, func() { disposed = append(disposed, "panel") })
		return vdom.Section(vdom.Comp(leaf, "a"), vdom.Comp(leaf, "b"))
	})
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Div(vdom.If(show, vdom.Comp(panel, nil)))
	}))
	if got := h.Dom.LiveScopes(); got != 4 {
		t.Fatalf("LiveScopes() = %d, want 4", got)
	}

	show = false
	edits := h.HardDiff(h.Dom.Root())
	vtest.ExpectOps(t, edits,
		vdom.EditRemove, vdom.EditRemove, vdom.EditRemove, vdom.EditRemove, vdom.EditRemove)

	if got := h.Dom.LiveScopes(); got != 1 {
		t.Errorf("LiveScopes() = %d, want 1", got)
	}
	if want := []string{"a", "b", "panel"}; !reflect.DeepEqual(disposed, want) {
		t.Errorf("disposal order = %v, want %v", disposed, want)
	}
	for _, id := range []vdom.ScopeID{1, 2, 3} {
		if _, err := h.Dom.HardDiff(context.Background(), id); !errors.Is(err, engine.ErrScopeNotFound) {
			t.Errorf("HardDiff(%d) error = %v, want ErrScopeNotFound", id, err)
		}
	}
	if h.Dom.LiveMountIDs() != 1 || h.Doc.Len() != 1 {
		t.Errorf("live ids %d, document nodes %d; want 1", h.Dom.LiveMountIDs(), h.Doc.Len())
	}
}

func TestRenderErrors(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("root keeps its tree", func(t *testing.T) {
		fail := false
		h := vtest.Mount(t, vdom.Func(func(cx vdom.Context) (*vdom.VNode, error) {
			if fail {
				return nil, errBoom
			}
			return vdom.Div("ok"), nil
		}))

		fail = true
		edits, err := h.Dom.HardDiff(context.Background(), h.Dom.Root())
		if !errors.Is(err, errBoom) {
			t.Fatalf("HardDiff() error = %v, want %v", err, errBoom)
		}
		var re *scope.RenderError
		if !errors.As(err, &re) || re.Scope != h.Dom.Root() {
			t.Errorf("error %v is not a RenderError for the root", err)
		}
		if len(edits) != 0 {
			t.Errorf("edits = %v, want none", edits)
		}

		fail = false
		if edits := h.HardDiff(h.Dom.Root()); len(edits) != 0 {
			t.Errorf("edits after recovery = %v, want none", edits)
		}
		vtest.ExpectHTML(t, h, "<div>ok</div>")
	})

	t.Run("existing child keeps its tree", func(t *testing.T) {
		fail := false
		version := 0
		child := vdom.Func(func(cx vdom.Context) (*vdom.VNode, error) {
			if fail {
				return nil, errBoom
			}
			return vdom.Em(vdom.Textf("child %d", cx.Props())), nil
		})
		h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
			return vdom.Div(vdom.Textf("v%d", version), vdom.Comp(child, version))
		}))

		fail = true
		version = 1
		edits, err := h.Dom.HardDiff(context.Background(), h.Dom.Root())
		if !errors.Is(err, errBoom) {
			t.Fatalf("HardDiff() error = %v, want %v", err, errBoom)
		}
		h.Apply(edits)
		vtest.ExpectOps(t, edits, vdom.EditSetText)
		vtest.ExpectHTML(t, h, "<div>v1<em>child 0</em></div>")

		fail = false
		version = 2
		h.HardDiff(h.Dom.Root())
		vtest.ExpectHTML(t, h, "<div>v2<em>child 2</em></div>")
	})

	t.Run("new child becomes a placeholder", func(t *testing.T) {
		show := false
		bad := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
			panic("bad child")
		})
		h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
			return vdom.Div(vdom.If(show, vdom.Comp(bad, nil)), "tail")
		}))

		show = true
		edits, err := h.Dom.HardDiff(context.Background(), h.Dom.Root())
		if !errors.Is(err, scope.ErrRenderPanic) {
			t.Fatalf("HardDiff() error = %v, want ErrRenderPanic", err)
		}
		h.Apply(edits)
		vtest.ExpectHTML(t, h, "<div><!--placeholder-->tail</div>")
		if got := h.Dom.LiveScopes(); got != 2 {
			t.Errorf("LiveScopes() = %d, want 2", got)
		}
	})
}

func TestDispatchEvent(t *testing.T) {
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		count := hooks.UseState(cx, 0)
		return vdom.Div(
			vdom.Button(vdom.OnClick(func(vdom.Event) { count.Update(func(n int) int { return n + 1 }) }), "+"),
			vdom.Span(vdom.Textf("%d", count.Get())),
			vdom.A(vdom.OnClick(func(vdom.Event) { panic("broken link") }), "x"),
		)
	}))

	button := h.Find("button")
	h.Click(button)
	h.Click(button)
	if !h.Dom.HasWork() {
		t.Fatal("HasWork() = false after click")
	}
	edits := h.Flush()
	vtest.ExpectOps(t, edits, vdom.EditSetText)
	vtest.ExpectHTML(t, h, "<div><button>+</button><span>2</span><a>x</a></div>")

	root := h.Dom.Root()
	tests := []struct {
		name string
		ev   vdom.Event
		want error
	}{
		{"unknown scope", vdom.Event{Name: "click", Scope: 9, Target: button.ID}, engine.ErrScopeNotFound},
		{"unknown target", vdom.Event{Name: "click", Scope: root, Target: 99}, engine.ErrNodeNotFound},
		{"no listener", vdom.Event{Name: "input", Scope: root, Target: button.ID}, engine.ErrListenerNotFound},
		{"handler panic", vdom.Event{Name: "click", Scope: root, Target: h.Find("a").ID}, engine.ErrHandlerPanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Dom.DispatchEvent(tt.ev)
			if !errors.Is(err, tt.want) {
				t.Errorf("DispatchEvent() error = %v, want %v", err, tt.want)
			}
		})
	}

	var he *engine.HandlerError
	if err := h.Dom.DispatchEvent(tests[3].ev); !errors.As(err, &he) || he.Panic != "broken link" {
		t.Errorf("DispatchEvent() error = %v, want HandlerError carrying the panic", err)
	}
}

func TestAttributeAndListenerDiff(t *testing.T) {
	phase := 0
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		switch phase {
		case 0:
			return vdom.Button(vdom.Class("a"), vdom.Disabled(false), vdom.AttrOf("title", "t"))
		case 1:
			return vdom.Button(vdom.Class("b"), vdom.Disabled(true), vdom.OnClick(func(vdom.Event) {}))
		default:
			return vdom.Button(vdom.Class("b"), vdom.Disabled(false))
		}
	}))
	vtest.ExpectHTML(t, h, `<button class="a" title="t"></button>`)
	id := h.Find("button").ID

	phase = 1
	edits := h.HardDiff(h.Dom.Root())
	expectEdits(t, edits,
		vdom.Edit{Op: vdom.EditNewEventListener, Root: id, Name: "click", Scope: 0},
		vdom.Edit{Op: vdom.EditSetAttribute, Root: id, Name: "class", Value: "b"},
		vdom.Edit{Op: vdom.EditSetAttribute, Root: id, Name: "disabled", Value: "true"},
		vdom.Edit{Op: vdom.EditRemoveAttribute, Root: id, Name: "title"},
	)
	vtest.ExpectHTML(t, h, `<button class="b" disabled></button>`)

	phase = 2
	edits = h.HardDiff(h.Dom.Root())
	expectEdits(t, edits,
		vdom.Edit{Op: vdom.EditRemoveEventListener, Root: id, Name: "click"},
		vdom.Edit{Op: vdom.EditRemoveAttribute, Root: id, Name: "disabled"},
	)
	if _, ok := h.Find("button").Listener("click"); ok {
		t.Error("click listener survived removal")
	}
}
