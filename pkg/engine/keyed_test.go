package engine_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/vango-dev/vtree/pkg/vdom"
	"github.com/vango-dev/vtree/pkg/vtest"
)

// keyedRow renders its key and the serial number it was mounted with.
type keyedRow struct {
	mounted *int
}

func (r keyedRow) Render(cx vdom.Context) (*vdom.VNode, error) {
	serial := cx.UseHook(func() any {
		*r.mounted++
		return *r.mounted
	}).(int)
	return vdom.Li(vdom.Textf("%s#%d", cx.Props(), serial)), nil
}

func mountKeyedList(t *testing.T, order *[]string) (*vtest.Harness, *int) {
	t.Helper()
	mounted := new(int)
	row := keyedRow{mounted: mounted}
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Ul(vdom.Range(*order, func(k string, _ int) *vdom.VNode {
			return vdom.Comp(row, k, vdom.Key(k))
		}))
	}))
	return h, mounted
}

func TestKeyedReorderPreservesState(t *testing.T) {
	order := []string{"a", "b", "c", "d"}
	h, mounted := mountKeyedList(t, &order)
	vtest.ExpectHTML(t, h, "<ul><li>a#1</li><li>b#2</li><li>c#3</li><li>d#4</li></ul>")
	scopes := h.Dom.LiveScopes()

	order = []string{"d", "c", "b", "a"}
	edits := h.HardDiff(h.Dom.Root())

	for _, e := range edits {
		switch e.Op {
		case vdom.EditPushRoot, vdom.EditInsertAfter, vdom.EditInsertBefore:
		default:
			t.Errorf("unexpected edit %v in keyed reorder", e)
		}
	}
	if len(edits) != 6 {
		t.Errorf("edits = %v, want 3 moves", edits)
	}
	vtest.ExpectHTML(t, h, "<ul><li>d#4</li><li>c#3</li><li>b#2</li><li>a#1</li></ul>")
	if *mounted != 4 {
		t.Errorf("rows mounted = %d, want 4", *mounted)
	}
	if h.Dom.LiveScopes() != scopes {
		t.Errorf("LiveScopes() = %d, want %d", h.Dom.LiveScopes(), scopes)
	}
}

func TestKeyedInsertRemove(t *testing.T) {
	order := []string{"a", "b", "c"}
	h, mounted := mountKeyedList(t, &order)

	order = []string{"x", "a", "c", "y"}
	h.HardDiff(h.Dom.Root())
	vtest.ExpectHTML(t, h, "<ul><li>x#4</li><li>a#1</li><li>c#3</li><li>y#5</li></ul>")

	order = []string{"c", "x"}
	h.HardDiff(h.Dom.Root())
	vtest.ExpectHTML(t, h, "<ul><li>c#3</li><li>x#4</li></ul>")

	order = []string{"p", "q"}
	edits := h.HardDiff(h.Dom.Root())
	vtest.ExpectHTML(t, h, "<ul><li>p#6</li><li>q#7</li></ul>")
	var replaces int
	for _, e := range edits {
		if e.Op == vdom.EditReplaceWith {
			replaces++
		}
	}
	if replaces != 1 {
		t.Errorf("ReplaceWith count = %d, want 1 when no keys survive", replaces)
	}

	order = nil
	h.HardDiff(h.Dom.Root())
	vtest.ExpectHTML(t, h, "<ul></ul>")

	order = []string{"z"}
	edits = h.HardDiff(h.Dom.Root())
	vtest.ExpectOps(t, edits,
		vdom.EditPushRoot,
		vdom.EditCreateElement,
		vdom.EditCreateTextNode,
		vdom.EditAppendChildren,
		vdom.EditAppendChildren,
		vdom.EditPopRoot,
	)
	vtest.ExpectHTML(t, h, "<ul><li>z#8</li></ul>")
	if *mounted != 8 {
		t.Errorf("rows mounted = %d, want 8", *mounted)
	}
	if h.Dom.LiveScopes() != 2 {
		t.Errorf("LiveScopes() = %d, want 2", h.Dom.LiveScopes())
	}
}

func TestKeyedConvergence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := strings.Split("abcdefghijkl", "")

	var order []string
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Div(vdom.Range(order, func(k string, _ int) *vdom.VNode {
			if k[0]%3 == 0 {
				// Multi-root children exercise moves of several nodes.
				return vdom.Fragment(vdom.Key(k), vdom.Text(k), vdom.Text(k))
			}
			return vdom.Span(vdom.Key(k), k)
		}))
	}))

	for round := 0; round < 200; round++ {
		perm := rng.Perm(len(alphabet))
		n := rng.Intn(len(alphabet) + 1)
		order = order[:0]
		for _, i := range perm[:n] {
			order = append(order, alphabet[i])
		}

		h.HardDiff(h.Dom.Root())

		var want strings.Builder
		want.WriteString("<div>")
		for _, k := range order {
			if k[0]%3 == 0 {
				want.WriteString(k + k)
			} else {
				want.WriteString("<span>" + k + "</span>")
			}
		}
		want.WriteString("</div>")
		if got := h.HTML(); got != want.String() {
			t.Fatalf("round %d order %v:\nHTML = %q\nwant   %q", round, order, got, want.String())
		}
		if h.Dom.LiveMountIDs() != h.Doc.Len() {
			t.Fatalf("round %d: live ids %d, document nodes %d", round, h.Dom.LiveMountIDs(), h.Doc.Len())
		}
	}
}

func TestMixedKeyedAndUnkeyed(t *testing.T) {
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Ul(
			vdom.Li(vdom.Key("a"), "a"),
			vdom.Li("x"),
			vdom.Li(vdom.Key("b"), "b"),
		)
	}))
	lis := h.FindAll("li")
	a, x, b := lis[0].ID, lis[1].ID, lis[2].ID

	edits := h.HardDiff(h.Dom.Root())

	// Unkeyed siblings of keyed nodes never match and are recreated.
	vtest.ExpectOps(t, edits,
		vdom.EditCreateElement,
		vdom.EditCreateTextNode,
		vdom.EditAppendChildren,
		vdom.EditReplaceWith,
		vdom.EditRemove,
	)
	if edits[3].Root != x {
		t.Errorf("ReplaceWith root = %d, want %d", edits[3].Root, x)
	}
	lis = h.FindAll("li")
	if lis[0].ID != a || lis[2].ID != b {
		t.Errorf("keyed ids changed: %d,%d want %d,%d", lis[0].ID, lis[2].ID, a, b)
	}
	vtest.ExpectHTML(t, h, "<ul><li>a</li><li>x</li><li>b</li></ul>")
}

func TestDuplicateKeys(t *testing.T) {
	keys := []string{"a", "a", "b"}
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Ul(vdom.Range(keys, func(k string, i int) *vdom.VNode {
			return vdom.Li(vdom.Key(k), vdom.Textf("%s%d", k, i))
		}))
	}))

	keys = []string{"b", "a", "a"}
	h.HardDiff(h.Dom.Root())
	vtest.ExpectHTML(t, h, "<ul><li>b0</li><li>a1</li><li>a2</li></ul>")
	if h.Dom.LiveMountIDs() != h.Doc.Len() {
		t.Errorf("live ids %d, document nodes %d", h.Dom.LiveMountIDs(), h.Doc.Len())
	}
}

func TestUnkeyedGrowShrink(t *testing.T) {
	n := 2
	h := vtest.Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		return vdom.Div(vdom.Repeat(n, func(i int) *vdom.VNode { return vdom.P(vdom.Textf("%d", i)) }))
	}))

	n = 4
	edits := h.HardDiff(h.Dom.Root())
	if last := edits[len(edits)-1]; last.Op != vdom.EditInsertAfter || last.Many != 2 {
		t.Errorf("last edit = %v, want InsertAfter many 2", last)
	}
	vtest.ExpectHTML(t, h, "<div><p>0</p><p>1</p><p>2</p><p>3</p></div>")

	n = 1
	edits = h.HardDiff(h.Dom.Root())
	vtest.ExpectOps(t, edits, vdom.EditRemove, vdom.EditRemove, vdom.EditRemove, vdom.EditRemove, vdom.EditRemove, vdom.EditRemove)
	vtest.ExpectHTML(t, h, "<div><p>0</p></div>")
}
