package vtest

import (
	"testing"

	"github.com/vango-dev/vtree/pkg/hooks"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func counter(cx vdom.Context) *vdom.VNode {
	count := hooks.UseState(cx, 0)
	return vdom.Button(
		vdom.Class("btn"),
		vdom.OnClick(func(vdom.Event) { count.Update(func(n int) int { return n + 1 }) }),
		vdom.Textf("%d", count.Get()),
	)
}

func TestHarnessCounter(t *testing.T) {
	h := Mount(t, vdom.PureFunc(counter))
	ExpectHTML(t, h, `<button class="btn">0</button>`)

	h.Click(h.Find("button"))
	h.Click(h.Find("button"))
	edits := h.Flush()

	ExpectHTML(t, h, `<button class="btn">2</button>`)
	ExpectOps(t, edits, vdom.EditSetText)
	ExpectAttribute(t, h, "class", "btn")
	ExpectNotContains(t, h, ">0<")

	if h.Dom.HasWork() {
		t.Error("HasWork() = true after Flush")
	}
}

func TestHarnessInput(t *testing.T) {
	h := Mount(t, vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		text := hooks.UseState(cx, "")
		return vdom.Div(
			vdom.Input(vdom.OnInput(func(e vdom.Event) { text.Set(e.Value) })),
			vdom.P(text.Get()),
		)
	}))

	h.Input(h.Find("input"), "hello")
	h.Flush()
	ExpectContains(t, h, "<p>hello</p>")
	if n := len(h.FindAll("p")); n != 1 {
		t.Errorf("FindAll(p) = %d, want 1", n)
	}
}
