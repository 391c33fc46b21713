// Package hooks provides typed state primitives on top of scope hook cells.
//
// Hooks must be called unconditionally and in the same order on every
// render of a component:
//
//	func Counter(cx vdom.Context) *vdom.VNode {
//	    count := hooks.UseState(cx, 0)
//	    return vdom.Button(
//	        vdom.OnClick(func(vdom.Event) { count.Update(func(n int) int { return n + 1 }) }),
//	        vdom.Textf("%d", count.Get()),
//	    )
//	}
//
// Writing state never renders directly. It marks the owning scope dirty and
// the next drive cycle picks it up.
package hooks
