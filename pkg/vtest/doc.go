// Package vtest provides testing helpers for components.
//
// A Harness mounts a component in an engine.VirtualDom and applies every
// edit script it produces to a render.Document, so tests can assert on the
// markup a real renderer would show and on the edits that produced it.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    h := vtest.Mount(t, vdom.PureFunc(Counter))
//	    vtest.ExpectHTML(t, h, "<button>0</button>")
//
//	    h.Click(h.Find("button"))
//	    h.Flush()
//	    vtest.ExpectHTML(t, h, "<button>1</button>")
//	}
//
// # Render Assertions
//
//	vtest.ExpectContains(t, h, "Welcome")
//	vtest.ExpectNotContains(t, h, "Error")
//	vtest.ExpectAttribute(t, h, "class", "btn-primary")
//
// Any edit the document rejects fails the test immediately.
package vtest
