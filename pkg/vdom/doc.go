// Package vdom provides the node model and mutation channel of the engine.
//
// A render function produces a fresh tree of VNodes on every pass. The
// engine compares the new tree with the previous one by kind, tag, key and
// component type, never by value, and records the differences as an ordered
// script of Edit values.
//
// # Core Types
//
// VNode is the tagged union of elements, text, fragments, component
// invocations and placeholders. Attrs and Listener build up elements.
// Component and Context are the contract between the engine and component
// code.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), Key(7),
//	    H1("Title"),
//	    P(Text("Content")),
//	    OnClick(handler),
//	)
//
// # Edits
//
// Mutations is the output channel. Every renderer-visible node gets a
// MountID from its allocator; ids are reused only after the node carrying
// them has been removed. Edits address nodes by mount id and by a stack of
// recently created nodes, so edits must be applied in order.
package vdom
