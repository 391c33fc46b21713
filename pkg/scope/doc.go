// Package scope owns the live component instances of a virtual tree.
//
// Each mounted component gets a Scope: its hook cells, its props, the tree
// produced by its last successful render and links to its parent and child
// scopes. Scopes live in an Arena indexed by vdom.ScopeID. Slots are reused
// after teardown; a generation counter lets stale references detect that
// the scope they point at is gone.
//
// # Hooks
//
// Hook cells are addressed purely by call position. The Nth UseHook call in
// a render always returns the Nth cell. Calling hooks conditionally is a
// caller error and is not detected.
//
// Cells that implement Disposer are disposed in reverse slot order when the
// scope is torn down.
package scope
