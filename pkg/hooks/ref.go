package hooks

import (
	"reflect"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Ref is a mutable box that survives renders. Writing Current does not
// schedule a render.
type Ref[T any] struct {
	Current T
}

// UseRef returns the ref cell for the current hook slot.
func UseRef[T any](cx vdom.Context, initial T) *Ref[T] {
	return cx.UseHook(func() any {
		return &Ref[T]{Current: initial}
	}).(*Ref[T])
}

type memoCell[T any] struct {
	deps  []any
	value T
	ok    bool
}

// UseMemo returns fn's result, recomputing it only when deps change.
// A nil deps slice recomputes on every render.
func UseMemo[T any](cx vdom.Context, fn func() T, deps ...any) T {
	cell := cx.UseHook(func() any { return &memoCell[T]{} }).(*memoCell[T])
	if !cell.ok || deps == nil || !depsEqual(cell.deps, deps) {
		cell.value = fn()
		cell.deps = deps
		cell.ok = true
	}
	return cell.value
}

func depsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

type cleanupCell struct {
	fn func()
}

func (c *cleanupCell) Dispose() {
	if c.fn != nil {
		c.fn()
	}
}

// UseCleanup registers fn to run when the scope is torn down. The function
// from the most recent render is the one that runs.
func UseCleanup(cx vdom.Context, fn func()) {
	cell := cx.UseHook(func() any { return &cleanupCell{} }).(*cleanupCell)
	cell.fn = fn
}

// UseScopeID returns the id of the rendering scope.
func UseScopeID(cx vdom.Context) vdom.ScopeID {
	return cx.ScopeID()
}
