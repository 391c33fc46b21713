package vdom

import (
	"reflect"
	"runtime"
)

// Context is the render-time view of a scope handed to a component.
//
// Hooks must be requested in the same order on every render of a scope.
// The engine does not detect a change in hook order; the cell returned for
// a reordered call is whatever the slot at that position already holds.
type Context interface {
	// ScopeID returns the identity of the scope being rendered.
	ScopeID() ScopeID

	// Props returns the props the scope was last rendered with.
	Props() any

	// UseHook returns the cell for the next hook slot, creating it with
	// init on the first render.
	UseHook(init func() any) any

	// ScheduleUpdate returns a function that marks the scope dirty.
	// It is safe to call from any goroutine.
	ScheduleUpdate() func()
}

// Component is anything that can render to a VNode.
type Component interface {
	Render(cx Context) (*VNode, error)
}

// Func adapts a fallible render function to Component.
type Func func(cx Context) (*VNode, error)

// Render implements Component.
func (f Func) Render(cx Context) (*VNode, error) {
	return f(cx)
}

// PureFunc adapts a render function that cannot fail.
type PureFunc func(cx Context) *VNode

// Render implements Component.
func (f PureFunc) Render(cx Context) (*VNode, error) {
	return f(cx), nil
}

// Named is implemented by components that report their own name.
type Named interface {
	Name() string
}

// SameComponent reports whether two component references have the same type.
// Function components are the same when they share their code pointer.
func SameComponent(a, b Component) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return true
}

// ComponentName returns a human-readable name for logs and metrics.
func ComponentName(c Component) string {
	if c == nil {
		return ""
	}
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	v := reflect.ValueOf(c)
	if v.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return reflect.TypeOf(c).String()
}
