package vdom

import "reflect"

// Event is delivered by the host when the renderer reports a user interaction.
type Event struct {
	Name   string  // "click", "input", ...
	Scope  ScopeID // Scope that registered the listener
	Target MountID // Element the listener is attached to
	Value  string  // Input value, key name, ... (event specific)
}

// Listener binds a handler to an event name.
type Listener struct {
	Event   string
	Handler func(Event)
}

// SameHandler reports whether two listeners share handler code.
// Closures created from the same function literal compare equal; the
// engine always dispatches to the most recently rendered closure.
func SameHandler(a, b Listener) bool {
	if a.Handler == nil || b.Handler == nil {
		return a.Handler == nil && b.Handler == nil
	}
	return reflect.ValueOf(a.Handler).Pointer() == reflect.ValueOf(b.Handler).Pointer()
}

// On handles an arbitrary event.
func On(name string, handler func(Event)) Listener {
	return Listener{Event: name, Handler: handler}
}

// OnClick handles click events.
func OnClick(handler func(Event)) Listener { return On("click", handler) }

// OnDblClick handles double-click events.
func OnDblClick(handler func(Event)) Listener { return On("dblclick", handler) }

// OnInput handles input events (fired when value changes).
func OnInput(handler func(Event)) Listener { return On("input", handler) }

// OnChange handles change events (fired when value is committed).
func OnChange(handler func(Event)) Listener { return On("change", handler) }

// OnSubmit handles form submit events.
func OnSubmit(handler func(Event)) Listener { return On("submit", handler) }

// OnKeyDown handles keydown events.
func OnKeyDown(handler func(Event)) Listener { return On("keydown", handler) }

// OnFocus handles focus events.
func OnFocus(handler func(Event)) Listener { return On("focus", handler) }

// OnBlur handles blur events.
func OnBlur(handler func(Event)) Listener { return On("blur", handler) }
