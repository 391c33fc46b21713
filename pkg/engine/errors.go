package engine

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Sentinel errors for engine operations.
var (
	// ErrScopeNotFound is returned when a scope id does not name a live scope.
	ErrScopeNotFound = errors.New("engine: scope not found")

	// ErrNotMounted is returned by drive calls made before Rebuild.
	ErrNotMounted = errors.New("engine: not mounted")

	// ErrAlreadyMounted is returned by a second call to Rebuild.
	ErrAlreadyMounted = errors.New("engine: already mounted")

	// ErrNodeNotFound is returned when an event targets a mount id that is not
	// an element of the scope's latest tree.
	ErrNodeNotFound = errors.New("engine: node not found")

	// ErrListenerNotFound is returned when the target element has no listener
	// for the event.
	ErrListenerNotFound = errors.New("engine: listener not found")

	// ErrHandlerPanic is wrapped by a HandlerError when a listener panicked.
	ErrHandlerPanic = errors.New("engine: handler panicked")
)

// HandlerError is returned by DispatchEvent when a listener panics.
type HandlerError struct {
	Scope  vdom.ScopeID
	Target vdom.MountID
	Event  string
	Panic  any
	Stack  []byte
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("engine: handler %s on %d (scope %d) panicked: %v", e.Event, e.Target, e.Scope, e.Panic)
}

// Unwrap returns ErrHandlerPanic.
func (e *HandlerError) Unwrap() error {
	return ErrHandlerPanic
}
