package scope

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Sentinel errors for scope operations.
var (
	// ErrRenderPanic is wrapped by a RenderError when a render function panicked.
	ErrRenderPanic = errors.New("scope: render panicked")

	// ErrScopeRemoved is returned when rendering a scope that is no longer alive.
	ErrScopeRemoved = errors.New("scope: scope removed")
)

// RenderError is returned when a component's render function fails.
type RenderError struct {
	Scope     vdom.ScopeID
	Component string
	Err       error
	Panic     any
	Stack     []byte
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("scope %d (%s): render: %v", e.Scope, e.Component, e.Err)
	}
	return fmt.Sprintf("scope %d: render: %v", e.Scope, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}
