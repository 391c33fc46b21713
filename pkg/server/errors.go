package server

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/engine"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/scope"
)

// Sentinel errors for host and connection failures.
var (
	// ErrHostClosed is returned when an operation is attempted on a closed host.
	ErrHostClosed = errors.New("server: host closed")

	// ErrHostStarted is returned by Start on a host that is already running.
	ErrHostStarted = errors.New("server: host already started")

	// ErrEventQueueFull is returned when the event queue is full and an event is dropped.
	ErrEventQueueFull = errors.New("server: event queue full")

	// ErrInvalidHandshake is returned when the WebSocket handshake fails.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrConnectionClosed is returned when writing to a closed connection.
	ErrConnectionClosed = errors.New("server: connection closed")
)

// ConnError wraps a connection failure with the operation that hit it.
type ConnError struct {
	Remote string
	Op     string
	Err    error
}

// Error returns the error message with connection context.
func (e *ConnError) Error() string {
	if e.Remote == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: conn %s: %s: %v", e.Remote, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConnError) Unwrap() error {
	return e.Err
}

// errorCode maps an engine error to the code reported to the renderer.
func errorCode(err error) protocol.ErrorCode {
	var renderErr *scope.RenderError
	switch {
	case errors.Is(err, engine.ErrScopeNotFound):
		return protocol.ErrScopeNotFound
	case errors.Is(err, engine.ErrNodeNotFound):
		return protocol.ErrNodeNotFound
	case errors.Is(err, engine.ErrListenerNotFound):
		return protocol.ErrListenerNotFound
	case errors.Is(err, engine.ErrHandlerPanic):
		return protocol.ErrHandlerPanic
	case errors.Is(err, ErrEventQueueFull):
		return protocol.ErrRateLimited
	case errors.As(err, &renderErr):
		return protocol.ErrRenderFailed
	default:
		return protocol.ErrServerError
	}
}
