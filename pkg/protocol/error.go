package protocol

// ErrorCode identifies the type of error.
type ErrorCode uint16

const (
	ErrUnknown          ErrorCode = 0x0000 // Unknown error
	ErrInvalidFrame     ErrorCode = 0x0001 // Malformed frame
	ErrMalformedEvent   ErrorCode = 0x0002 // Malformed event payload
	ErrScopeNotFound    ErrorCode = 0x0003 // Event names a scope that is gone
	ErrNodeNotFound     ErrorCode = 0x0004 // Event targets an element that is gone
	ErrListenerNotFound ErrorCode = 0x0005 // Element has no listener for the event
	ErrHandlerPanic     ErrorCode = 0x0006 // Listener panicked
	ErrRenderFailed     ErrorCode = 0x0007 // A render function failed
	ErrRateLimited      ErrorCode = 0x0008 // Event queue full, event dropped
	ErrServerError      ErrorCode = 0x0100 // Internal host error
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrMalformedEvent:
		return "MalformedEvent"
	case ErrScopeNotFound:
		return "ScopeNotFound"
	case ErrNodeNotFound:
		return "NodeNotFound"
	case ErrListenerNotFound:
		return "ListenerNotFound"
	case ErrHandlerPanic:
		return "HandlerPanic"
	case ErrRenderFailed:
		return "RenderFailed"
	case ErrRateLimited:
		return "RateLimited"
	case ErrServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// ErrorMessage reports a failure to the other side.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool // The sender closes the connection after this frame
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoderWithCap(8 + len(em.Message))
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)

	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	return &ErrorMessage{Code: ErrorCode(code), Message: message, Fatal: fatal}, nil
}

// NewError creates a non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError creates a fatal ErrorMessage.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}
