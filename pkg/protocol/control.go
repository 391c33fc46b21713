package protocol

import "errors"

// ErrUnknownControl is returned for a control type this version does not know.
var ErrUnknownControl = errors.New("protocol: unknown control type")

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing          ControlType = 0x01 // Heartbeat
	ControlPong          ControlType = 0x02 // Response to ping
	ControlResyncRequest ControlType = 0x10 // Renderer asks for scripts after LastSeq
	ControlReset         ControlType = 0x11 // Renderer must drop its tree; a full script follows
	ControlClose         ControlType = 0x20 // Session close
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlResyncRequest:
		return "ResyncRequest"
	case ControlReset:
		return "Reset"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason indicates why a session is being closed.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00 // Normal closure
	CloseGoingAway      CloseReason = 0x01 // Renderer or host going away
	CloseServerShutdown CloseReason = 0x03 // Host shutting down
	CloseError          CloseReason = 0x04 // Error occurred
)

// String returns the string representation of the close reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Control is a decoded control message. Only the fields of its Type are set.
type Control struct {
	Type      ControlType
	Timestamp uint64      // Ping, Pong: Unix milliseconds
	Seq       uint64      // ResyncRequest: last applied; Reset: seq of the full script
	Reason    CloseReason // Close
	Message   string      // Close
}

// EncodeControl encodes a control message to bytes.
func EncodeControl(c *Control) []byte {
	e := NewEncoderWithCap(16 + len(c.Message))
	EncodeControlTo(e, c)
	return e.Bytes()
}

// EncodeControlTo encodes a control message using the provided encoder.
func EncodeControlTo(e *Encoder, c *Control) {
	e.WriteByte(byte(c.Type))
	switch c.Type {
	case ControlPing, ControlPong:
		e.WriteUint64(c.Timestamp)
	case ControlResyncRequest, ControlReset:
		e.WriteUvarint(c.Seq)
	case ControlClose:
		e.WriteByte(byte(c.Reason))
		e.WriteString(c.Message)
	}
}

// DecodeControl decodes a control message from bytes.
func DecodeControl(data []byte) (*Control, error) {
	return DecodeControlFrom(NewDecoder(data))
}

// DecodeControlFrom decodes a control message from a decoder.
func DecodeControlFrom(d *Decoder) (*Control, error) {
	typeByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(typeByte)}

	switch c.Type {
	case ControlPing, ControlPong:
		c.Timestamp, err = d.ReadUint64()
	case ControlResyncRequest, ControlReset:
		c.Seq, err = d.ReadUvarint()
	case ControlClose:
		var reason byte
		if reason, err = d.ReadByte(); err != nil {
			return nil, err
		}
		c.Reason = CloseReason(reason)
		c.Message, err = d.ReadString()
	default:
		return nil, ErrUnknownControl
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewPing creates a Ping message.
func NewPing(timestamp uint64) *Control {
	return &Control{Type: ControlPing, Timestamp: timestamp}
}

// NewPong creates a Pong message.
func NewPong(timestamp uint64) *Control {
	return &Control{Type: ControlPong, Timestamp: timestamp}
}

// NewResyncRequest creates a ResyncRequest message.
func NewResyncRequest(lastSeq uint64) *Control {
	return &Control{Type: ControlResyncRequest, Seq: lastSeq}
}

// NewReset creates a Reset message announcing the full script seq.
func NewReset(seq uint64) *Control {
	return &Control{Type: ControlReset, Seq: seq}
}

// NewClose creates a Close message.
func NewClose(reason CloseReason, message string) *Control {
	return &Control{Type: ControlClose, Reason: reason, Message: message}
}
