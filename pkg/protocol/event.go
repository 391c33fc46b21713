package protocol

import (
	"errors"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// ErrInvalidEvent is returned for an event without a name or target.
var ErrInvalidEvent = errors.New("protocol: invalid event")

// Event is a user event reported by the renderer.
type Event struct {
	Seq    uint64       // Renderer-side sequence number
	Scope  vdom.ScopeID // Scope from the NewEventListener edit
	Target vdom.MountID // Element the listener is attached to
	Name   string       // "click", "input", ...
	Value  string       // Event specific payload
}

// VDOM converts the wire event to the engine's event type.
func (ev *Event) VDOM() vdom.Event {
	return vdom.Event{
		Name:   ev.Name,
		Scope:  ev.Scope,
		Target: ev.Target,
		Value:  ev.Value,
	}
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoderWithCap(16 + len(ev.Name) + len(ev.Value))
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteUvarint(ev.Seq)
	e.WriteUvarint(uint64(ev.Scope))
	e.WriteUvarint(uint64(ev.Target))
	e.WriteString(ev.Name)
	e.WriteString(ev.Value)
}

// DecodeEvent decodes an event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	return DecodeEventFrom(NewDecoder(data))
}

// DecodeEventFrom decodes an event from a decoder.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	ev := &Event{}
	var err error

	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	scope, err := d.ReadUint32Varint()
	if err != nil {
		return nil, err
	}
	ev.Scope = vdom.ScopeID(scope)

	target, err := d.ReadUint32Varint()
	if err != nil {
		return nil, err
	}
	ev.Target = vdom.MountID(target)

	if ev.Name, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ev.Value, err = d.ReadString(); err != nil {
		return nil, err
	}

	if ev.Name == "" || ev.Target == vdom.ContainerID {
		return nil, ErrInvalidEvent
	}
	return ev, nil
}
