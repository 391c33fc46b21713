package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// ErrUnknownEditOp is returned when an edit carries an op byte this
// version does not know.
var ErrUnknownEditOp = errors.New("protocol: unknown edit op")

// EditsFrame is the edit script of one drive call.
type EditsFrame struct {
	Seq   uint64
	Edits []vdom.Edit
}

// EncodeEdits encodes an edits frame payload.
func EncodeEdits(ef *EditsFrame) []byte {
	e := NewEncoderWithCap(16 + 8*len(ef.Edits))
	EncodeEditsTo(e, ef)
	return e.Bytes()
}

// EncodeEditsTo encodes an edits frame payload using the provided encoder.
func EncodeEditsTo(e *Encoder, ef *EditsFrame) {
	e.WriteUvarint(ef.Seq)
	e.WriteUvarint(uint64(len(ef.Edits)))
	for i := range ef.Edits {
		encodeEdit(e, &ef.Edits[i])
	}
}

func encodeEdit(e *Encoder, ed *vdom.Edit) {
	e.WriteByte(byte(ed.Op))
	switch ed.Op {
	case vdom.EditPushRoot, vdom.EditRemove, vdom.EditCreatePlaceholder:
		e.WriteUvarint(uint64(ed.Root))
	case vdom.EditPopRoot:
	case vdom.EditAppendChildren:
		e.WriteUvarint(uint64(ed.Many))
	case vdom.EditReplaceWith, vdom.EditInsertAfter, vdom.EditInsertBefore:
		e.WriteUvarint(uint64(ed.Root))
		e.WriteUvarint(uint64(ed.Many))
	case vdom.EditCreateTextNode, vdom.EditSetText:
		e.WriteUvarint(uint64(ed.Root))
		e.WriteString(ed.Text)
	case vdom.EditCreateElement:
		e.WriteUvarint(uint64(ed.Root))
		e.WriteString(ed.Tag)
	case vdom.EditNewEventListener:
		e.WriteUvarint(uint64(ed.Root))
		e.WriteString(ed.Name)
		e.WriteUvarint(uint64(ed.Scope))
	case vdom.EditRemoveEventListener, vdom.EditRemoveAttribute:
		e.WriteUvarint(uint64(ed.Root))
		e.WriteString(ed.Name)
	case vdom.EditSetAttribute:
		e.WriteUvarint(uint64(ed.Root))
		e.WriteString(ed.Name)
		e.WriteString(ed.Value)
	}
}

// DecodeEdits decodes an edits frame payload.
func DecodeEdits(data []byte) (*EditsFrame, error) {
	d := NewDecoder(data)
	ef, err := DecodeEditsFrom(d)
	if err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, fmt.Errorf("protocol: %d trailing bytes after edits", d.Remaining())
	}
	return ef, nil
}

// DecodeEditsFrom decodes an edits frame payload from a decoder.
func DecodeEditsFrom(d *Decoder) (*EditsFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	ef := &EditsFrame{Seq: seq, Edits: make([]vdom.Edit, count)}
	for i := range ef.Edits {
		if err := decodeEdit(d, &ef.Edits[i]); err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return ef, nil
}

func decodeEdit(d *Decoder, ed *vdom.Edit) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	ed.Op = vdom.EditOp(op)

	switch ed.Op {
	case vdom.EditPushRoot, vdom.EditRemove, vdom.EditCreatePlaceholder:
		return readRoot(d, ed)

	case vdom.EditPopRoot:
		return nil

	case vdom.EditAppendChildren:
		ed.Many, err = d.ReadUint32Varint()
		return err

	case vdom.EditReplaceWith, vdom.EditInsertAfter, vdom.EditInsertBefore:
		if err := readRoot(d, ed); err != nil {
			return err
		}
		ed.Many, err = d.ReadUint32Varint()
		return err

	case vdom.EditCreateTextNode, vdom.EditSetText:
		if err := readRoot(d, ed); err != nil {
			return err
		}
		ed.Text, err = d.ReadString()
		return err

	case vdom.EditCreateElement:
		if err := readRoot(d, ed); err != nil {
			return err
		}
		ed.Tag, err = d.ReadString()
		return err

	case vdom.EditNewEventListener:
		if err := readRoot(d, ed); err != nil {
			return err
		}
		if ed.Name, err = d.ReadString(); err != nil {
			return err
		}
		scope, err := d.ReadUint32Varint()
		ed.Scope = vdom.ScopeID(scope)
		return err

	case vdom.EditRemoveEventListener, vdom.EditRemoveAttribute:
		if err := readRoot(d, ed); err != nil {
			return err
		}
		ed.Name, err = d.ReadString()
		return err

	case vdom.EditSetAttribute:
		if err := readRoot(d, ed); err != nil {
			return err
		}
		if ed.Name, err = d.ReadString(); err != nil {
			return err
		}
		ed.Value, err = d.ReadString()
		return err
	}
	return fmt.Errorf("%w: 0x%02x", ErrUnknownEditOp, op)
}

func readRoot(d *Decoder, ed *vdom.Edit) error {
	id, err := d.ReadUint32Varint()
	ed.Root = vdom.MountID(id)
	return err
}
