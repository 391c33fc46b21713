// Package protocol implements the binary wire format spoken between a
// vtree host and an external renderer.
//
// The renderer receives edit scripts and sends back the events its users
// trigger. Everything is encoded without reflection: varints for ids and
// counts, length-prefixed UTF-8 for strings.
//
// # Wire Format
//
// Every message is a frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): connection setup (ClientHello / ServerHello)
//   - FrameEvent (0x01): renderer → host user events
//   - FrameEdits (0x02): host → renderer edit scripts
//   - FrameControl (0x03): ping, resync, reset, close
//   - FrameAck (0x04): renderer acknowledges applied edit scripts
//   - FrameError (0x05): error report
//
// # Edit Scripts
//
// An edits payload is a sequence number followed by the edits of one drive
// call, in order:
//
//	[Seq: varint][Count: varint][Edit]...
//
// Each edit starts with its op byte (vdom.EditOp) and carries only the
// fields that op uses. Mount ids and scope ids are varints, so a
// CreateTextNode of "hi" with a small id takes 5 bytes.
//
// # Events
//
//	[Seq: varint][Scope: varint][Target: varint][Name: string][Value: string]
//
// Scope is the id carried by the NewEventListener edit that attached the
// listener; Target is the element's mount id.
//
// # Resync
//
// A renderer that reconnects sends its last applied sequence number in the
// ClientHello. The host replays the edit scripts it still holds, or sends
// ControlReset followed by one script that rebuilds the whole tree.
package protocol
