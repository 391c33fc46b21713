package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{"empty payload", Frame{Type: FrameEvent, Payload: []byte{}}},
		{"edits", Frame{Type: FrameEdits, Payload: []byte{0x01, 0x02, 0x03}}},
		{"replay flag", Frame{Type: FrameEdits, Flags: FlagReplay, Payload: []byte("x")}},
		{"control", Frame{Type: FrameControl, Flags: FlagReset, Payload: []byte{0x11, 0x04}}},
		{"large", Frame{Type: FrameEdits, Payload: bytes.Repeat([]byte{0xAB}, 70_000)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := tc.frame.Encode()
			if len(encoded) != FrameHeaderSize+len(tc.frame.Payload) {
				t.Errorf("Encode() length = %d, want %d", len(encoded), FrameHeaderSize+len(tc.frame.Payload))
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if decoded.Type != tc.frame.Type || decoded.Flags != tc.frame.Flags {
				t.Errorf("header = %v/%v, want %v/%v", decoded.Type, decoded.Flags, tc.frame.Type, tc.frame.Flags)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Error("payload mismatch")
			}
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	good := NewFrame(FrameEdits, []byte{1, 2, 3}).Encode()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", good[:3], ErrBufferTooShort},
		{"short payload", good[:len(good)-1], ErrBufferTooShort},
		{"trailing bytes", append(append([]byte(nil), good...), 0), ErrFrameTooLarge},
		{"bad type", append([]byte{0x7F}, good[1:]...), ErrInvalidFrameType},
		{"huge length", []byte{byte(FrameEdits), 0, 0xFF, 0xFF, 0xFF, 0xFF}, ErrFrameTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeFrame(tc.data); !errors.Is(err, tc.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadWriteFrameStream(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		NewFrame(FrameHello, EncodeClientHello(NewClientHello(0))),
		NewFrame(FrameEdits, []byte{0x00, 0x00}),
		NewFrame(FrameAck, EncodeAck(&Ack{LastSeq: 9})),
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame() #%d error = %v", i, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame %d = %v %x, want %v %x", i, got.Type, got.Payload, want.Type, want.Payload)
		}
	}
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame() at end = %v, want io.EOF", err)
	}

	truncated := NewFrame(FrameEdits, []byte{1, 2, 3, 4}).Encode()
	if _, err := ReadFrame(bytes.NewReader(truncated[:8])); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadFrame() truncated = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestFrameTypeString(t *testing.T) {
	for ft, want := range map[FrameType]string{
		FrameHello:   "Hello",
		FrameEdits:   "Edits",
		FrameError:   "Error",
		FrameType(9): "Unknown",
	} {
		if got := ft.String(); got != want {
			t.Errorf("FrameType(%d).String() = %q, want %q", ft, got, want)
		}
	}
	if !FlagReplay.Has(FlagReplay) || (FlagReplay).Has(FlagReset) {
		t.Error("FrameFlags.Has mismatch")
	}
}
