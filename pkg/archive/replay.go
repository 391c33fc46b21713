package archive

import (
	"context"
	"fmt"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/render"
)

// Recorder appends a host's frames to one stream of a Store.
type Recorder struct {
	store  Store
	stream string
}

// NewRecorder returns a Recorder writing to stream.
func NewRecorder(store Store, stream string) (*Recorder, error) {
	if err := ValidateStream(stream); err != nil {
		return nil, err
	}
	return &Recorder{store: store, stream: stream}, nil
}

// Record appends frame as sequence seq.
func (r *Recorder) Record(ctx context.Context, seq uint64, frame []byte) error {
	return r.store.Append(ctx, r.stream, seq, frame)
}

// Stream returns the stream name.
func (r *Recorder) Stream() string {
	return r.stream
}

// Decode parses a recorded frame into its edit script.
func Decode(e Entry) (*protocol.EditsFrame, error) {
	f, err := protocol.DecodeFrame(e.Frame)
	if err != nil {
		return nil, fmt.Errorf("archive: seq %d: %w", e.Seq, err)
	}
	if f.Type != protocol.FrameEdits {
		return nil, fmt.Errorf("archive: seq %d: unexpected %s frame", e.Seq, f.Type)
	}
	ef, err := protocol.DecodeEdits(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("archive: seq %d: %w", e.Seq, err)
	}
	return ef, nil
}

// Replay applies the frames of stream up to and including seq upTo to a
// fresh document. upTo == 0 replays everything.
func Replay(ctx context.Context, store Store, stream string, upTo uint64) (*render.Document, error) {
	entries, err := store.Load(ctx, stream)
	if err != nil {
		return nil, err
	}
	doc := render.NewDocument()
	for _, e := range entries {
		if upTo > 0 && e.Seq > upTo {
			break
		}
		ef, err := Decode(e)
		if err != nil {
			return nil, err
		}
		if err := doc.Apply(ef.Edits); err != nil {
			return nil, fmt.Errorf("archive: apply seq %d: %w", e.Seq, err)
		}
	}
	return doc, nil
}
