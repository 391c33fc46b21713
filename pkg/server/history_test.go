package server

import (
	"bytes"
	"testing"
)

func fillHistory(h *EditHistory, from, to uint64) {
	for seq := from; seq <= to; seq++ {
		h.Add(seq, []byte{byte(seq)})
	}
}

func TestEditHistoryFrames(t *testing.T) {
	h := NewEditHistory(4)
	fillHistory(h, 1, 6)

	if got := h.Count(); got != 4 {
		t.Fatalf("Count() = %d, want 4", got)
	}
	if h.MinSeq() != 3 || h.MaxSeq() != 6 {
		t.Fatalf("range = [%d, %d], want [3, 6]", h.MinSeq(), h.MaxSeq())
	}

	tests := []struct {
		name      string
		after, to uint64
		want      []byte
	}{
		{"full window", 2, 6, []byte{3, 4, 5, 6}},
		{"tail", 4, 6, []byte{5, 6}},
		{"middle", 3, 5, []byte{4, 5}},
		{"evicted", 1, 6, nil},
		{"beyond newest", 4, 7, nil},
		{"empty range", 6, 6, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := h.Frames(tt.after, tt.to)
			if tt.want == nil {
				if frames != nil {
					t.Fatalf("Frames(%d, %d) = %v, want nil", tt.after, tt.to, frames)
				}
				return
			}
			var got []byte
			for _, f := range frames {
				got = append(got, f...)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Frames(%d, %d) = %v, want %v", tt.after, tt.to, got, tt.want)
			}
		})
	}
}

func TestEditHistoryCanRecover(t *testing.T) {
	h := NewEditHistory(3)
	if h.CanRecover(0) {
		t.Error("CanRecover(0) on empty history = true")
	}
	fillHistory(h, 1, 5)

	tests := []struct {
		lastSeq uint64
		want    bool
	}{
		{1, false},
		{2, true},
		{4, true},
		{5, false},
		{9, false},
	}
	for _, tt := range tests {
		if got := h.CanRecover(tt.lastSeq); got != tt.want {
			t.Errorf("CanRecover(%d) = %v, want %v", tt.lastSeq, got, tt.want)
		}
	}
}

func TestEditHistoryTrim(t *testing.T) {
	h := NewEditHistory(8)
	fillHistory(h, 1, 5)

	if n := h.Trim(3); n != 3 {
		t.Fatalf("Trim(3) dropped %d, want 3", n)
	}
	if h.MinSeq() != 4 || h.Count() != 2 {
		t.Fatalf("after trim: min=%d count=%d, want 4 and 2", h.MinSeq(), h.Count())
	}
	if h.CanRecover(2) {
		t.Error("CanRecover(2) after trim = true")
	}
	if frames := h.Frames(3, 5); len(frames) != 2 {
		t.Errorf("Frames(3, 5) = %d frames, want 2", len(frames))
	}

	fillHistory(h, 6, 7)
	if h.MaxSeq() != 7 || h.Count() != 4 {
		t.Errorf("after refill: max=%d count=%d, want 7 and 4", h.MaxSeq(), h.Count())
	}

	h.Trim(100)
	if h.Count() != 0 || h.MinSeq() != 0 || h.MaxSeq() != 0 {
		t.Errorf("after full trim: count=%d min=%d max=%d", h.Count(), h.MinSeq(), h.MaxSeq())
	}
}

func TestEditHistoryCopiesFrames(t *testing.T) {
	h := NewEditHistory(2)
	buf := []byte{1, 2, 3}
	h.Add(1, buf)
	buf[0] = 9

	h.Add(2, []byte{4})
	frames := h.Frames(0, 2)
	if len(frames) != 2 || frames[0][0] != 1 {
		t.Errorf("stored frame changed with caller buffer: %v", frames)
	}

	h.Clear()
	if h.Count() != 0 || h.Frames(0, 2) != nil {
		t.Error("Clear() left entries behind")
	}
}
