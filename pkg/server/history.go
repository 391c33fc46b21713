package server

import (
	"sync"
	"time"
)

// HistoryEntry is one edit frame kept for replay.
type HistoryEntry struct {
	Seq    uint64    // Edit script sequence number
	Frame  []byte    // Encoded FrameEdits frame, header included
	SentAt time.Time // When the frame was produced
}

// EditHistory is a ring of the most recent edit frames.
//
// A renderer that reconnects within the window is brought up to date by
// replaying the frames it missed. Frames the renderer has acknowledged are
// dropped from the front so the window only spans unacknowledged work.
type EditHistory struct {
	mu       sync.RWMutex
	entries  []HistoryEntry
	head     int // Next write position
	count    int
	capacity int
}

// NewEditHistory creates a history ring with the given capacity.
func NewEditHistory(capacity int) *EditHistory {
	if capacity <= 0 {
		capacity = 100
	}
	return &EditHistory{
		entries:  make([]HistoryEntry, capacity),
		capacity: capacity,
	}
}

// Add stores a frame. Sequence numbers must be added in increasing order.
// The frame is copied.
func (h *EditHistory) Add(seq uint64, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)

	h.entries[h.head] = HistoryEntry{Seq: seq, Frame: frameCopy, SentAt: time.Now()}
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// at returns the i-th oldest entry. Caller holds the lock.
func (h *EditHistory) at(i int) *HistoryEntry {
	return &h.entries[(h.head-h.count+i+h.capacity)%h.capacity]
}

// Frames returns the frames for sequences (afterSeq, toSeq] in order.
// It returns nil if any sequence in that range is missing.
func (h *EditHistory) Frames(afterSeq, toSeq uint64) [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 || toSeq <= afterSeq {
		return nil
	}
	if afterSeq+1 < h.at(0).Seq || toSeq > h.at(h.count-1).Seq {
		return nil
	}

	frames := make([][]byte, 0, toSeq-afterSeq)
	want := afterSeq + 1
	for i := 0; i < h.count && want <= toSeq; i++ {
		e := h.at(i)
		if e.Seq < want {
			continue
		}
		if e.Seq != want {
			return nil
		}
		frames = append(frames, e.Frame)
		want++
	}
	if want != toSeq+1 {
		return nil
	}
	return frames
}

// CanRecover reports whether every frame after lastSeq is still held.
func (h *EditHistory) CanRecover(lastSeq uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return false
	}
	return lastSeq+1 >= h.at(0).Seq && lastSeq < h.at(h.count-1).Seq
}

// Trim drops entries with sequence <= ackSeq.
func (h *EditHistory) Trim(ackSeq uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for h.count > 0 {
		e := h.at(0)
		if e.Seq > ackSeq {
			break
		}
		*e = HistoryEntry{}
		h.count--
		dropped++
	}
	return dropped
}

// MinSeq returns the oldest sequence held, or 0 when empty.
func (h *EditHistory) MinSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.at(0).Seq
}

// MaxSeq returns the newest sequence held, or 0 when empty.
func (h *EditHistory) MaxSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.at(h.count - 1).Seq
}

// Count returns the number of entries held.
func (h *EditHistory) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Clear removes all entries.
func (h *EditHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		h.entries[i] = HistoryEntry{}
	}
	h.head = 0
	h.count = 0
}
