package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Sentinel errors for archive operations.
var (
	// ErrNotFound is returned when a stream has no recorded frames.
	ErrNotFound = errors.New("archive: stream not found")

	// ErrInvalidStream is returned for a stream name that cannot be stored.
	ErrInvalidStream = errors.New("archive: invalid stream name")

	// ErrOutOfOrder is returned when a frame does not advance the stream's sequence.
	ErrOutOfOrder = errors.New("archive: sequence out of order")

	// ErrStreamLocked is returned by DirStore.Append when another writer
	// holds the stream.
	ErrStreamLocked = errors.New("archive: stream locked by another writer")
)

// Entry is one recorded frame.
type Entry struct {
	Seq   uint64
	Frame []byte
}

// Store persists edit frames by stream.
type Store interface {
	// Append records frame as sequence seq of stream. Sequences must increase.
	Append(ctx context.Context, stream string, seq uint64, frame []byte) error

	// Load returns every frame of stream in sequence order.
	Load(ctx context.Context, stream string) ([]Entry, error)

	// Streams lists the recorded stream names in lexical order.
	Streams(ctx context.Context) ([]string, error)
}

// ValidateStream checks that name is usable as a stream name in every store.
func ValidateStream(name string) error {
	if name == "" || name == "." || name == ".." || len(name) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidStream, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidStream, name)
	}
	return nil
}

// MemoryStore keeps streams in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[string][]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: make(map[string][]Entry)}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, stream string, seq uint64, frame []byte) error {
	if err := ValidateStream(stream); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.streams[stream]
	if n := len(entries); n > 0 && entries[n-1].Seq >= seq {
		return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, seq, entries[n-1].Seq)
	}
	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)
	m.streams[stream] = append(entries, Entry{Seq: seq, Frame: frameCopy})
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, stream string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, ok := m.streams[stream]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, stream)
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Streams implements Store.
func (m *MemoryStore) Streams(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.streams))
	for name := range m.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
