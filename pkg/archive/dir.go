package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/alexflint/go-filemutex"
	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/vtree/pkg/protocol"
)

const (
	// streamExt is the file extension of a stream in a DirStore.
	streamExt = ".vtr"

	// lockExt is appended to a stream file name for its writer lock.
	lockExt = ".lock"
)

// DirStore keeps one append-only file per stream in a directory.
//
// Each record is the sequence number as a uvarint followed by the frame,
// whose own header delimits it.
//
// The first Append to a stream takes an exclusive lock on a sibling
// .lock file and holds it until Close, so two processes never interleave
// records in one stream. Readers do not lock.
type DirStore struct {
	dir string

	mu      sync.Mutex
	lastSeq map[string]uint64
	locks   map[string]*filemutex.FileMutex
}

// NewDirStore creates the directory if needed and returns a store on it.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create %s: %w", dir, err)
	}
	return &DirStore{
		dir:     dir,
		lastSeq: make(map[string]uint64),
		locks:   make(map[string]*filemutex.FileMutex),
	}, nil
}

// Close releases the writer locks held by the store. The store may be
// used again afterwards; the next Append re-acquires the lock.
func (s *DirStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for stream, m := range s.locks {
		if err := m.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("archive: unlock %s: %w", stream, err))
		}
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("archive: close lock %s: %w", stream, err))
		}
		delete(s.locks, stream)
		delete(s.lastSeq, stream)
	}
	return errors.Join(errs...)
}

// acquire takes the writer lock of stream. s.mu must be held.
func (s *DirStore) acquire(stream string) error {
	if _, ok := s.locks[stream]; ok {
		return nil
	}
	m, err := filemutex.New(s.path(stream) + lockExt)
	if err != nil {
		return fmt.Errorf("archive: lock %s: %w", stream, err)
	}
	if err := m.TryLock(); err != nil {
		m.Close()
		return fmt.Errorf("%w: %s: %v", ErrStreamLocked, stream, err)
	}
	s.locks[stream] = m
	// Another writer may have appended since we last looked.
	delete(s.lastSeq, stream)
	return nil
}

// Dir returns the directory backing the store.
func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) path(stream string) string {
	return filepath.Join(s.dir, stream+streamExt)
}

// Append implements Store.
func (s *DirStore) Append(ctx context.Context, stream string, seq uint64, frame []byte) error {
	if err := ValidateStream(stream); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(stream); err != nil {
		return err
	}
	last, known := s.lastSeq[stream]
	if !known {
		entries, err := s.load(stream)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case len(entries) > 0:
			last = entries[len(entries)-1].Seq
		}
	}
	if last >= seq && (known || last > 0) {
		return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, seq, last)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := protocol.NewEncoderWithCap(binary.MaxVarintLen64 + len(frame))
	e.WriteUvarint(seq)
	e.WriteBytes(frame)

	f, err := os.OpenFile(s.path(stream), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", stream, err)
	}
	if _, err := f.Write(e.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("archive: append %s: %w", stream, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", stream, err)
	}
	s.lastSeq[stream] = seq
	return nil
}

// Load implements Store.
func (s *DirStore) Load(_ context.Context, stream string) ([]Entry, error) {
	if err := ValidateStream(stream); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(stream)
}

func (s *DirStore) load(stream string) ([]Entry, error) {
	f, err := os.Open(s.path(stream))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, stream)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", stream, err)
	}
	defer f.Close()
	return ReadEntries(f)
}

// ReadEntries decodes DirStore records from r until end of stream.
func ReadEntries(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)
	var entries []Entry
	for {
		seq, err := binary.ReadUvarint(br)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("archive: record %d: %w", len(entries), err)
		}
		frame, err := protocol.ReadFrame(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return entries, fmt.Errorf("archive: record %d (seq %d): %w", len(entries), seq, err)
		}
		entries = append(entries, Entry{Seq: seq, Frame: frame.Encode()})
	}
}

// Streams implements Store.
func (s *DirStore) Streams(_ context.Context) ([]string, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("archive: list %s: %w", s.dir, err)
	}
	var names []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), streamExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(f.Name(), streamExt))
	}
	sort.Strings(names)
	return names, nil
}

// Follow calls fn for every record of stream, starting with those already
// on disk and then for each record appended afterwards, until ctx is done
// or fn returns an error. The stream file need not exist yet. A partially
// written record is delivered once its writer completes it.
func (s *DirStore) Follow(ctx context.Context, stream string, fn func(Entry) error) error {
	if err := ValidateStream(stream); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("archive: watch %s: %w", s.dir, err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("archive: watch %s: %w", s.dir, err)
	}

	name := stream + streamExt
	var offset int64
	drain := func() error {
		entries, next, err := readFrom(s.path(stream), offset)
		offset = next
		for _, e := range entries {
			if err := fn(e); err != nil {
				return err
			}
		}
		return err
	}
	if err := drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if err := drain(); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("archive: watch %s: %w", s.dir, err)
		}
	}
}

// readFrom decodes the complete records of path that start at or after
// offset and returns the offset just past the last one. A missing file
// reads as empty.
func readFrom(path string, offset int64) ([]Entry, int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, offset, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("archive: seek %s: %w", path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, fmt.Errorf("archive: read %s: %w", path, err)
	}

	base := offset
	r := bytes.NewReader(data)
	var entries []Entry
	for r.Len() > 0 {
		seq, err := binary.ReadUvarint(r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return entries, offset, fmt.Errorf("archive: %s at %d: %w", path, offset, err)
		}
		frame, err := protocol.ReadFrame(r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return entries, offset, fmt.Errorf("archive: %s at %d: %w", path, offset, err)
		}
		entries = append(entries, Entry{Seq: seq, Frame: frame.Encode()})
		offset = base + int64(len(data)-r.Len())
	}
	return entries, offset, nil
}
