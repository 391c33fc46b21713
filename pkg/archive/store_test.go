package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func editsFrame(seq uint64, edits ...vdom.Edit) []byte {
	payload := protocol.EncodeEdits(&protocol.EditsFrame{Seq: seq, Edits: edits})
	return protocol.NewFrame(protocol.FrameEdits, payload).Encode()
}

// counterFrames is a two-script session: mount <div>0</div>, then set the
// text to 1.
func counterFrames() []Entry {
	return []Entry{
		{Seq: 1, Frame: editsFrame(1,
			vdom.Edit{Op: vdom.EditCreateElement, Root: 1, Tag: "div"},
			vdom.Edit{Op: vdom.EditCreateTextNode, Root: 2, Text: "0"},
			vdom.Edit{Op: vdom.EditAppendChildren, Many: 1},
			vdom.Edit{Op: vdom.EditAppendChildren, Many: 1},
		)},
		{Seq: 2, Frame: editsFrame(2,
			vdom.Edit{Op: vdom.EditSetText, Root: 2, Text: "1"},
		)},
	}
}

// fakeS3 is an in-memory S3API. It ignores pagination.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"|"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"|"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket := aws.ToString(in.Bucket) + "|"
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	seen := make(map[string]bool)
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, bucket) {
			keys = append(keys, strings.TrimPrefix(k, bucket))
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				p := prefix + rest[:i+len(delim)]
				if !seen[p] {
					seen[p] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	dir, err := NewDirStore(filepath.Join(t.TempDir(), "archive"))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"dir":    dir,
		"s3":     NewS3Store(newFakeS3(), "frames", "sessions/"),
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(ctx, "main"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load() on empty store error = %v, want ErrNotFound", err)
			}

			want := counterFrames()
			for _, e := range want {
				if err := store.Append(ctx, "main", e.Seq, e.Frame); err != nil {
					t.Fatalf("Append(%d) error = %v", e.Seq, err)
				}
			}
			if err := store.Append(ctx, "other", 7, want[0].Frame); err != nil {
				t.Fatalf("Append(other) error = %v", err)
			}

			got, err := store.Load(ctx, "main")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load() = %v, want %v", got, want)
			}

			streams, err := store.Streams(ctx)
			if err != nil {
				t.Fatalf("Streams() error = %v", err)
			}
			if !reflect.DeepEqual(streams, []string{"main", "other"}) {
				t.Errorf("Streams() = %v", streams)
			}

			if err := store.Append(ctx, "main", 2, want[1].Frame); !errors.Is(err, ErrOutOfOrder) {
				t.Errorf("Append(duplicate seq) error = %v, want ErrOutOfOrder", err)
			}
			if err := store.Append(ctx, "../escape", 1, want[0].Frame); !errors.Is(err, ErrInvalidStream) {
				t.Errorf("Append(bad name) error = %v, want ErrInvalidStream", err)
			}
		})
	}
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec, err := NewRecorder(store, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range counterFrames() {
		if err := rec.Record(ctx, e.Seq, e.Frame); err != nil {
			t.Fatalf("Record(%d) error = %v", e.Seq, err)
		}
	}

	tests := []struct {
		upTo uint64
		want string
	}{
		{0, "<div>1</div>"},
		{1, "<div>0</div>"},
		{2, "<div>1</div>"},
	}
	for _, tt := range tests {
		doc, err := Replay(ctx, store, "session-1", tt.upTo)
		if err != nil {
			t.Fatalf("Replay(%d) error = %v", tt.upTo, err)
		}
		if got := doc.HTML(); got != tt.want {
			t.Errorf("Replay(%d) HTML = %q, want %q", tt.upTo, got, tt.want)
		}
	}

	if _, err := Replay(ctx, store, "missing", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Replay(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDecodeRejectsForeignFrames(t *testing.T) {
	ack := protocol.NewFrame(protocol.FrameAck, protocol.EncodeAck(&protocol.Ack{LastSeq: 1})).Encode()
	if _, err := Decode(Entry{Seq: 1, Frame: ack}); err == nil {
		t.Error("Decode(ack frame) succeeded")
	}
	if _, err := Decode(Entry{Seq: 1, Frame: []byte{0x02}}); err == nil {
		t.Error("Decode(truncated) succeeded")
	}
}

func TestDirStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	frames := counterFrames()
	if err := first.Append(ctx, "main", frames[0].Seq, frames[0].Frame); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Append(ctx, "main", 1, frames[0].Frame); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Append(seq 1) after reopen error = %v, want ErrOutOfOrder", err)
	}
	if err := second.Append(ctx, "main", frames[1].Seq, frames[1].Frame); err != nil {
		t.Fatal(err)
	}
	got, err := second.Load(ctx, "main")
	if err != nil || len(got) != 2 {
		t.Fatalf("Load() = %d entries, %v", len(got), err)
	}

	// A torn final record is reported, earlier records are kept.
	path := filepath.Join(dir, "main"+streamExt)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-1], 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	entries, err := ReadEntries(f)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("torn record error = %v, want io.ErrUnexpectedEOF", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries before torn record = %d, want 1", len(entries))
	}
}

func TestDirStoreWriterLock(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	frames := counterFrames()

	a, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.Append(ctx, "main", frames[0].Seq, frames[0].Frame); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(ctx, "main", frames[1].Seq, frames[1].Frame); !errors.Is(err, ErrStreamLocked) {
		t.Fatalf("second writer Append() error = %v, want ErrStreamLocked", err)
	}
	// Other streams are not affected.
	if err := b.Append(ctx, "other", 1, frames[0].Frame); err != nil {
		t.Errorf("Append(other) error = %v", err)
	}
	// Readers never lock.
	if got, err := b.Load(ctx, "main"); err != nil || len(got) != 1 {
		t.Errorf("Load() while locked = %d entries, %v", len(got), err)
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(ctx, "main", frames[1].Seq, frames[1].Frame); err != nil {
		t.Fatalf("Append() after release error = %v", err)
	}

	streams, err := b.Streams(ctx)
	if err != nil || len(streams) != 2 || streams[0] != "main" || streams[1] != "other" {
		t.Errorf("Streams() = %v, %v; lock files must not be listed", streams, err)
	}
}

func TestDirStoreFollow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	frames := counterFrames()
	if err := store.Append(ctx, "live", frames[0].Seq, frames[0].Frame); err != nil {
		t.Fatal(err)
	}

	got := make(chan Entry, 8)
	done := make(chan error, 1)
	go func() {
		done <- store.Follow(ctx, "live", func(e Entry) error {
			got <- e
			return nil
		})
	}()

	next := func() Entry {
		t.Helper()
		select {
		case e := <-got:
			return e
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a followed entry")
			return Entry{}
		}
	}

	if e := next(); e.Seq != 1 {
		t.Fatalf("first entry seq = %d, want 1", e.Seq)
	}
	if err := store.Append(ctx, "live", frames[1].Seq, frames[1].Frame); err != nil {
		t.Fatal(err)
	}
	e := next()
	if e.Seq != 2 || !bytes.Equal(e.Frame, frames[1].Frame) {
		t.Fatalf("followed entry = seq %d, want 2 with the appended frame", e.Seq)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Follow() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestReadFromSkipsTornTail(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	frames := counterFrames()
	for _, f := range frames {
		if err := store.Append(ctx, "main", f.Seq, f.Frame); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(dir, "main"+streamExt)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-2], 0o644); err != nil {
		t.Fatal(err)
	}

	entries, offset, err := readFrom(path, 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("readFrom() = %d entries, %v; want 1", len(entries), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	rest, end, err := readFrom(path, offset)
	if err != nil || len(rest) != 1 || rest[0].Seq != 2 {
		t.Fatalf("readFrom(%d) = %v, %v; want seq 2", offset, rest, err)
	}
	if end != int64(len(data)) {
		t.Errorf("end offset = %d, want %d", end, len(data))
	}

	if entries, off, err := readFrom(filepath.Join(dir, "absent.vtr"), 7); err != nil || entries != nil || off != 7 {
		t.Errorf("readFrom(absent) = %v, %d, %v", entries, off, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     Config
		wantNil bool
		wantErr bool
	}{
		{"none", Config{Kind: KindNone}, true, false},
		{"empty", Config{}, true, false},
		{"memory", Config{Kind: KindMemory}, false, false},
		{"dir", Config{Kind: KindDir, Dir: t.TempDir()}, false, false},
		{"dir without path", Config{Kind: KindDir}, true, true},
		{"s3 without bucket", Config{Kind: KindS3}, true, true},
		{"unknown", Config{Kind: "tape"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (store == nil) != tt.wantNil {
				t.Errorf("Open() store = %v, wantNil %v", store, tt.wantNil)
			}
		})
	}
}
