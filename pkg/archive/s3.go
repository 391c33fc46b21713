package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"
)

// frameExt is the object suffix of a frame in an S3Store.
const frameExt = ".frame"

// s3Fetchers bounds concurrent GetObject calls in Load.
const s3Fetchers = 8

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Store stores each frame as its own object:
//
//	<prefix><stream>/<seq, 20 digits>.frame
//
// Zero-padded sequence numbers make lexical listing order match sequence
// order.
type S3Store struct {
	client S3API
	bucket string
	prefix string

	mu      sync.Mutex
	lastSeq map[string]uint64
}

// NewS3Store creates a store on bucket. A non-empty prefix should end in "/".
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		lastSeq: make(map[string]uint64),
	}
}

// NewS3StoreFromEnv builds the client from the default AWS credential chain.
func NewS3StoreFromEnv(ctx context.Context, region, bucket, prefix string) (*S3Store, error) {
	var optFns []func(*config.LoadOptions) error
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	return NewS3Store(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (s *S3Store) streamPrefix(stream string) string {
	return s.prefix + stream + "/"
}

func (s *S3Store) key(stream string, seq uint64) string {
	return fmt.Sprintf("%s%020d%s", s.streamPrefix(stream), seq, frameExt)
}

// Append implements Store.
func (s *S3Store) Append(ctx context.Context, stream string, seq uint64, frame []byte) error {
	if err := ValidateStream(stream); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastSeq[stream]; ok && last >= seq {
		return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, seq, last)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(stream, seq)),
		Body:        bytes.NewReader(frame),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"seq": strconv.FormatUint(seq, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("archive: put %s/%d: %w", stream, seq, err)
	}
	s.lastSeq[stream] = seq
	return nil
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, stream string) ([]Entry, error) {
	if err := ValidateStream(stream); err != nil {
		return nil, err
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.streamPrefix(stream)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("archive: list %s: %w", stream, err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); strings.HasSuffix(key, frameExt) {
				keys = append(keys, key)
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, stream)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(key, s.streamPrefix(stream)), frameExt)
		seq, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Seq: seq})
		keys[len(entries)-1] = key
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s3Fetchers)
	for i := range entries {
		i := i
		g.Go(func() error {
			frame, err := s.get(gctx, keys[i])
			if err != nil {
				return err
			}
			entries[i].Frame = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("archive: get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", key, err)
	}
	return data, nil
}

// Streams implements Store.
func (s *S3Store) Streams(ctx context.Context) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("archive: list streams: %w", err)
		}
		for _, p := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), s.prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
