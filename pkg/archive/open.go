package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store kinds accepted by Open.
const (
	KindNone   = "none"
	KindMemory = "memory"
	KindDir    = "dir"
	KindS3     = "s3"
)

// Config selects and configures a store.
type Config struct {
	Kind   string `json:"kind" yaml:"kind"`                         // none, memory, dir, s3 or a registered kind
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`       // dir
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"` // s3
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"` // s3
	Region string `json:"region,omitempty" yaml:"region,omitempty"` // s3; empty uses the AWS default chain
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`       // registered SQL kinds
}

// Opener creates a store for a registered kind.
type Opener func(ctx context.Context, cfg Config) (Store, error)

var (
	openersMu sync.RWMutex
	openers   = make(map[string]Opener)
)

// Register makes a store kind available to Open. It panics if kind is
// empty, built in or registered twice.
func Register(kind string, open Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	switch kind {
	case "", KindNone, KindMemory, KindDir, KindS3:
		panic("archive: Register of built-in kind " + kind)
	}
	if open == nil {
		panic("archive: Register opener is nil")
	}
	if _, dup := openers[kind]; dup {
		panic("archive: Register called twice for kind " + kind)
	}
	openers[kind] = open
}

// Kinds returns every kind Open accepts, built-in kinds first.
func Kinds() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	extra := make([]string, 0, len(openers))
	for k := range openers {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append([]string{KindNone, KindMemory, KindDir, KindS3}, extra...)
}

// Open creates the store described by cfg. KindNone and an empty kind
// return a nil Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindMemory:
		return NewMemoryStore(), nil
	case KindDir:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("archive: dir store needs a directory")
		}
		store, err := NewDirStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case KindS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("archive: s3 store needs a bucket")
		}
		store, err := NewS3StoreFromEnv(ctx, cfg.Region, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	openersMu.RLock()
	open, ok := openers[cfg.Kind]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("archive: unknown store kind %q", cfg.Kind)
	}
	return open(ctx, cfg)
}
