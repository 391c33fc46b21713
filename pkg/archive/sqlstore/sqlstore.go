// Package sqlstore keeps archived edit frames in a SQLite database. Importing
// it registers the "sqlite" archive kind, opened from archive.Config.DSN.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vango-dev/vtree/pkg/archive"
)

// Kind is the archive kind registered by this package.
const Kind = "sqlite"

//go:embed schema.sql
var schemaSQL string

func init() {
	archive.Register(Kind, func(ctx context.Context, cfg archive.Config) (archive.Store, error) {
		return Open(ctx, cfg.DSN)
	})
}

// Store is an archive.Store backed by SQLite.
type Store struct {
	db *sqlx.DB
}

var _ archive.Store = (*Store)(nil)

// Open opens or creates the database at dsn, which is a path, ":memory:"
// or a file: URI.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlstore: empty dsn")
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening db: %w", err)
	}
	// One connection: SQLite has a single writer and :memory: databases
	// are per connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schemaSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlstore: setup: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Append implements archive.Store.
func (s *Store) Append(ctx context.Context, stream string, seq uint64, frame []byte) error {
	if err := archive.ValidateStream(stream); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.GetContext(ctx, &last, `SELECT MAX(seq) FROM frames WHERE stream = ?`, stream); err != nil {
		return err
	}
	if last.Valid && uint64(last.Int64) >= seq {
		return fmt.Errorf("%w: %d after %d", archive.ErrOutOfOrder, seq, last.Int64)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO frames (stream, seq, frame, created) VALUES (?, ?, ?, ?)`,
		stream, int64(seq), frame, time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

type row struct {
	Seq   int64  `db:"seq"`
	Frame []byte `db:"frame"`
}

// Load implements archive.Store.
func (s *Store) Load(ctx context.Context, stream string) ([]archive.Entry, error) {
	if err := archive.ValidateStream(stream); err != nil {
		return nil, err
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT seq, frame FROM frames WHERE stream = ? ORDER BY seq`, stream); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", archive.ErrNotFound, stream)
	}
	entries := make([]archive.Entry, len(rows))
	for i, r := range rows {
		entries[i] = archive.Entry{Seq: uint64(r.Seq), Frame: r.Frame}
	}
	return entries, nil
}

// Streams implements archive.Store.
func (s *Store) Streams(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT DISTINCT stream FROM frames ORDER BY stream`); err != nil {
		return nil, err
	}
	return names, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
