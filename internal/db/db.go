package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

const memoryPath = ":memory:"

// Store is an embedded document database. Documents live in collections addressed by
// slash separated paths and are read through user scoped Clients.
type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	logger *slog.Logger
	hub    *hub

	clockMu   sync.Mutex
	now       func() time.Time
	lastStamp time.Time
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the source of server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	store := &Store{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	if path != memoryPath {
		lock := flock.New(path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock db: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("lock db: %s is in use by another process", path)
		}
		store.lock = lock
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		store.unlock()
		return nil, err
	}
	// One connection keeps :memory: databases shared and serializes sqlite writers.
	sqlDB.SetMaxOpenConns(1)

	if err := applySchema(context.Background(), sqlDB); err != nil {
		_ = sqlDB.Close()
		store.unlock()
		return nil, err
	}

	store.db = sqlDB
	store.hub = newHub(store.logger)
	return store, nil
}

func (s *Store) Close() error {
	s.hub.closeAll()
	err := s.db.Close()
	s.unlock()
	return err
}

func (s *Store) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// stamp returns a strictly increasing server timestamp.
func (s *Store) stamp() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	now := s.now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now
}
