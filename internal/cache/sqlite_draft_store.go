package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteDraftStore keeps drafts in a local SQLite file. Changes are only
// visible to subscribers in the same process.
type sqliteDraftStore struct {
	db     *sql.DB
	feed   *feed
	closed atomic.Bool
}

// NewSQLiteDraftStore opens (or creates) the draft database at dbPath.
func NewSQLiteDraftStore(dbPath string) (DraftStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createDraftSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &sqliteDraftStore{db: db, feed: newFeed()}, nil
}

func createDraftSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS drafts (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *sqliteDraftStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrStoreClosed
	}
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM drafts WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get draft %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqliteDraftStore) Set(ctx context.Context, key, value, origin string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set draft %s: %w", key, err)
	}
	s.feed.publish(DraftChange{Key: key, Value: value, Origin: origin})
	return nil
}

func (s *sqliteDraftStore) Remove(ctx context.Context, key, origin string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove draft %s: %w", key, err)
	}
	s.feed.publish(DraftChange{Key: key, Removed: true, Origin: origin})
	return nil
}

func (s *sqliteDraftStore) Subscribe(_ context.Context, key string, fn func(DraftChange)) (func(), error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	return s.feed.add(key, fn), nil
}

func (s *sqliteDraftStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
