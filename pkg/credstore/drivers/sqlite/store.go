// Package sqlite implements a credstore driver over a local SQLite database.
// It suits desktop and long-lived agent installs where the credential pair
// must survive restarts alongside other local state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dsn. Call ApplyMigrations
// before first use.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Serialize concurrent writers instead of failing fast with SQLITE_BUSY.
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, kind credstore.Kind) (string, error) {
	if !credstore.ValidKind(kind) {
		return "", credstore.ErrInvalidKind
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE kind = ?`, string(kind),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, kind credstore.Kind, value string) error {
	if !credstore.ValidKind(kind) {
		return credstore.ErrInvalidKind
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (kind, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(kind) DO UPDATE SET
		   value = excluded.value,
		   updated_at = CURRENT_TIMESTAMP`,
		string(kind), value,
	)
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE kind IN (?, ?)`,
		string(credstore.KindAccess), string(credstore.KindRefresh),
	)
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
