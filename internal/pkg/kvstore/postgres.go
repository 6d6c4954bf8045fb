package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/adspredia/adspredia-api/internal/pkg/database"
)

const createSlotsTable = `
	CREATE TABLE IF NOT EXISTS state_slots (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Postgres keeps one row per key in state_slots
type Postgres struct {
	db    *sqlx.DB
	owned bool
}

// NewPostgres wraps an existing pool and makes sure the table exists
func NewPostgres(ctx context.Context, db *sqlx.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, createSlotsTable); err != nil {
		return nil, fmt.Errorf("failed to create state_slots: %w", err)
	}
	return &Postgres{db: db}, nil
}

// OpenPostgres connects to databaseURL and owns the pool
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := database.NewPostgres(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s, err := NewPostgres(ctx, db)
	if err != nil {
		database.ClosePostgres(db)
		return nil, err
	}
	s.owned = true
	return s, nil
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, `SELECT value FROM state_slots WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select state slot: %w", err)
	}
	return value, nil
}

func (s *Postgres) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state_slots (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("upsert state slot: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state_slots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete state slot: %w", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	if s.owned {
		database.ClosePostgres(s.db)
	}
	return nil
}
