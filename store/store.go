// Package store persists a sheet's exported JSON state (§6) to Postgres,
// keyed by an arbitrary sheet ID, using the database/sql + pgx driver
// pairing the cell-formula evaluator never touches directly.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheets (
	id         TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store wraps a connection pool opened against a Postgres DSN.
type Store struct {
	db *sql.DB
}

// Open connects to dsn via the pgx stdlib driver, verifies connectivity,
// and ensures the sheets table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts a sheet's exported JSON state under id.
func (s *Store) Save(ctx context.Context, id string, state []byte) error {
	const q = `
INSERT INTO sheets (id, state, updated_at) VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, q, id, state); err != nil {
		return fmt.Errorf("store: save %s: %w", id, err)
	}
	return nil
}

// Load returns id's last-saved exported JSON state. ok is false if no row
// exists for id.
func (s *Store) Load(ctx context.Context, id string) (state []byte, ok bool, err error) {
	const q = `SELECT state FROM sheets WHERE id = $1`
	row := s.db.QueryRowContext(ctx, q, id)
	if err := row.Scan(&state); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: load %s: %w", id, err)
	}
	return state, true, nil
}

// Delete removes id's saved state, if any.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sheets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

// List returns every saved sheet ID, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sheets ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
