package state

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store persists the last processed post ID per account
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Cursor is the last processed post of an account
type Cursor struct {
	Account   string
	LastID    int64
	UpdatedAt time.Time
}

// Stats contains store statistics
type Stats struct {
	Accounts   int
	LastUpdate time.Time
}

// Open initializes the state database at the given path
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database at '%s' with %w", dbPath, err)
	}
	// One writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Cursor returns the last processed post ID for account.
// An account never seen before has cursor 0.
func (s *Store) Cursor(ctx context.Context, account string) (int64, error) {
	var lastID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT last_id FROM cursors WHERE account = ?",
		account,
	).Scan(&lastID)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor for %s: %w", account, err)
	}
	return lastID, nil
}

// Advance moves the cursor of account forward to id.
// The stored value never decreases; a lower id is a no-op.
// Reports whether the cursor moved.
func (s *Store) Advance(ctx context.Context, account string, id int64) (bool, error) {
	now := s.now().Unix()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cursors (account, last_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			last_id = excluded.last_id,
			updated_at = excluded.updated_at
		WHERE excluded.last_id > cursors.last_id
	`, account, id, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to advance cursor for %s: %w", account, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to advance cursor for %s: %w", account, err)
	}
	if n > 0 {
		slog.Debug("cursor advanced", "account", account, "last_id", id)
	}
	return n > 0, nil
}

// Cursors lists every stored cursor ordered by account
func (s *Store) Cursors(ctx context.Context) ([]Cursor, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT account, last_id, updated_at FROM cursors ORDER BY account")
	if err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}
	defer rows.Close()

	var cursors []Cursor
	for rows.Next() {
		var c Cursor
		var updated int64
		if err := rows.Scan(&c.Account, &c.LastID, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan cursor: %w", err)
		}
		c.UpdatedAt = time.Unix(updated, 0)
		cursors = append(cursors, c)
	}
	return cursors, rows.Err()
}

// Clear removes all cursors, so the next cycle treats every fetched post as new
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cursors"); err != nil {
		return fmt.Errorf("failed to clear cursors: %w", err)
	}
	return nil
}

// Stats returns store statistics
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var last sql.NullInt64

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), MAX(updated_at) FROM cursors").Scan(&stats.Accounts, &last)
	if err != nil {
		return stats, err
	}
	if last.Valid && last.Int64 > 0 {
		stats.LastUpdate = time.Unix(last.Int64, 0)
	}
	return stats, nil
}

// Close closes the state database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
