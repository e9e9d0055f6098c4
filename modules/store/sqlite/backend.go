package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/warden/internal/moderation"
)

var (
	_ moderation.Persistence  = (*Backend)(nil)
	_ moderation.RecordWriter = (*Backend)(nil)
)

// Backend stores escalation counters in the violations table.
type Backend struct {
	db *sql.DB
}

// Load implements moderation.Persistence.
func (b *Backend) Load(ctx context.Context) (map[int64]int, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT user_id, count FROM violations")
	if err != nil {
		return nil, fmt.Errorf("sqlite: load violations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[int64]int)
	for rows.Next() {
		var (
			userID int64
			count  int
		)
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scan violation: %w", err)
		}
		counts[userID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate violations: %w", err)
	}
	return counts, nil
}

// Save implements moderation.Persistence. The table is replaced in one
// transaction.
func (b *Backend) Save(ctx context.Context, counts map[int64]int) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM violations"); err != nil {
		return fmt.Errorf("sqlite: clear violations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO violations (user_id, count) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for userID, count := range counts {
		if _, err := stmt.ExecContext(ctx, userID, count); err != nil {
			return fmt.Errorf("sqlite: insert violation %d: %w", userID, err)
		}
	}
	return tx.Commit()
}

// Put implements moderation.RecordWriter.
func (b *Backend) Put(ctx context.Context, userID int64, count int) error {
	_, err := b.db.ExecContext(ctx, `INSERT INTO violations (user_id, count) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			count = excluded.count,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`, userID, count)
	if err != nil {
		return fmt.Errorf("sqlite: put violation %d: %w", userID, err)
	}
	return nil
}

// Ping checks the database connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the underlying database.
func (b *Backend) Close() error {
	return b.db.Close()
}
