// Package ledger persists delivery completion markers in Postgres. It is
// the non-filesystem "done" backend: presence of a source id in the ledger
// means the export unit was already delivered, so the pipeline's skip check
// can consult it alongside the processed directory.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Ledger struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Ledger, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Ledger{pool: pool}, nil
}

func (l *Ledger) Close() {
	l.pool.Close()
}

// Init creates the ledger table if it does not exist.
func (l *Ledger) Init(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS delivered_exports (
			source_id     text PRIMARY KEY,
			session_id    text NOT NULL,
			message_count int NOT NULL DEFAULT 0,
			delivered_at  timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

// Delivered reports whether sourceID has a completion marker.
func (l *Ledger) Delivered(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM delivered_exports WHERE source_id = $1)`,
		sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return exists, nil
}

// Mark records sourceID as delivered. Re-marking an already delivered
// source updates the session and timestamp rather than failing, so marking
// is safe to repeat.
func (l *Ledger) Mark(ctx context.Context, sourceID, sessionID string, messageCount int) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO delivered_exports (source_id, session_id, message_count, delivered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    message_count = EXCLUDED.message_count,
		    delivered_at = EXCLUDED.delivered_at`,
		sourceID, sessionID, messageCount, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}
