package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the per-item delivery state. Transitions:
// pending → uploading → {completed | retrying → uploading | failed}.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Item is one enumerated export unit. OrderIndex is the 0-based position in
// the lexicographically sorted source listing, used for range selection.
type Item struct {
	SourceID    string
	DisplayName string
	OrderIndex  int
}

// Attempt is the transient per-item state for one run. It is discarded
// after the summary is produced; durable completion lives in the
// repository and the ledger, not here.
type Attempt struct {
	SourceID   string
	Status     Status
	RetryCount int
	Skipped    bool
	SessionID  string
	LastError  error
	MoveError  error
}

// ProcessResult reports the outcome of one successful delivery attempt.
type ProcessResult struct {
	// Skipped means the collaborator reported the item as already
	// delivered, so no new delivery happened.
	Skipped      bool
	SessionID    string
	MessageCount int
}

// Processor performs the item-level work the Runner drives.
type Processor interface {
	// Skip reports whether the item is already done and can bypass
	// delivery entirely.
	Skip(ctx context.Context, item Item) (bool, error)

	// Process performs one delivery attempt. Any returned error is
	// retried unless wrapped with Permanent.
	Process(ctx context.Context, item Item) (ProcessResult, error)

	// Finalize routes the item after its terminal state: to the done
	// location on success, to the error location on exhausted failure.
	// Failures here are surfaced but do not change the item's logical
	// outcome.
	Finalize(ctx context.Context, item Item, succeeded bool) error
}

// Progress is the per-item tuple emitted for incremental rendering.
type Progress struct {
	Index       int // 1-based
	Total       int
	DisplayName string
	Status      Status
	Skipped     bool
	RetryCount  int
	Err         error
}

// Summary aggregates one run. For a non-dry run,
// Success + Skipped + Error == Total holds. For a dry run, Success counts
// items that would be processed and no deliveries happen.
type Summary struct {
	RunID   uuid.UUID
	Total   int
	Success int
	Skipped int
	Error   int
	DryRun  bool

	// MoveFailures lists items whose best-effort repository move failed
	// after their logical outcome was already decided.
	MoveFailures []string
}

// Config tunes a Runner.
type Config struct {
	MaxRetries  int           // consecutive failures before an item is terminal
	ItemDelay   time.Duration // pause between delivered items
	BackoffBase time.Duration // first retry delay, doubled per retry
	BackoffCap  time.Duration // upper bound on the retry delay
	DryRun      bool
}

// DefaultConfig returns the standard pipeline tuning.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		ItemDelay:   250 * time.Millisecond,
		BackoffBase: 1 * time.Second,
		BackoffCap:  10 * time.Second,
	}
}
