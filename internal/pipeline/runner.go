// Package pipeline drives batches of export units through normalization
// and delivery with per-item idempotent skip, bounded retry, and a final
// summary. Delivery is strictly sequential: the remote store applies
// coarse rate limits and cannot be trusted to deduplicate, so one item is
// processed fully, retries included, before the next starts.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/events"
	"github.com/google/uuid"
)

// EventSink receives delivery lifecycle events. The NATS publisher
// implements it; a nil sink disables emission.
type EventSink interface {
	Publish(subject string, data any) error
}

// Runner executes one batch. A Runner is single-use: attempts accumulate
// per run and are not reset.
type Runner struct {
	cfg      Config
	proc     Processor
	logger   *slog.Logger
	runID    uuid.UUID
	sink     EventSink
	progress func(Progress)

	attempts map[string]*Attempt
}

func NewRunner(cfg Config, proc Processor, logger *slog.Logger) *Runner {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultConfig().BackoffCap
	}
	return &Runner{
		cfg:      cfg,
		proc:     proc,
		logger:   logger,
		runID:    uuid.New(),
		attempts: make(map[string]*Attempt),
	}
}

// SetEvents attaches an optional event sink for per-item and batch events.
func (r *Runner) SetEvents(sink EventSink) {
	r.sink = sink
}

// SetProgress attaches an optional per-item progress callback.
func (r *Runner) SetProgress(fn func(Progress)) {
	r.progress = fn
}

// Attempt returns the recorded attempt for a source id, or nil.
func (r *Runner) Attempt(sourceID string) *Attempt {
	return r.attempts[sourceID]
}

// Run processes items in order and returns the batch summary. Per-item
// failures never abort the batch; only cancellation stops the run early,
// and then only between items or during a sleep.
func (r *Runner) Run(ctx context.Context, items []Item) (Summary, error) {
	summary := Summary{
		RunID:  r.runID,
		Total:  len(items),
		DryRun: r.cfg.DryRun,
	}

	r.logger.Info("batch starting",
		"run_id", r.runID,
		"items", len(items),
		"dry_run", r.cfg.DryRun,
	)

	for i, item := range items {
		select {
		case <-ctx.Done():
			r.logger.Info("batch interrupted", "run_id", r.runID, "processed", i)
			return summary, ctx.Err()
		default:
		}

		att := &Attempt{SourceID: item.SourceID, Status: StatusPending}
		r.attempts[item.SourceID] = att

		skipped, err := r.proc.Skip(ctx, item)
		if err != nil {
			// A failed skip check is not fatal: fall through and
			// let delivery decide.
			r.logger.Warn("skip check failed", "source_id", item.SourceID, "error", err)
			skipped = false
		}

		if r.cfg.DryRun {
			att.Status = StatusCompleted
			att.Skipped = skipped
			if skipped {
				summary.Skipped++
			} else {
				summary.Success++
			}
			r.report(i, len(items), item, att)
			continue
		}

		if skipped {
			att.Status = StatusCompleted
			att.Skipped = true
			summary.Skipped++
			r.logger.Info("item already delivered, skipping", "source_id", item.SourceID)
			r.emitItem(events.SubjectSkipped, att)
			r.report(i, len(items), item, att)
			continue
		}

		if err := r.deliver(ctx, item, att); err != nil {
			// Cancellation mid-backoff: report what we have.
			r.logger.Info("batch interrupted during retry wait", "run_id", r.runID)
			return summary, err
		}

		switch att.Status {
		case StatusCompleted:
			if att.Skipped {
				summary.Skipped++
				r.emitItem(events.SubjectSkipped, att)
			} else {
				summary.Success++
				r.emitItem(events.SubjectDelivered, att)
			}
		case StatusFailed:
			summary.Error++
			r.emitItem(events.SubjectFailed, att)
		}

		// Route the item to its terminal location. The move is
		// best-effort: the logical outcome above stands either way.
		if att.Status == StatusFailed || (att.Status == StatusCompleted && !att.Skipped) {
			if err := r.proc.Finalize(ctx, item, att.Status == StatusCompleted); err != nil {
				att.MoveError = err
				summary.MoveFailures = append(summary.MoveFailures, item.SourceID)
				r.logger.Warn("item move failed", "source_id", item.SourceID, "error", err)
			}
		}

		r.report(i, len(items), item, att)

		// Inter-item pause to avoid bursts against the store.
		if i < len(items)-1 {
			if err := sleepCtx(ctx, r.cfg.ItemDelay); err != nil {
				return summary, err
			}
		}
	}

	r.logger.Info("batch complete",
		"run_id", r.runID,
		"total", summary.Total,
		"success", summary.Success,
		"skipped", summary.Skipped,
		"error", summary.Error,
		"dry_run", summary.DryRun,
	)
	r.emitSummary(summary)

	return summary, nil
}

// deliver runs the retry state machine for one item. It returns an error
// only for cancellation.
func (r *Runner) deliver(ctx context.Context, item Item, att *Attempt) error {
	for {
		att.Status = StatusUploading
		result, err := r.proc.Process(ctx, item)
		if err == nil {
			att.Status = StatusCompleted
			att.Skipped = result.Skipped
			att.SessionID = result.SessionID
			att.LastError = nil
			return nil
		}
		att.LastError = err

		if IsPermanent(err) {
			r.logger.Error("item failed permanently", "source_id", item.SourceID, "error", err)
			att.Status = StatusFailed
			return nil
		}
		if att.RetryCount >= r.cfg.MaxRetries {
			r.logger.Error("item failed, retries exhausted",
				"source_id", item.SourceID,
				"retries", att.RetryCount,
				"error", err,
			)
			att.Status = StatusFailed
			return nil
		}

		delay := backoffDelay(r.cfg.BackoffBase, r.cfg.BackoffCap, att.RetryCount)
		att.Status = StatusRetrying
		att.RetryCount++
		r.logger.Warn("delivery failed, retrying",
			"source_id", item.SourceID,
			"retry", att.RetryCount,
			"delay", delay,
			"error", err,
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

func (r *Runner) report(i, total int, item Item, att *Attempt) {
	if r.progress == nil {
		return
	}
	r.progress(Progress{
		Index:       i + 1,
		Total:       total,
		DisplayName: item.DisplayName,
		Status:      att.Status,
		Skipped:     att.Skipped,
		RetryCount:  att.RetryCount,
		Err:         att.LastError,
	})
}

func (r *Runner) emitItem(subject string, att *Attempt) {
	if r.sink == nil {
		return
	}
	evt := events.ItemEvent{
		RunID:      r.runID.String(),
		SourceID:   att.SourceID,
		SessionID:  att.SessionID,
		RetryCount: att.RetryCount,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if att.LastError != nil {
		evt.Error = att.LastError.Error()
	}
	if err := r.sink.Publish(subject, evt); err != nil {
		r.logger.Warn("failed to publish item event", "subject", subject, "error", err)
	}
}

func (r *Runner) emitSummary(s Summary) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Publish(events.SubjectBatchSummary, map[string]any{
		"run_id":  s.RunID.String(),
		"total":   s.Total,
		"success": s.Success,
		"skipped": s.Skipped,
		"error":   s.Error,
		"dry_run": s.DryRun,
	}); err != nil {
		r.logger.Warn("failed to publish batch summary", "error", err)
	}
}

// backoffDelay doubles the base delay per completed retry, capped.
func backoffDelay(base, limit time.Duration, retry int) time.Duration {
	d := base
	for i := 0; i < retry; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
