package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MikeSquared-Agency/scribe/internal/ledger"
	"github.com/MikeSquared-Agency/scribe/internal/memstore"
	"github.com/MikeSquared-Agency/scribe/internal/normalize"
	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

// UploadProcessor delivers export units from a repository directory to the
// memory store. An item counts as done when its file sits in processed/ or,
// when a ledger is configured, when the ledger has a marker for it.
type UploadProcessor struct {
	Repo      *repository.FS
	Client    *memstore.Client
	Ledger    *ledger.Ledger // optional
	SourceDir string
	Logger    *slog.Logger
}

func (p *UploadProcessor) Skip(ctx context.Context, item Item) (bool, error) {
	if p.Repo.Exists(repository.DirProcessed, item.SourceID) {
		return true, nil
	}
	if p.Ledger != nil {
		done, err := p.Ledger.Delivered(ctx, item.SourceID)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}

func (p *UploadProcessor) Process(ctx context.Context, item Item) (ProcessResult, error) {
	data, err := p.Repo.Read(p.SourceDir, item.SourceID)
	if err != nil {
		// A read that fails now will fail on retry too.
		return ProcessResult{}, Permanent(err)
	}

	result, err := deliver(ctx, p.Client, item.SourceID, data)
	if err != nil {
		return ProcessResult{}, err
	}

	p.mark(ctx, item.SourceID, result)
	return result, nil
}

// mark records delivery in the ledger. Best-effort: the processed/ move is
// the primary completion marker.
func (p *UploadProcessor) mark(ctx context.Context, sourceID string, result ProcessResult) {
	if p.Ledger == nil {
		return
	}
	if err := p.Ledger.Mark(ctx, sourceID, result.SessionID, result.MessageCount); err != nil {
		p.Logger.Warn("failed to write ledger marker", "source_id", sourceID, "error", err)
	}
}

func (p *UploadProcessor) Finalize(ctx context.Context, item Item, succeeded bool) error {
	dest := repository.DirError
	if succeeded {
		dest = repository.DirProcessed
	}
	return p.Repo.Move(p.SourceDir, dest, item.SourceID)
}

// FileProcessor uploads a single export file from an arbitrary path,
// outside the repository layout. Used by the one-shot upload command.
type FileProcessor struct {
	Path      string
	Client    *memstore.Client
	SessionID string // optional override; otherwise derived per record
}

func (p *FileProcessor) Skip(ctx context.Context, item Item) (bool, error) {
	return false, nil
}

func (p *FileProcessor) Process(ctx context.Context, item Item) (ProcessResult, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return ProcessResult{}, Permanent(fmt.Errorf("read %s: %w", p.Path, err))
	}
	return deliverAs(ctx, p.Client, item.SourceID, p.SessionID, data)
}

func (p *FileProcessor) Finalize(ctx context.Context, item Item, succeeded bool) error {
	return nil
}

// deliver normalizes raw export bytes and uploads every resulting
// conversation. Format errors are permanent; delivery errors are retryable.
func deliver(ctx context.Context, client *memstore.Client, sourceID string, data []byte) (ProcessResult, error) {
	return deliverAs(ctx, client, sourceID, "", data)
}

func deliverAs(ctx context.Context, client *memstore.Client, sourceID, explicitSession string, data []byte) (ProcessResult, error) {
	records, err := normalize.Normalize(data)
	if err != nil {
		if errors.Is(err, normalize.ErrInvalidFormat) || errors.Is(err, normalize.ErrNoMessages) {
			return ProcessResult{}, Permanent(err)
		}
		return ProcessResult{}, err
	}

	var result ProcessResult
	allSkipped := true
	for i, rec := range records {
		src := sourceID
		if len(records) > 1 {
			src = fmt.Sprintf("%s-%d", strings.TrimSuffix(sourceID, ".json"), i)
		}
		sessionID := explicitSession
		if sessionID == "" || len(records) > 1 {
			sessionID = SessionID(rec.Title, rec.CreateTime, src)
		}

		res, err := client.Upload(ctx, memstore.UploadRequest{
			SessionID: sessionID,
			Messages:  rec.Messages,
		})
		if err != nil {
			return ProcessResult{}, err
		}
		if !res.Skipped {
			allSkipped = false
		}

		result.SessionID = sessionID
		result.MessageCount += len(rec.Messages)
	}
	result.Skipped = allSkipped
	return result, nil
}
