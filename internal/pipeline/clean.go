package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/scribe/internal/normalize"
	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

// CleanProcessor normalizes raw export files into cleaned JSON in clean/.
// Raw files stay in place on success; only exhausted failures are moved to
// error/.
type CleanProcessor struct {
	Repo   *repository.FS
	Logger *slog.Logger
}

func (p *CleanProcessor) Skip(ctx context.Context, item Item) (bool, error) {
	if p.Repo.Exists(repository.DirClean, item.SourceID) {
		return true, nil
	}
	// A raw file holding several conversations fans out to indexed names.
	return p.Repo.Exists(repository.DirClean, multiName(item.SourceID, 0)), nil
}

func (p *CleanProcessor) Process(ctx context.Context, item Item) (ProcessResult, error) {
	data, err := p.Repo.Read(repository.DirRaw, item.SourceID)
	if err != nil {
		return ProcessResult{}, Permanent(err)
	}

	records, err := normalize.Normalize(data)
	if err != nil {
		if errors.Is(err, normalize.ErrInvalidFormat) || errors.Is(err, normalize.ErrNoMessages) {
			return ProcessResult{}, Permanent(err)
		}
		return ProcessResult{}, err
	}

	var result ProcessResult
	for i, rec := range records {
		name := item.SourceID
		if len(records) > 1 {
			name = multiName(item.SourceID, i)
		}

		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return ProcessResult{}, Permanent(fmt.Errorf("marshal cleaned record: %w", err))
		}
		if err := p.Repo.Write(repository.DirClean, name, out); err != nil {
			return ProcessResult{}, err
		}
		result.MessageCount += len(rec.Messages)
	}
	return result, nil
}

func (p *CleanProcessor) Finalize(ctx context.Context, item Item, succeeded bool) error {
	if succeeded {
		return nil // raw exports stay untouched
	}
	return p.Repo.Move(repository.DirRaw, repository.DirError, item.SourceID)
}

func multiName(sourceID string, i int) string {
	return fmt.Sprintf("%s-%d.json", strings.TrimSuffix(sourceID, ".json"), i)
}
