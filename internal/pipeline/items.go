package pipeline

import (
	"fmt"

	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

// ListItems enumerates a repository directory into queue items. The
// listing is lexicographically sorted, so order indexes are stable across
// runs as long as the directory is unchanged.
func ListItems(repo *repository.FS, dir string) ([]Item, error) {
	names, err := repo.List(dir)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(names))
	for i, name := range names {
		items = append(items, Item{
			SourceID:    name,
			DisplayName: name,
			OrderIndex:  i,
		})
	}
	return items, nil
}

// SelectRange returns the contiguous order-index window [start, end],
// inclusive. end < 0 means through the last item.
func SelectRange(items []Item, start, end int) ([]Item, error) {
	if len(items) == 0 {
		if start == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("start index %d out of range: no items", start)
	}
	if end < 0 {
		end = len(items) - 1
	}
	if start < 0 || start >= len(items) {
		return nil, fmt.Errorf("start index %d out of range (0-%d)", start, len(items)-1)
	}
	if end < start || end >= len(items) {
		return nil, fmt.Errorf("end index %d out of range (%d-%d)", end, start, len(items)-1)
	}
	return items[start : end+1], nil
}
