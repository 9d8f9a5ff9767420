package pipeline

import (
	"testing"

	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

func TestListItems(t *testing.T) {
	repo := repository.New(t.TempDir())
	if err := repo.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	for _, name := range []string{"b.json", "a.json", "c.json", "notes.txt"} {
		if err := repo.Write(repository.DirClean, name, []byte("{}")); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}

	items, err := ListItems(repo, repository.DirClean)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	want := []string{"a.json", "b.json", "c.json"}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, item := range items {
		if item.SourceID != want[i] {
			t.Errorf("item[%d].SourceID = %q, want %q", i, item.SourceID, want[i])
		}
		if item.OrderIndex != i {
			t.Errorf("item[%d].OrderIndex = %d, want %d", i, item.OrderIndex, i)
		}
	}
}

func TestSelectRange(t *testing.T) {
	items := testItems(10)

	tests := []struct {
		name       string
		start, end int
		wantFirst  string
		wantLen    int
		wantErr    bool
	}{
		{"full default", 0, -1, "file-00.json", 10, false},
		{"window", 2, 5, "file-02.json", 4, false},
		{"single", 7, 7, "file-07.json", 1, false},
		{"open end", 8, -1, "file-08.json", 2, false},
		{"start out of range", 10, -1, "", 0, true},
		{"negative start", -1, 3, "", 0, true},
		{"end before start", 5, 2, "", 0, true},
		{"end out of range", 0, 10, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectRange(items, tt.start, tt.end)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectRange: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("got %d items, want %d", len(got), tt.wantLen)
			}
			if got[0].SourceID != tt.wantFirst {
				t.Errorf("first = %q, want %q", got[0].SourceID, tt.wantFirst)
			}
		})
	}
}

func TestSelectRange_Empty(t *testing.T) {
	got, err := SelectRange(nil, 0, -1)
	if err != nil {
		t.Fatalf("SelectRange on empty: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d items, want 0", len(got))
	}

	if _, err := SelectRange(nil, 3, -1); err == nil {
		t.Error("expected error for nonzero start on empty list")
	}
}
