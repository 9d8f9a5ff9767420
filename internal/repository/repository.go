// Package repository is the filesystem item store the pipeline works
// against. Export units move between four directories as they progress:
// raw (untouched exports), clean (normalized output), processed
// (delivered), and error (failed after retries were exhausted).
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directory names under the repository root.
const (
	DirRaw       = "raw"
	DirClean     = "clean"
	DirProcessed = "processed"
	DirError     = "error"
)

var layout = []string{DirRaw, DirClean, DirProcessed, DirError}

// FS is a repository rooted at a local directory.
type FS struct {
	root string
}

// New returns a repository rooted at root. Call EnsureLayout before first
// use to create the directory structure.
func New(root string) *FS {
	return &FS{root: expandHome(root)}
}

// Root returns the repository root path.
func (r *FS) Root() string {
	return r.root
}

// EnsureLayout creates the repository directories if missing.
func (r *FS) EnsureLayout() error {
	for _, dir := range layout {
		if err := os.MkdirAll(filepath.Join(r.root, dir), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// List returns the JSON filenames in dir, sorted lexicographically. The
// sorted order gives each file a stable 0-based order index as long as the
// directory is unchanged.
func (r *FS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, dir))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether name is present in dir.
func (r *FS) Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(r.root, dir, name))
	return err == nil
}

// Read returns the contents of name in dir.
func (r *FS) Read(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.root, dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", dir, name, err)
	}
	return data, nil
}

// Write stores data as name in dir.
func (r *FS) Write(dir, name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(r.root, dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s/%s: %w", dir, name, err)
	}
	return nil
}

// Move renames name from one directory to another. Rename is atomic on the
// same filesystem, which keeps the done check/move pair safe per item.
func (r *FS) Move(fromDir, toDir, name string) error {
	from := filepath.Join(r.root, fromDir, name)
	to := filepath.Join(r.root, toDir, name)
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("move %s/%s to %s: %w", fromDir, name, toDir, err)
	}
	return nil
}

// Count returns the number of JSON files in dir. Missing directories count
// as zero.
func (r *FS) Count(dir string) int {
	names, err := r.List(dir)
	if err != nil {
		return 0
	}
	return len(names)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
