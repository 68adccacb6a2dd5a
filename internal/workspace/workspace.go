// Package workspace confines every file the application writes or serves
// to a single root directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Workspace is a directory that downloads and exports are written into.
type Workspace struct {
	Root string
}

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

func New(root string) (*Workspace, error) {
	if root == "" {
		root = "workspace"
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspace{Root: absRoot}, nil
}

// Resolve maps name onto an absolute path inside the root. Names that would
// escape the root are rejected.
func (w *Workspace) Resolve(name string) (string, error) {
	target := filepath.Join(w.Root, name)
	rel, err := filepath.Rel(w.Root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe path attempt: %s", name)
	}
	return target, nil
}

// Write stores data under name, creating parent directories, and returns the
// absolute path written.
func (w *Workspace) Write(name string, data []byte) (string, error) {
	path, err := w.Resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

func (w *Workspace) Read(name string) ([]byte, error) {
	path, err := w.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// List returns the entries of dir sorted by name.
func (w *Workspace) List(dir string) ([]Entry, error) {
	path, err := w.Resolve(dir)
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		e := Entry{Name: it.Name(), IsDir: it.IsDir()}
		if info, err := it.Info(); err == nil && !it.IsDir() {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
