package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// JSONFile stores collections in a tasks.json document. The document may be
// tagged (one collection per tag) or legacy (a single top-level collection).
type JSONFile struct {
	Path string
	Tag  string
}

// NewJSONFile returns a store for the given file and tag. An empty tag
// selects tasks.DefaultTag.
func NewJSONFile(path, tag string) *JSONFile {
	if tag == "" {
		tag = tasks.DefaultTag
	}
	return &JSONFile{Path: path, Tag: tag}
}

// Location returns the file path.
func (s *JSONFile) Location() string { return s.Path }

// Load reads and decodes the collection. A missing file is reported as
// tasks.ErrInvalidCollection.
func (s *JSONFile) Load(ctx context.Context) (*tasks.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: tasks file not found: %s", tasks.ErrInvalidCollection, s.Path)
		}
		return nil, fmt.Errorf("reading tasks file: %w", err)
	}
	c, err := tasks.Decode(data, s.Tag)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return c, nil
}

// Save writes the collection atomically (write temp + rename), keeping
// every other tag already present in the file.
func (s *JSONFile) Save(ctx context.Context, c *tasks.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existing, err := os.ReadFile(s.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading tasks file: %w", err)
	}

	data, err := tasks.Encode(existing, s.Tag, c)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating tasks directory: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp tasks file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming tasks file: %w", err)
	}
	return nil
}
