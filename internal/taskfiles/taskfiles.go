// Package taskfiles renders a task collection as one markdown file per task
// (task_001.md, task_002.md, ...). Each file opens with +++ TOML frontmatter
// holding the task's structured fields, followed by a readable body.
// Generator implements the manager's regeneration hook.
package taskfiles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/taskmaster/internal/store"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// ErrNoFrontmatter indicates a task file lacks the +++ delimiters.
var ErrNoFrontmatter = errors.New("missing +++ frontmatter")

var fileName = regexp.MustCompile(`^task_\d+\.md$`)

// Frontmatter is the TOML header of a task file.
type Frontmatter struct {
	ID           int           `toml:"id"`
	Title        string        `toml:"title"`
	Status       string        `toml:"status,omitempty"`
	Priority     string        `toml:"priority,omitempty"`
	Dependencies []string      `toml:"dependencies"`
	Subtasks     []SubtaskMeta `toml:"subtasks,omitempty"`
}

// SubtaskMeta is a subtask entry in the frontmatter.
type SubtaskMeta struct {
	ID           int      `toml:"id"`
	Title        string   `toml:"title"`
	Status       string   `toml:"status,omitempty"`
	Dependencies []string `toml:"dependencies"`
}

// Generator writes task files for the collection held by Store.
type Generator struct {
	Store store.Store
}

// OnMutation regenerates every task file in dir. path is the location of
// the store that was just saved; it only appears in error messages.
func (g *Generator) OnMutation(path, dir string) error {
	c, err := g.Store.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return Write(c, dir)
}

// FileName returns the file name used for a task.
func FileName(id int) string {
	return fmt.Sprintf("task_%03d.md", id)
}

// Write renders every task of c into dir and removes task files for tasks
// that no longer exist. Each file is written to a temp file and renamed.
func Write(c *tasks.Collection, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	keep := make(map[string]bool, len(c.Tasks))
	for i := range c.Tasks {
		t := &c.Tasks[i]
		name := FileName(t.ID)
		keep[name] = true
		data, err := Marshal(t)
		if err != nil {
			return fmt.Errorf("rendering task %d: %w", t.ID, err)
		}
		if err := writeAtomic(filepath.Join(dir, name), data); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || keep[e.Name()] || !fileName.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing stale %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Marshal renders one task file.
func Marshal(t *tasks.Task) ([]byte, error) {
	fm := Frontmatter{
		ID:           t.ID,
		Title:        t.Title,
		Status:       t.Status,
		Priority:     t.Priority,
		Dependencies: idStrings(t.Dependencies),
	}
	for _, s := range t.Subtasks {
		fm.Subtasks = append(fm.Subtasks, SubtaskMeta{
			ID:           s.ID,
			Title:        s.Title,
			Status:       s.Status,
			Dependencies: idStrings(s.Dependencies),
		})
	}
	head, err := toml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("+++\n")
	b.Write(head)
	b.WriteString("+++\n\n")
	fmt.Fprintf(&b, "# Task %d: %s\n", t.ID, t.Title)
	section(&b, "Description", t.Description)
	section(&b, "Details", t.Details)
	section(&b, "Test Strategy", t.TestStrategy)
	if len(t.Subtasks) > 0 {
		b.WriteString("\n## Subtasks\n\n")
		for _, s := range t.Subtasks {
			box := " "
			if s.IsDone() {
				box = "x"
			}
			fmt.Fprintf(&b, "- [%s] %d.%d %s", box, t.ID, s.ID, s.Title)
			if len(s.Dependencies) > 0 {
				fmt.Fprintf(&b, " (depends on %s)", strings.Join(idStrings(s.Dependencies), ", "))
			}
			b.WriteByte('\n')
		}
	}
	return []byte(b.String()), nil
}

// ReadFile parses a task file back into its frontmatter and body.
func ReadFile(path string) (Frontmatter, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Frontmatter{}, "", err
	}
	head, body, err := splitFrontmatter(string(data))
	if err != nil {
		return Frontmatter{}, "", fmt.Errorf("%s: %w", path, err)
	}
	var fm Frontmatter
	if err := toml.Unmarshal([]byte(head), &fm); err != nil {
		return Frontmatter{}, "", fmt.Errorf("%s: parsing TOML frontmatter: %w", path, err)
	}
	return fm, strings.TrimSpace(body), nil
}

func splitFrontmatter(content string) (string, string, error) {
	const delim = "+++"
	content = strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(content, delim) {
		return "", "", ErrNoFrontmatter
	}
	rest := content[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: no closing delimiter", ErrNoFrontmatter)
	}
	return rest[:idx+1], rest[idx+1+len(delim):], nil
}

func section(b *strings.Builder, title, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n%s\n", title, strings.TrimSpace(text))
}

func idStrings[T fmt.Stringer](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}
