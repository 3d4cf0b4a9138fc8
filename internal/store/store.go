// Package store persists task collections. The dependency engine treats a
// store as opaque: it loads a whole collection, mutates it in memory, and
// saves it back. Concurrent writers against the same backing file are last
// write wins.
package store

import (
	"context"

	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// Store loads and saves one tag's task collection.
type Store interface {
	Load(ctx context.Context) (*tasks.Collection, error)
	Save(ctx context.Context, c *tasks.Collection) error
	// Location names the backing resource (file path or database path).
	Location() string
}
