// Package todos declares the repository contract for todo rows and the
// reconciliation queries that heal a half-applied create or delete.
package todos

import (
	"context"

	"github.com/dkolesov/todovault/internal/server/models"
)

// Repository defines persistence operations for todos.
type Repository interface {
	// Create inserts a new todo row.
	Create(ctx context.Context, todo *models.Todo) (*models.Todo, error)

	// FindByID returns the todo with the given id.
	FindByID(ctx context.Context, id string) (*models.Todo, error)

	// FindByOwner returns all todos owned by ownerID, oldest first.
	FindByOwner(ctx context.Context, ownerID string) ([]*models.Todo, error)

	// Update replaces title, description, and completion flag.
	Update(ctx context.Context, todo *models.Todo) (*models.Todo, error)

	// Delete removes a todo row by id.
	Delete(ctx context.Context, id string) error

	// DeleteOrphans removes todo rows that have no owned-set entry and
	// returns how many were removed.
	DeleteOrphans(ctx context.Context) (int64, error)

	// DeleteDanglingLinks removes owned-set entries whose todo row is gone
	// and returns how many were removed.
	DeleteDanglingLinks(ctx context.Context) (int64, error)
}
