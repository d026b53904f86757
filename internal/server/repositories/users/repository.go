// Package users declares the repository contract for user identities,
// their single live refresh token, and their owned-todo set.
package users

import (
	"context"

	"github.com/dkolesov/todovault/internal/server/models"
)

// Repository defines persistence operations for identities and their session
// and ownership state.
type Repository interface {
	// Create inserts a new user. A username or email collision yields a
	// conflict error.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByLogin looks a user up by username or email (the caller is
	// expected to pass a normalized value).
	FindByLogin(ctx context.Context, login string) (*models.User, error)

	// FindByID looks a user up by id.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// SetRefreshToken unconditionally replaces the stored refresh token.
	SetRefreshToken(ctx context.Context, userID, token string) error

	// SwapRefreshToken replaces the stored refresh token only if it still
	// equals current, as a single atomic conditional update. When the stored
	// value no longer matches it returns domain.ErrSessionRevoked.
	SwapRefreshToken(ctx context.Context, userID, current, next string) error

	// ClearRefreshToken drops the stored refresh token. Clearing an already
	// cleared session is not an error.
	ClearRefreshToken(ctx context.Context, userID string) error

	// OwnsTodo reports whether todoID is in the user's owned set.
	OwnsTodo(ctx context.Context, userID, todoID string) (bool, error)

	// AppendTodo adds todoID to the user's owned set.
	AppendTodo(ctx context.Context, userID, todoID string) error

	// RemoveTodo removes todoID from the user's owned set.
	RemoveTodo(ctx context.Context, userID, todoID string) error

	// ListTodoIDs returns the user's owned set.
	ListTodoIDs(ctx context.Context, userID string) ([]string, error)
}
