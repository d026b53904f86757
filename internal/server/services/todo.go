package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/dkolesov/todovault/internal/dbx"
	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/server/models"
	"github.com/dkolesov/todovault/internal/server/repositories/repomanager"
)

// TodoService performs todo CRUD scoped to the acting user. Every operation
// addressing a specific todo passes the ownership check before any todo
// lookup, so "not yours" and "does not exist" are indistinguishable to the
// caller. Create and Delete keep the user↔todo link consistent inside one
// transaction.
type TodoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewTodoService constructs a TodoService.
func NewTodoService(db *sql.DB, m repomanager.RepositoryManager) *TodoService {
	return &TodoService{db: db, repomanager: m}
}

// authorize is the ownership guard: membership of todoID in the user's
// owned set. It runs against the owned set only, never the todos table.
func (s *TodoService) authorize(ctx context.Context, userID, todoID string) error {
	owns, err := s.repomanager.Users(s.db).OwnsTodo(ctx, userID, todoID)
	if err != nil {
		return storeErr(err)
	}
	if !owns {
		return domain.ErrForbidden
	}
	return nil
}

// Create inserts the todo and appends it to the owner's owned set in a
// single transaction.
func (s *TodoService) Create(ctx context.Context, ownerID, title, description string, completed bool) (*models.Todo, error) {
	todo := &models.Todo{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Completed:   completed,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Todos(tx).Create(ctx, todo); err != nil {
			return err
		}
		return s.repomanager.Users(tx).AppendTodo(ctx, ownerID, todo.ID)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return todo, nil
}

// List returns all todos owned by ownerID.
func (s *TodoService) List(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	result, err := s.repomanager.Todos(s.db).FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return result, nil
}

// Get returns a single owned todo.
func (s *TodoService) Get(ctx context.Context, userID, todoID string) (*models.Todo, error) {
	if err := s.authorize(ctx, userID, todoID); err != nil {
		return nil, err
	}

	todo, err := s.repomanager.Todos(s.db).FindByID(ctx, todoID)
	if err != nil {
		// The owned set references this id, so a missing row is a broken
		// link, not a 404.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Consistency("owned todo row is missing")
		}
		return nil, storeErr(err)
	}
	return todo, nil
}

// Update replaces title, description, and completion flag of an owned todo.
func (s *TodoService) Update(ctx context.Context, userID, todoID, title, description string, completed bool) (*models.Todo, error) {
	if err := s.authorize(ctx, userID, todoID); err != nil {
		return nil, err
	}

	todo := &models.Todo{ID: todoID, Title: title, Description: description, Completed: completed}
	updated, err := s.repomanager.Todos(s.db).Update(ctx, todo)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Consistency("owned todo row is missing")
		}
		return nil, storeErr(err)
	}
	return updated, nil
}

// Delete removes an owned todo and its owned-set entry transactionally, then
// verifies the post-condition that the owner no longer references it. A
// residual reference is a consistency fault, surfaced rather than swallowed.
func (s *TodoService) Delete(ctx context.Context, userID, todoID string) error {
	if err := s.authorize(ctx, userID, todoID); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).RemoveTodo(ctx, userID, todoID); err != nil {
			return err
		}
		return s.repomanager.Todos(tx).Delete(ctx, todoID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Consistency("owned todo row is missing")
		}
		return storeErr(err)
	}

	owns, err := s.repomanager.Users(s.db).OwnsTodo(ctx, userID, todoID)
	if err != nil {
		return storeErr(err)
	}
	if owns {
		return domain.Consistency("todo still referenced by owner after delete")
	}
	return nil
}

// Reconcile heals the user↔todo relation after a crash between the two
// mutation steps: todos without an owned-set entry are dropped, and owned-set
// entries without a todo row are dropped. Returns the number of repaired rows.
func (s *TodoService) Reconcile(ctx context.Context) (orphans, dangling int64, err error) {
	repo := s.repomanager.Todos(s.db)

	orphans, err = repo.DeleteOrphans(ctx)
	if err != nil {
		return 0, 0, storeErr(err)
	}
	dangling, err = repo.DeleteDanglingLinks(ctx)
	if err != nil {
		return orphans, 0, storeErr(err)
	}
	return orphans, dangling, nil
}
