package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkolesov/todovault/internal/dbx"
	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	query :=
		`INSERT INTO todos (id, owner_id, title, description, completed)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		todo.ID, todo.OwnerID, todo.Title, todo.Description, todo.Completed).
		Scan(&todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	query :=
		`SELECT id, owner_id, title, description, completed, created_at, updated_at FROM todos
		 WHERE id = $1
		 `

	todo := &models.Todo{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&todo.ID, &todo.OwnerID,
		&todo.Title, &todo.Description, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) FindByOwner(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	query :=
		`SELECT id, owner_id, title, description, completed, created_at, updated_at FROM todos
		 WHERE owner_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Todo, 0)
	for rows.Next() {
		todo := &models.Todo{}
		if err := rows.Scan(&todo.ID, &todo.OwnerID, &todo.Title, &todo.Description,
			&todo.Completed, &todo.CreatedAt, &todo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	query :=
		`UPDATE todos SET title = $2, description = $3, completed = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING owner_id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		todo.ID, todo.Title, todo.Description, todo.Completed).
		Scan(&todo.OwnerID, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM todos
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("db error: %w", err)
	} else if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteOrphans drops todos left without an owned-set entry by a crash
// between the two steps of a create or delete.
func (r *PostgresRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	query :=
		`DELETE FROM todos t
		 WHERE NOT EXISTS (
		   SELECT 1 FROM user_todos ut WHERE ut.todo_id = t.id
		 )`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// DeleteDanglingLinks drops owned-set entries whose todo row no longer exists.
func (r *PostgresRepository) DeleteDanglingLinks(ctx context.Context) (int64, error) {
	query :=
		`DELETE FROM user_todos ut
		 WHERE NOT EXISTS (
		   SELECT 1 FROM todos t WHERE t.id = ut.todo_id
		 )`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
