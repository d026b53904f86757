package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dkolesov/todovault/internal/dbx"
	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/server/models"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, username, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.Conflict("user already exists")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, refresh_token, created_at FROM users
		 WHERE username = $1 OR email = $1
		 `

	return r.scanUser(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, refresh_token, created_at FROM users
		 WHERE id = $1
		 `

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.RefreshToken, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	query :=
		`UPDATE users SET refresh_token = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, token)
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

// SwapRefreshToken is the compare-and-swap at the heart of rotation: the
// comparison against the stored value and the overwrite happen in one
// statement, so two concurrent rotations presenting the same token cannot
// both observe it as current.
func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, userID, current, next string) error {
	query :=
		`UPDATE users SET refresh_token = $3
		 WHERE id = $1 AND refresh_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, current, next)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("db error: %w", err)
	} else if n == 0 {
		return domain.ErrSessionRevoked
	}
	return nil
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	query :=
		`UPDATE users SET refresh_token = NULL
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) OwnsTodo(ctx context.Context, userID, todoID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM user_todos WHERE user_id = $1 AND todo_id = $2
		 )`

	var owns bool
	if err := r.db.QueryRowContext(ctx, query, userID, todoID).Scan(&owns); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return owns, nil
}

func (r *PostgresRepository) AppendTodo(ctx context.Context, userID, todoID string) error {
	query :=
		`INSERT INTO user_todos (user_id, todo_id)
		 VALUES ($1, $2)
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, todoID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveTodo(ctx context.Context, userID, todoID string) error {
	query :=
		`DELETE FROM user_todos
		 WHERE user_id = $1 AND todo_id = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, todoID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListTodoIDs(ctx context.Context, userID string) ([]string, error) {
	query :=
		`SELECT todo_id FROM user_todos
		 WHERE user_id = $1
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}
