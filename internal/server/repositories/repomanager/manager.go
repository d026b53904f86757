package repomanager

import (
	"context"
	"database/sql"

	"github.com/dkolesov/todovault/internal/dbx"
	"github.com/dkolesov/todovault/internal/server/repositories/todos"
	"github.com/dkolesov/todovault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a plain connection or
// a transaction handle, and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Todos(db dbx.DBTX) todos.Repository
}
