package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dkolesov/todovault/internal/dbx"
	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/server/config"
	"github.com/dkolesov/todovault/internal/server/models"
	todosrepo "github.com/dkolesov/todovault/internal/server/repositories/todos"
	usersrepo "github.com/dkolesov/todovault/internal/server/repositories/users"
)

// fakeUsersRepo is an in-memory users repository with the same swap
// semantics as the SQL implementation: compare and overwrite of the refresh
// token happen under one lock, so concurrent rotations race realistically.
type fakeUsersRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // by id
	owned map[string]map[string]bool

	// stickyOwned makes RemoveTodo a no-op, to simulate a store that failed
	// to detach the owned-set entry.
	stickyOwned bool

	failWith error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		users: make(map[string]*models.User),
		owned: make(map[string]map[string]bool),
	}
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.Conflict("user already exists")
		}
	}
	cp := *user
	cp.CreatedAt = time.Now()
	f.users[user.ID] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) SetRefreshToken(ctx context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.RefreshToken = sql.NullString{String: token, Valid: true}
	return nil
}

func (f *fakeUsersRepo) SwapRefreshToken(ctx context.Context, userID, current, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.users[userID]
	if !ok || !u.RefreshToken.Valid || u.RefreshToken.String != current {
		return domain.ErrSessionRevoked
	}
	u.RefreshToken = sql.NullString{String: next, Valid: true}
	return nil
}

func (f *fakeUsersRepo) ClearRefreshToken(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if u, ok := f.users[userID]; ok {
		u.RefreshToken = sql.NullString{}
	}
	return nil
}

func (f *fakeUsersRepo) OwnsTodo(ctx context.Context, userID, todoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.owned[userID][todoID], nil
}

func (f *fakeUsersRepo) AppendTodo(ctx context.Context, userID, todoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.owned[userID] == nil {
		f.owned[userID] = make(map[string]bool)
	}
	f.owned[userID][todoID] = true
	return nil
}

func (f *fakeUsersRepo) RemoveTodo(ctx context.Context, userID, todoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.stickyOwned {
		return nil
	}
	delete(f.owned[userID], todoID)
	return nil
}

func (f *fakeUsersRepo) ListTodoIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	ids := make([]string, 0, len(f.owned[userID]))
	for id := range f.owned[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeUsersRepo) storedRefreshToken(t *testing.T, userID string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		t.Fatalf("no user %s", userID)
	}
	return u.RefreshToken.String
}

// fakeTodosRepo is an in-memory todos repository. It holds a reference to
// the users fake so the reconciliation queries can see the owned sets.
type fakeTodosRepo struct {
	mu        sync.Mutex
	todos     map[string]*models.Todo
	users     *fakeUsersRepo
	findCalls int
	failWith  error
}

func newFakeTodosRepo(users *fakeUsersRepo) *fakeTodosRepo {
	return &fakeTodosRepo{todos: make(map[string]*models.Todo), users: users}
}

func (f *fakeTodosRepo) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	cp := *todo
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.todos[todo.ID] = &cp
	return &cp, nil
}

func (f *fakeTodosRepo) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	todo, ok := f.todos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *todo
	return &cp, nil
}

func (f *fakeTodosRepo) FindByOwner(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	result := make([]*models.Todo, 0)
	for _, todo := range f.todos {
		if todo.OwnerID == ownerID {
			cp := *todo
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeTodosRepo) Update(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	stored, ok := f.todos[todo.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	stored.Title = todo.Title
	stored.Description = todo.Description
	stored.Completed = todo.Completed
	stored.UpdatedAt = time.Now()
	cp := *stored
	return &cp, nil
}

func (f *fakeTodosRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.todos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.todos, id)
	return nil
}

func (f *fakeTodosRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	var n int64
	for id, todo := range f.todos {
		if !f.users.owned[todo.OwnerID][id] {
			delete(f.todos, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTodosRepo) DeleteDanglingLinks(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	var n int64
	for _, set := range f.users.owned {
		for id := range set {
			if _, ok := f.todos[id]; !ok {
				delete(set, id)
				n++
			}
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	t *fakeTodosRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Todos(db dbx.DBTX) todosrepo.Repository       { return m.t }

type fixture struct {
	db    *sql.DB
	mock  sqlmock.Sqlmock
	users *fakeUsersRepo
	todos *fakeTodosRepo
	rm    *fakeRepoManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u := newFakeUsersRepo()
	td := newFakeTodosRepo(u)
	return &fixture{db: db, mock: mock, users: u, todos: td, rm: &fakeRepoManager{u: u, t: td}}
}

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: time.Hour,
	}
}

func (f *fixture) tokenService() *TokenService {
	return NewTokenService(f.db, f.rm, testConfig())
}

func (f *fixture) addUser(t *testing.T, id, username string) {
	t.Helper()
	f.users.users[id] = &models.User{ID: id, Username: username, Email: username + "@example.com"}
}
