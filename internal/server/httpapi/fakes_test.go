package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/logging"
	"github.com/dkolesov/todovault/internal/server/models"
	"github.com/dkolesov/todovault/internal/server/services"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

// stubUserService dispatches to per-test function fields. Unset methods fail
// with an internal error so an unexpected call is visible in the response.
type stubUserService struct {
	register func(username, email, password string) (*models.User, error)
	login    func(login, password string) (*models.User, *services.TokenPair, error)
	logout   func(userID string) error
	getByID  func(id string) (*models.User, error)
}

func (s *stubUserService) Register(_ context.Context, username, email, password string) (*models.User, error) {
	if s.register == nil {
		return nil, domain.ErrInternal
	}
	return s.register(username, email, password)
}

func (s *stubUserService) Login(_ context.Context, login, password string) (*models.User, *services.TokenPair, error) {
	if s.login == nil {
		return nil, nil, domain.ErrInternal
	}
	return s.login(login, password)
}

func (s *stubUserService) Logout(_ context.Context, userID string) error {
	if s.logout == nil {
		return domain.ErrInternal
	}
	return s.logout(userID)
}

func (s *stubUserService) GetByID(_ context.Context, id string) (*models.User, error) {
	if s.getByID == nil {
		return nil, domain.ErrInternal
	}
	return s.getByID(id)
}

type stubTokenService struct {
	verifyAccess func(token string) (string, error)
	rotate       func(presented string) (*services.TokenPair, error)
}

func (s *stubTokenService) VerifyAccess(token string) (string, error) {
	if s.verifyAccess == nil {
		return "", domain.ErrTokenInvalid
	}
	return s.verifyAccess(token)
}

func (s *stubTokenService) Rotate(_ context.Context, presented string) (*services.TokenPair, error) {
	if s.rotate == nil {
		return nil, domain.ErrTokenInvalid
	}
	return s.rotate(presented)
}

type stubTodoService struct {
	create func(ownerID, title, description string, completed bool) (*models.Todo, error)
	list   func(ownerID string) ([]*models.Todo, error)
	get    func(userID, todoID string) (*models.Todo, error)
	update func(userID, todoID, title, description string, completed bool) (*models.Todo, error)
	delete func(userID, todoID string) error
}

func (s *stubTodoService) Create(_ context.Context, ownerID, title, description string, completed bool) (*models.Todo, error) {
	if s.create == nil {
		return nil, domain.ErrInternal
	}
	return s.create(ownerID, title, description, completed)
}

func (s *stubTodoService) List(_ context.Context, ownerID string) ([]*models.Todo, error) {
	if s.list == nil {
		return nil, domain.ErrInternal
	}
	return s.list(ownerID)
}

func (s *stubTodoService) Get(_ context.Context, userID, todoID string) (*models.Todo, error) {
	if s.get == nil {
		return nil, domain.ErrInternal
	}
	return s.get(userID, todoID)
}

func (s *stubTodoService) Update(_ context.Context, userID, todoID, title, description string, completed bool) (*models.Todo, error) {
	if s.update == nil {
		return nil, domain.ErrInternal
	}
	return s.update(userID, todoID, title, description, completed)
}

func (s *stubTodoService) Delete(_ context.Context, userID, todoID string) error {
	if s.delete == nil {
		return domain.ErrInternal
	}
	return s.delete(userID, todoID)
}

func newTestRouter(us *stubUserService, ts *stubTokenService, tds *stubTodoService) http.Handler {
	logger := nopLogger{}
	cookies := CookieConfig{Secure: true, AccessTTL: time.Minute, RefreshTTL: time.Hour}
	users := NewUserHandler(us, ts, cookies, logger)
	todos := NewTodoHandler(tds, logger)
	gate := NewAuthGate(ts, us, logger)
	return NewRouter(users, todos, gate, logger)
}

// authedStubs wires a token service and identity resolver that accept the
// "valid-token" value for user u1.
func authedStubs() (*stubUserService, *stubTokenService) {
	us := &stubUserService{
		getByID: func(id string) (*models.User, error) {
			if id != "u1" {
				return nil, domain.ErrNotFound
			}
			return &models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}, nil
		},
	}
	ts := &stubTokenService{
		verifyAccess: func(token string) (string, error) {
			if token != "valid-token" {
				return "", domain.ErrTokenInvalid
			}
			return "u1", nil
		},
	}
	return us, ts
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func newAuthedBearerRequest(t *testing.T, authorization string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req, httptest.NewRecorder()
}

type respEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type respError struct {
	Error struct {
		Kind    string   `json:"kind"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) respEnvelope {
	t.Helper()
	var env respEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rr.Body.String())
	}
	return env
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) respError {
	t.Helper()
	var e respError
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body: %v (body %s)", err, rr.Body.String())
	}
	return e
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
