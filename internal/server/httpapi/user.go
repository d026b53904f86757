package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/logging"
	"github.com/dkolesov/todovault/internal/server/models"
	"github.com/dkolesov/todovault/internal/server/services"
)

// UserProvider is the slice of the user service the handlers need.
type UserProvider interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, login, password string) (*models.User, *services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TokenRotator exchanges a live refresh token for a fresh pair.
type TokenRotator interface {
	Rotate(ctx context.Context, presented string) (*services.TokenPair, error)
}

// UserHandler serves registration, login, logout, profile, and refresh.
type UserHandler struct {
	users   UserProvider
	tokens  TokenRotator
	cookies CookieConfig
	logger  logging.Logger
}

func NewUserHandler(users UserProvider, tokens TokenRotator, cookies CookieConfig, logger logging.Logger) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, cookies: cookies, logger: logger}
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func userPayload(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, h.logger, domain.Validation("invalid request body"))
		return
	}

	user, err := h.users.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	respond(w, http.StatusCreated, userPayload(user), "user registered")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Login accepts either username or email as the identifier and, on success,
// returns the pair in the body and as httpOnly cookies.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, h.logger, domain.Validation("invalid request body"))
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}
	var missing []string
	if login == "" {
		missing = append(missing, "username or email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		writeError(ctx, w, h.logger, domain.Validation("all fields are required", missing...))
		return
	}

	user, pair, err := h.users.Login(ctx, login, req.Password)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	setTokenCookies(w, pair, h.cookies)
	respond(w, http.StatusOK, loginResponse{
		User:         userPayload(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "login successful")
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := IdentityFromContext(ctx)
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.users.Logout(ctx, user.ID); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	clearTokenCookies(w, h.cookies)
	respond(w, http.StatusOK, nil, "logged out")
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	respond(w, http.StatusOK, userPayload(user), "ok")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the session. The token comes from the refreshToken cookie
// or the request body. Every failure collapses into the same 401 so a caller
// cannot probe which stage rejected the token.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	presented := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" && r.Body != nil {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		unauthorized(w)
		return
	}

	pair, err := h.tokens.Rotate(ctx, presented)
	if err != nil {
		h.logger.Debug(ctx, "refresh rejected", "kind", domain.KindOf(err).String())
		unauthorized(w)
		return
	}

	setTokenCookies(w, pair, h.cookies)
	respond(w, http.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "token refreshed")
}
