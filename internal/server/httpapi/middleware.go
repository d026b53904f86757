package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/logging"
	"github.com/dkolesov/todovault/internal/server/models"
)

type ctxKey int

const identityKey ctxKey = iota

// TokenVerifier checks an access token and returns the subject user id.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// IdentityResolver resolves a verified user id to a sanitized profile.
type IdentityResolver interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AuthGate is the middleware guarding the protected route group. It accepts
// the access token from the accessToken cookie or, failing that, an
// Authorization Bearer header. Every rejection is the same 401; the concrete
// reason goes to the log only.
type AuthGate struct {
	tokens TokenVerifier
	users  IdentityResolver
	logger logging.Logger
}

func NewAuthGate(tokens TokenVerifier, users IdentityResolver, logger logging.Logger) *AuthGate {
	return &AuthGate{tokens: tokens, users: users, logger: logger}
}

func (g *AuthGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := presentedAccessToken(r)
		if token == "" {
			unauthorized(w)
			return
		}

		userID, err := g.tokens.VerifyAccess(token)
		if err != nil {
			g.logger.Debug(ctx, "access token rejected", "kind", domain.KindOf(err).String())
			unauthorized(w)
			return
		}

		user, err := g.users.GetByID(ctx, userID)
		if err != nil {
			// A token for a vanished identity is still just a 401 outward.
			g.logger.Debug(ctx, "identity lookup failed behind valid token",
				"kind", domain.KindOf(err).String(), "user_id", userID)
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, identityKey, user)))
	})
}

// presentedAccessToken prefers the cookie; the Bearer header is the fallback
// for non-browser clients.
func presentedAccessToken(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// IdentityFromContext returns the authenticated user placed by the gate.
func IdentityFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(identityKey).(*models.User)
	return u, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withRequestLogging(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}
