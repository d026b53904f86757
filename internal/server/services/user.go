package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/server/models"
	"github.com/dkolesov/todovault/internal/server/repositories/repomanager"
)

// UserService provides credential-related operations:
//   - Register: create users with a one-way password hash
//   - Login: verify credentials and mint tokens
//   - Logout: revoke the active session
//   - GetByID: fetch a sanitized profile
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
}

// NewUserService constructs a UserService.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService) *UserService {
	return &UserService{db: db, repomanager: m, tokens: tokens}
}

// normalizeLogin trims and lower-cases identifiers so lookups and uniqueness
// are case-insensitive.
func normalizeLogin(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates a new user. Username and email are normalized before the
// duplicate check; the plaintext password never reaches storage.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = normalizeLogin(username)
	email = normalizeLogin(email)

	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, domain.Validation("all fields are required", missing...)
	}

	repo := s.repomanager.Users(s.db)
	for _, login := range []string{username, email} {
		_, err := repo.FindByLogin(ctx, login)
		if err == nil {
			return nil, domain.Conflict("user already exists")
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, storeErr(err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	// The unique constraints remain the backstop for a racing registration.
	created, err := repo.Create(ctx, user)
	if err != nil {
		return nil, storeErr(err)
	}
	return created.Sanitized(), nil
}

// Login verifies the password for the user found by username or email and,
// on success, returns the sanitized profile and a new token pair. The
// wrong-password message does not disclose which part was wrong.
func (s *UserService) Login(ctx context.Context, login, password string) (*models.User, *TokenPair, error) {
	login = normalizeLogin(login)

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, storeErr(err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user.Sanitized(), pair, nil
}

// Logout revokes the user's active session. Idempotent.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.tokens.Revoke(ctx, userID)
}

// GetByID returns the sanitized profile for id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return user.Sanitized(), nil
}
