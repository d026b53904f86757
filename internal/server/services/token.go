// Package services contains server-side business logic: token lifecycle,
// credential handling, and ownership-scoped todo operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/server/auth"
	"github.com/dkolesov/todovault/internal/server/config"
	"github.com/dkolesov/todovault/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService owns the session lifecycle:
//   - Issue: mint a signed pair and store the refresh value
//   - VerifyAccess: stateless access-token verification
//   - Rotate: single-use refresh rotation with compare-and-swap semantics
//   - Revoke: close the session
//
// Exactly one refresh token is valid per user at any time: the value stored
// on the user row. A signed, unexpired refresh token that does not byte-match
// the stored value is treated as revoked.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Issue mints a fresh token pair for userID and stores the refresh value,
// unconditionally replacing any previous session.
func (s *TokenService) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	pair, err := s.mintPair(userID)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return nil, storeErr(err)
	}
	return pair, nil
}

// VerifyAccess checks the signature and expiry of an access token and returns
// the subject user id. Failures are domain.ErrTokenInvalid or
// domain.ErrTokenExpired, so callers can react differently to each.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.accessSecret)
}

// Rotate validates a presented refresh token and replaces it with a fresh
// pair. The order matters: signature/expiry first, then identity lookup, then
// the stored-value comparison. The comparison and overwrite run as one
// conditional update, so of two concurrent rotations with the same token
// exactly one wins and the loser gets domain.ErrSessionRevoked.
func (s *TokenService) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	userID, err := auth.GetUserIDFromToken(presented, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.Error{Kind: domain.KindNotFound, Message: "identity not found"}
		}
		return nil, storeErr(err)
	}

	pair, err := s.mintPair(userID)
	if err != nil {
		return nil, err
	}

	if err := repo.SwapRefreshToken(ctx, userID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, domain.ErrSessionRevoked) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	return pair, nil
}

// Revoke clears the stored refresh token, closing the session. Revoking an
// already-revoked session is not an error.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.ClearRefreshToken(ctx, userID); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *TokenService) mintPair(userID string) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, domain.ErrInternal
	}
	refresh, err := auth.GenerateToken(userID, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, domain.ErrInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// storeErr passes domain errors through and wraps anything else (raw DB
// failures) as StoreUnavailable.
func storeErr(err error) error {
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	return domain.Store(err)
}
