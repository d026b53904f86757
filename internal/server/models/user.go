package models

import (
	"database/sql"
	"time"
)

// User is the account entity. PasswordHash and RefreshToken never leave the
// service layer; handlers only ever see the Sanitized projection.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	// RefreshToken holds the single currently valid refresh token, or NULL
	// when the user has no active session.
	RefreshToken sql.NullString
	CreatedAt    time.Time
}

// Sanitized returns a copy safe to hand to the transport layer: credential
// material is stripped.
func (u *User) Sanitized() *User {
	return &User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
