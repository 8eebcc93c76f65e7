package domain

import (
	"errors"
	"time"
)

// Role names carried in access tokens
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Sentinel errors shared across services. The HTTP layer maps them to
// status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoCredits          = errors.New("no credits remaining")
	ErrResumeLimitReached = errors.New("resume limit reached for free plan")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is an account
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            string     `json:"role"`
	Credit          int        `json:"credit"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TokenKind distinguishes single-use email tokens
type TokenKind string

const (
	TokenEmailVerification TokenKind = "EMAIL_VERIFICATION"
	TokenPasswordReset     TokenKind = "PASSWORD_RESET"
)

// VerificationToken is a single-use token mailed to a user
type VerificationToken struct {
	Email     string
	Token     string
	Kind      TokenKind
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now
func (t VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
