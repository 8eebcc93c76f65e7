package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/resumate-app/resumate/internal/domain"
)

// TokenStore persists single-use email tokens. A user holds at most one
// token per kind; issuing a new one replaces the old.
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a token store
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Save stores t, replacing any earlier token of the same kind for the email
func (s *TokenStore) Save(ctx context.Context, t domain.VerificationToken) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO verification_tokens (email, token, kind, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email, kind) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at`,
		strings.ToLower(t.Email), t.Token, string(t.Kind), t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save token: %w", mapError(err))
	}
	return nil
}

// Consume deletes and returns the token of the given kind. Unknown tokens
// yield domain.ErrNotFound; expiry is left for the caller to check.
func (s *TokenStore) Consume(ctx context.Context, token string, kind domain.TokenKind) (*domain.VerificationToken, error) {
	t := domain.VerificationToken{Kind: kind}
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM verification_tokens WHERE token = $1 AND kind = $2 RETURNING email, token, expires_at`,
		token, string(kind)).Scan(&t.Email, &t.Token, &t.ExpiresAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}
