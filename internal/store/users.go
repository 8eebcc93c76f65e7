package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/resumate-app/resumate/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, credit, email_verified_at, created_at, updated_at`

// UserStore persists accounts and their AI credit balance
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u        domain.User
		hash     sql.NullString
		verified sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &hash, &u.Role, &u.Credit, &verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	if verified.Valid {
		u.EmailVerifiedAt = &verified.Time
	}
	return &u, nil
}

// Create inserts a new user. The email is stored lower-cased; a duplicate
// email yields domain.ErrConflict.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.Email = strings.ToLower(u.Email)

	hash := sql.NullString{String: u.PasswordHash, Valid: u.PasswordHash != ""}
	err := s.db.QueryRowContext(ctx, `
INSERT INTO users (id, name, email, password_hash, role, credit)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, hash, u.Role, u.Credit,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapError(err))
	}
	return nil
}

// GetByID loads a user by id
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// GetByEmail loads a user by email, case-insensitively
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// MarkVerified records that the owner of email confirmed it
func (s *UserStore) MarkVerified(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE users SET email_verified_at = COALESCE(email_verified_at, NOW()), updated_at = NOW()
WHERE email = $1`, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return expectOne(res)
}

// UpdatePassword replaces the password hash of the account with email
func (s *UserStore) UpdatePassword(ctx context.Context, email, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE email = $1`,
		strings.ToLower(email), hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOne(res)
}

// UpdateName changes the display name of the account with id
func (s *UserStore) UpdateName(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	return expectOne(res)
}

// UpsertGoogle creates a verified account for a Google sign-in, or marks an
// existing account with the same email verified. New accounts start with
// credit free credits.
func (s *UserStore) UpsertGoogle(ctx context.Context, email, name string, credit int) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
INSERT INTO users (id, name, email, role, credit, email_verified_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (email) DO UPDATE SET
	name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END,
	email_verified_at = COALESCE(users.email_verified_at, NOW()),
	updated_at = NOW()
RETURNING `+userColumns,
		uuid.NewString(), name, strings.ToLower(email), domain.RoleUser, credit))
	if err != nil {
		return nil, fmt.Errorf("upsert google user: %w", mapError(err))
	}
	return u, nil
}

// DecrementCredit atomically takes one credit from the user and returns the
// remaining balance. A user with no credit left yields domain.ErrNoCredits.
func (s *UserStore) DecrementCredit(ctx context.Context, userID string) (int, error) {
	var remaining int
	err := s.db.QueryRowContext(ctx, `
UPDATE users SET credit = credit - 1, updated_at = NOW()
WHERE id = $1 AND credit > 0
RETURNING credit`, userID).Scan(&remaining)
	if err == sql.ErrNoRows {
		return 0, domain.ErrNoCredits
	}
	if err != nil {
		return 0, fmt.Errorf("decrement credit: %w", err)
	}
	return remaining, nil
}

// GetCredit returns the user's credit balance
func (s *UserStore) GetCredit(ctx context.Context, userID string) (int, error) {
	var credit int
	if err := s.db.QueryRowContext(ctx, `SELECT credit FROM users WHERE id = $1`, userID).Scan(&credit); err != nil {
		return 0, mapError(err)
	}
	return credit, nil
}
