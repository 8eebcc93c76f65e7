package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/resumate-app/resumate/internal/domain"
)

const coverLetterColumns = `id, user_id, resume_id, title, content, job_title, company_name, tone, created_at, updated_at`

// CoverLetterStore persists generated cover letters
type CoverLetterStore struct {
	db *sql.DB
}

// NewCoverLetterStore creates a cover letter store
func NewCoverLetterStore(db *sql.DB) *CoverLetterStore {
	return &CoverLetterStore{db: db}
}

func scanCoverLetter(row interface{ Scan(...any) error }) (*domain.CoverLetter, error) {
	var c domain.CoverLetter
	err := row.Scan(&c.ID, &c.UserID, &c.ResumeID, &c.Title, &c.Content, &c.JobTitle, &c.CompanyName, &c.Tone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts c and fills in its id and timestamps
func (s *CoverLetterStore) Create(ctx context.Context, c *domain.CoverLetter) error {
	c.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
INSERT INTO cover_letters (id, user_id, resume_id, title, content, job_title, company_name, tone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.ResumeID, c.Title, c.Content, c.JobTitle, c.CompanyName, string(c.Tone),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create cover letter: %w", mapError(err))
	}
	return nil
}

// List returns the user's cover letters, most recently updated first
func (s *CoverLetterStore) List(ctx context.Context, userID string) ([]domain.CoverLetter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+coverLetterColumns+` FROM cover_letters WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cover letters: %w", err)
	}
	defer rows.Close()

	letters := []domain.CoverLetter{}
	for rows.Next() {
		c, err := scanCoverLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cover letter: %w", err)
		}
		letters = append(letters, *c)
	}
	return letters, rows.Err()
}

// Get loads one cover letter owned by userID
func (s *CoverLetterStore) Get(ctx context.Context, userID, id string) (*domain.CoverLetter, error) {
	c, err := scanCoverLetter(s.db.QueryRowContext(ctx,
		`SELECT `+coverLetterColumns+` FROM cover_letters WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// UpdateContent replaces the letter body and returns the updated letter
func (s *CoverLetterStore) UpdateContent(ctx context.Context, userID, id, content string) (*domain.CoverLetter, error) {
	c, err := scanCoverLetter(s.db.QueryRowContext(ctx, `
UPDATE cover_letters SET content = $3, updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING `+coverLetterColumns, id, userID, content))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// Delete removes one cover letter owned by userID
func (s *CoverLetterStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cover_letters WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete cover letter: %w", err)
	}
	return expectOne(res)
}
