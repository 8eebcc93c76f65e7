// Package coverletter composes cover letters from a stored resume and a job
// posting, and manages the user's saved letters.
package coverletter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
)

// Request is the payload for generating a letter
type Request struct {
	ResumeID       string      `json:"resumeId" validate:"required"`
	JobTitle       string      `json:"jobTitle" validate:"notblank,max=200"`
	CompanyName    string      `json:"companyName" validate:"notblank,max=200"`
	JobDescription string      `json:"jobDescription" validate:"notblank"`
	HiringManager  string      `json:"hiringManager,omitempty" validate:"max=200"`
	CustomNotes    string      `json:"customNotes,omitempty" validate:"max=5000"`
	Tone           domain.Tone `json:"tone,omitempty" validate:"omitempty,oneof=professional enthusiastic confident formal conversational"`
}

// ResumeReader loads a resume owned by a user
type ResumeReader interface {
	Get(ctx context.Context, userID, id string) (*domain.ResumeValues, error)
}

// Store persists cover letters
type Store interface {
	Create(ctx context.Context, c *domain.CoverLetter) error
	List(ctx context.Context, userID string) ([]domain.CoverLetter, error)
	Get(ctx context.Context, userID, id string) (*domain.CoverLetter, error)
	UpdateContent(ctx context.Context, userID, id, content string) (*domain.CoverLetter, error)
	Delete(ctx context.Context, userID, id string) error
}

// Service generates and manages cover letters
type Service struct {
	resumes ResumeReader
	letters Store
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a cover letter service
func NewService(resumes ResumeReader, letters Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resumes: resumes,
		letters: letters,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate composes a letter for the user's resume and saves it
func (s *Service) Generate(ctx context.Context, userID string, req Request) (*domain.CoverLetter, error) {
	req.JobTitle = strings.TrimSpace(validation.StripTags(req.JobTitle))
	req.CompanyName = strings.TrimSpace(validation.StripTags(req.CompanyName))
	req.HiringManager = strings.TrimSpace(validation.StripTags(req.HiringManager))
	req.CustomNotes = strings.TrimSpace(validation.StripTags(req.CustomNotes))
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Tone == "" {
		req.Tone = domain.ToneProfessional
	}

	resume, err := s.resumes.Get(ctx, userID, req.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}
	sortByStartDesc(resume.WorkExperiences)

	letter := &domain.CoverLetter{
		UserID:      userID,
		ResumeID:    req.ResumeID,
		Title:       Title(req.JobTitle, req.CompanyName),
		JobTitle:    req.JobTitle,
		CompanyName: req.CompanyName,
		Tone:        req.Tone,
		Content: Compose(Letter{
			Request: req,
			Resume:  *resume,
			Date:    s.now(),
		}),
	}
	if err := s.letters.Create(ctx, letter); err != nil {
		return nil, err
	}

	s.logger.Info("cover letter generated",
		zap.String("user_id", userID),
		zap.String("cover_letter_id", letter.ID),
		zap.String("tone", string(letter.Tone)))
	return letter, nil
}

// List returns the user's letters, most recently updated first
func (s *Service) List(ctx context.Context, userID string) ([]domain.CoverLetter, error) {
	return s.letters.List(ctx, userID)
}

// Get returns one of the user's letters
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.CoverLetter, error) {
	return s.letters.Get(ctx, userID, id)
}

// UpdateContent replaces the body of a letter. Markup is stripped and the
// result must not be blank.
func (s *Service) UpdateContent(ctx context.Context, userID, id, content string) (*domain.CoverLetter, error) {
	content = strings.TrimSpace(validation.StripTags(content))
	if content == "" {
		return nil, validation.Field("content", "is required")
	}
	return s.letters.UpdateContent(ctx, userID, id, content)
}

// Delete removes one of the user's letters
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.letters.Delete(ctx, userID, id)
}
