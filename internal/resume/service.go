// Package resume implements saving, loading and deleting resumes and their
// photos on behalf of a user.
package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
)

// MaxPhotoSize is the largest accepted photo upload
const MaxPhotoSize = 4 << 20

// Store persists resumes
type Store interface {
	Create(ctx context.Context, userID string, v *domain.ResumeValues) error
	Update(ctx context.Context, userID string, v *domain.ResumeValues) error
	Get(ctx context.Context, userID, id string) (*domain.ResumeValues, error)
	List(ctx context.Context, userID string) ([]domain.ResumeSummary, error)
	Count(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, id string) (string, error)
	SetPhoto(ctx context.Context, userID, id, url string) (string, error)
}

// Subscriptions looks up a user's plan
type Subscriptions interface {
	GetByUser(ctx context.Context, userID string) (*domain.Subscription, error)
}

// Photos stores resume photos
type Photos interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Config holds the free plan limits
type Config struct {
	// FreeResumeLimit caps resumes for users without an active
	// subscription. Zero means unlimited.
	FreeResumeLimit int
}

// Service manages resumes
type Service struct {
	store   Store
	subs    Subscriptions
	photos  Photos
	config  Config
	logger  *zap.Logger
	cleanup func(ctx context.Context, url string) error
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPhotoCleanup defers deleting replaced photos to fn, typically a
// background job. Without it old photos are deleted inline.
func WithPhotoCleanup(fn func(ctx context.Context, url string) error) Option {
	return func(s *Service) { s.cleanup = fn }
}

// NewService creates a resume service
func NewService(store Store, subs Subscriptions, photos Photos, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:  store,
		subs:   subs,
		photos: photos,
		config: cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save creates or updates a resume. Values with an id must name a resume the
// user owns. New resumes count against the free plan limit unless the user
// has an active subscription.
func (s *Service) Save(ctx context.Context, userID string, values domain.ResumeValues) (*domain.ResumeValues, error) {
	values.Normalize()
	if err := validation.Struct(values); err != nil {
		return nil, err
	}

	// The photo is managed by the upload endpoint only.
	values.PhotoURL = ""

	if values.ID != "" {
		if err := s.store.Update(ctx, userID, &values); err != nil {
			return nil, err
		}
		return &values, nil
	}

	if err := s.checkLimit(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, userID, &values); err != nil {
		return nil, err
	}
	s.logger.Info("resume created", zap.String("user_id", userID), zap.String("resume_id", values.ID))
	return &values, nil
}

func (s *Service) checkLimit(ctx context.Context, userID string) error {
	if s.config.FreeResumeLimit <= 0 {
		return nil
	}

	sub, err := s.subs.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load subscription: %w", err)
	}
	if sub.Active(s.now()) {
		return nil
	}

	count, err := s.store.Count(ctx, userID)
	if err != nil {
		return err
	}
	if count >= s.config.FreeResumeLimit {
		return domain.ErrResumeLimitReached
	}
	return nil
}

// Get loads one of the user's resumes
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.ResumeValues, error) {
	return s.store.Get(ctx, userID, id)
}

// List returns the user's resumes, most recently updated first
func (s *Service) List(ctx context.Context, userID string) ([]domain.ResumeSummary, error) {
	return s.store.List(ctx, userID)
}

// Delete removes the stored photo and then the resume
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if existing.PhotoURL != "" {
		if err := s.photos.Delete(ctx, existing.PhotoURL); err != nil {
			return fmt.Errorf("delete photo: %w", err)
		}
	}

	if _, err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("resume deleted", zap.String("user_id", userID), zap.String("resume_id", id))
	return nil
}

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// PhotoKey is the object key a resume photo is stored under
func PhotoKey(resumeID, contentType string) string {
	return fmt.Sprintf("resumes/%s/photo-%s%s", resumeID, uuid.NewString(), photoExtensions[contentType])
}

// UploadPhoto stores a new photo for the resume and removes the one it
// replaces. It returns the new photo URL.
func (s *Service) UploadPhoto(ctx context.Context, userID, resumeID string, body io.Reader, size int64, contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", validation.Field("photo", "must be an image")
	}
	if size > MaxPhotoSize {
		return "", validation.Field("photo", "must be at most 4 MB")
	}

	if _, err := s.store.Get(ctx, userID, resumeID); err != nil {
		return "", err
	}

	url, err := s.photos.Put(ctx, PhotoKey(resumeID, contentType), body, size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	previous, err := s.store.SetPhoto(ctx, userID, resumeID, url)
	if err != nil {
		if delErr := s.photos.Delete(ctx, url); delErr != nil {
			s.logger.Warn("failed to remove orphaned photo", zap.String("url", url), zap.Error(delErr))
		}
		return "", err
	}

	if previous != "" {
		s.removePhoto(ctx, previous)
	}
	return url, nil
}

func (s *Service) removePhoto(ctx context.Context, url string) {
	remove := s.photos.Delete
	if s.cleanup != nil {
		remove = s.cleanup
	}
	if err := remove(ctx, url); err != nil {
		s.logger.Warn("failed to remove replaced photo", zap.String("url", url), zap.Error(err))
	}
}
