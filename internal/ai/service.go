// Package ai implements the LLM-backed resume features: ATS analysis,
// optimization for a job description and generation of summaries, work
// experience and project entries.
package ai

import (
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/llm"
	"github.com/resumate-app/resumate/internal/web/cache"
)

// Service runs the AI features against one completion backend
type Service struct {
	llm      llm.Completer
	models   llm.Models
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithCache caches ATS analyses in c for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger used for fallbacks and cache failures
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates the AI service
func NewService(completer llm.Completer, models llm.Models, opts ...Option) *Service {
	s := &Service{
		llm:      completer,
		models:   models,
		cacheTTL: 24 * time.Hour,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
