// Package llm wraps the hosted chat-completion APIs behind one interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/resumate-app/resumate/internal/config"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is a single system + user prompt exchange
type Request struct {
	Model  string
	System string
	User   string
	// JSON asks the backend to constrain the reply to a JSON object
	JSON bool
}

// Completer produces the model's reply to a request
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Models names the model used for each kind of task
type Models struct {
	Analysis   string
	Generation string
}

const (
	defaultGeminiAnalysis   = "gemini-2.5-pro"
	defaultGeminiGeneration = "gemini-2.5-flash"
)

// New builds the completer selected by cfg.Provider
func New(ctx context.Context, cfg config.LLMConfig) (Completer, Models, error) {
	models := Models{Analysis: cfg.AnalysisModel, Generation: cfg.GenerationModel}

	var (
		c   Completer
		err error
	)
	switch cfg.Provider {
	case "", "openai":
		c = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case "gemini":
		// The OpenAI model names are the configured defaults.
		if strings.HasPrefix(models.Analysis, "gpt-") {
			models.Analysis = defaultGeminiAnalysis
		}
		if strings.HasPrefix(models.Generation, "gpt-") {
			models.Generation = defaultGeminiGeneration
		}
		c, err = NewGemini(ctx, cfg.GeminiAPIKey, "")
	default:
		err = fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, Models{}, err
	}

	if cfg.Timeout > 0 {
		c = WithTimeout(c, cfg.Timeout)
	}
	return c, models, nil
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call to c by d
func WithTimeout(c Completer, d time.Duration) Completer {
	return &timeoutCompleter{next: c, timeout: d}
}

func (t *timeoutCompleter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, req)
}

// CleanJSON strips the markdown code fence models like to wrap JSON in
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimPrefix(clean, "```JSON")
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	}
	return strings.TrimSpace(clean)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
