// ABOUTME: Backend is the single inference capability the dispatcher fans out over
// ABOUTME: Includes the error taxonomy separating rate limits from contained failures
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Media is an optional inline payload sent alongside a prompt.
type Media struct {
	// Data is the base64-encoded bytes.
	Data string
	// MediaType is the MIME type, e.g. "image/jpeg".
	MediaType string
}

// Backend generates text from a prompt with optional inline media.
// Implementations must return an error wrapping ErrRateLimited when the
// provider signals throttling or quota exhaustion; callers treat that
// class as fatal for the whole batch.
type Backend interface {
	Generate(ctx context.Context, prompt string, media *Media) (string, error)
}

// ErrRateLimited marks throttling and quota errors. The dispatcher
// aborts the batch on this class instead of containing it to one unit.
var ErrRateLimited = errors.New("rate limited")

// IsRateLimited reports whether err belongs to the batch-fatal class.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// BackendError is a contained per-unit failure carrying a client-facing
// message with the raw backend text kept for diagnostics.
type BackendError struct {
	Message string
	Details string
}

func (e *BackendError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

// UserMessage returns the human-readable text safe to surface in a
// unit result.
func UserMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	if IsRateLimited(err) {
		return "Rate limit reached"
	}
	return "Inference request failed"
}

// Config carries the settings a backend needs; a subset of the
// application config so backends stay constructible in isolation.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// New builds a backend by name. OpenAI is the default implementation;
// additional providers register here without touching the dispatcher.
func New(name string, cfg Config) (Backend, error) {
	switch name {
	case "", "openai":
		return NewOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
