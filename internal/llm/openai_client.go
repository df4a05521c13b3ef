// ABOUTME: OpenAI-backed inference for the chunk pipeline
// ABOUTME: Chat completions with multimodal image parts, retry on transient failures
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/infinitecontext/infinitectx/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the default model for chat completions
	DefaultModel = "gpt-4o-mini"
	// defaultTimeout bounds a single completion call
	defaultTimeout = 60 * time.Second
)

// OpenAIBackend implements Backend via the OpenAI chat completions API.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// NewOpenAIBackend creates the default backend implementation.
func NewOpenAIBackend(cfg Config) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	return &OpenAIBackend{
		client:     openai.NewClient(cfg.APIKey),
		model:      model,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
		timeout:    timeout,
	}, nil
}

// Generate runs one chat completion. Media payloads are attached as an
// inline data-URL image part next to the prompt text. Transient errors
// are retried with backoff; rate limits surface immediately so the
// caller can abort the batch.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, media *Media) (string, error) {
	message := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if media != nil {
		message.MultiContent = []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", media.MediaType, media.Data),
				},
			},
		}
	} else {
		message.Content = prompt
	}

	var responseText string
	err := util.Do(ctx, b.maxRetries, b.retryDelay, isTransient, func() error {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()

		resp, err := b.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:    b.model,
			Messages: []openai.ChatCompletionMessage{message},
		})
		if err != nil {
			return classify(err)
		}
		if len(resp.Choices) == 0 {
			return &BackendError{Message: "Inference request failed", Details: "no completion choices returned"}
		}

		responseText = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return responseText, nil
}

// classify maps provider errors onto the pipeline's taxonomy: HTTP 429
// and quota errors become ErrRateLimited, everything else a contained
// BackendError keeping the raw text for diagnostics.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota" {
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
		return &BackendError{Message: "Inference request failed", Details: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrRateLimited, reqErr.Err)
		}
		return &BackendError{Message: "Inference request failed", Details: reqErr.Error()}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BackendError{Message: "Inference request failed", Details: err.Error()}
}

// isTransient decides whether a classified error is worth retrying.
// Rate limits and cancellations are not; they must propagate.
func isTransient(err error) bool {
	if IsRateLimited(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
