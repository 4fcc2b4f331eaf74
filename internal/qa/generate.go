package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/codequery/codequery/internal/logging"
)

// ErrUnavailable marks the generation backend as unreachable or misbehaving.
// It is a defined degraded-mode branch for the engine, not a fatal error.
var ErrUnavailable = errors.New("generation backend unavailable")

// GenerationClient produces answer text from a prompt.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaClient calls a local Ollama model for answer generation. Every call
// is bounded by the configured timeout; past it the backend is treated as
// unavailable.
type OllamaClient struct {
	model string
	llm   *ollama.LLM
	to    time.Duration
	log   logging.Logger
}

func NewOllamaClient(baseURL, model string, timeout time.Duration, log logging.Logger) (*OllamaClient, error) {
	if model == "" {
		return nil, fmt.Errorf("llm model name is required")
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		opts = append(opts, ollama.WithServerURL(trimmed))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{model: model, llm: llm, to: timeout, log: log.WithName("llm")}, nil
}

// Generate returns the model's completion for the prompt. Connection
// failures, timeouts, and malformed responses all surface as ErrUnavailable.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.to)
	defer cancel()

	start := time.Now()
	resp, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(512),
	)
	if err != nil {
		c.log.Info("generation failed", "model", c.model, "elapsed", time.Since(start).String(), "reason", err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", ErrUnavailable, c.to)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(resp) == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	c.log.Debug("generation complete", "model", c.model, "elapsed", time.Since(start).String())
	return resp, nil
}
