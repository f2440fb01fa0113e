package llm

import (
	"context"
	"fmt"

	"coach-planner/internal/config"
	"coach-planner/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// New builds the TextGenerator selected by cfg.LLMProvider.
func New(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
}
