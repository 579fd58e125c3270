// Package completion sends a single prompt to a hosted language model and
// returns the raw text of its reply.
package completion

import (
	"context"

	"github.com/nijaru/yt-recap/config"
	"github.com/pkg/errors"
)

// Request is one system + user exchange. The reply is requested as a JSON
// object.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Client performs one blocking round trip per call. An empty string with a
// nil error means the model returned no content.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New returns the client for cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey)
	default:
		return nil, errors.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
