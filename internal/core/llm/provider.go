package llm

import (
	"context"
	"fmt"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/core"
)

// NewEmbeddingProvider builds the provider selected by AI_CHAT_AGENT.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	switch cfg.AIChatAgent {
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbedModel, cfg.EmbedDim)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(ctx, cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.OpenAIBaseURL, cfg.EmbedDim, cfg.EmbedTimeout)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.AIChatAgent)
	}
}
