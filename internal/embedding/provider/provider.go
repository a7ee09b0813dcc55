// Package provider holds the embedding backends.
package provider

import (
	"context"
	"fmt"

	"vectorhub/internal/config"
	"vectorhub/internal/embedding"
)

// New returns the provider named in cfg. dimension asks providers that
// support it to shorten their output; zero keeps the model default.
func New(ctx context.Context, cfg config.EmbeddingConfig, dimension int) (embedding.Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiEmbeddingProvider(ctx, cfg.APIKey, orDefault(cfg.Model, config.DefaultEmbeddingModel), "", dimension)
	case "openai":
		return NewOpenAIEmbeddingProvider("openai", OpenAIURL, cfg.APIKey, orDefault(cfg.Model, DefaultOpenAIModel))
	case "dashscope":
		return NewOpenAIEmbeddingProvider("dashscope", DashScopeURL, cfg.APIKey, orDefault(cfg.Model, DefaultDashScopeModel))
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
