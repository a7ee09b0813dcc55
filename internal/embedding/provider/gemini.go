package provider

import (
	"context"
	"fmt"

	"vectorhub/internal/embedding"

	"google.golang.org/genai"
)

// GeminiEmbeddingProvider embeds text with the Gemini API.
type GeminiEmbeddingProvider struct {
	client *genai.Client
	model  string
	// dimension truncates the output when non-zero
	dimension int32
}

var _ embedding.Provider = (*GeminiEmbeddingProvider)(nil)

// NewGeminiEmbeddingProvider creates a provider. baseURL overrides the API
// endpoint and is empty in production.
func NewGeminiEmbeddingProvider(ctx context.Context, apiKey, model, baseURL string, dimension int) (*GeminiEmbeddingProvider, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiEmbeddingProvider{
		client:    client,
		model:     model,
		dimension: int32(dimension),
	}, nil
}

func (g *GeminiEmbeddingProvider) Name() string { return "gemini" }

func (g *GeminiEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.embed(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *GeminiEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	return g.embed(ctx, contents)
}

func (g *GeminiEmbeddingProvider) embed(ctx context.Context, contents []*genai.Content) ([][]float32, error) {
	var cfg *genai.EmbedContentConfig
	if g.dimension > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &g.dimension}
	}
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(contents) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(contents), len(resp.Embeddings))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
