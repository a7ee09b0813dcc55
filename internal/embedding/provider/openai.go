package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"vectorhub/internal/embedding"
)

// Endpoints speaking the OpenAI embeddings protocol
const (
	OpenAIURL    = "https://api.openai.com/v1/embeddings"
	DashScopeURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"

	DefaultOpenAIModel    = "text-embedding-3-small"
	DefaultDashScopeModel = "text-embedding-v4"
)

// OpenAIEmbeddingProvider calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbeddingProvider struct {
	name   string
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

var _ embedding.Provider = (*OpenAIEmbeddingProvider)(nil)

func NewOpenAIEmbeddingProvider(name, apiURL, apiKey, model string) (*OpenAIEmbeddingProvider, error) {
	if apiKey == "" {
		return nil, errors.New("embedding api key is empty")
	}
	return &OpenAIEmbeddingProvider{
		name:   name,
		apiKey: apiKey,
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (e *OpenAIEmbeddingProvider) Name() string { return e.name }

func (e *OpenAIEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.request(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.request(ctx, texts, len(texts))
}

func (e *OpenAIEmbeddingProvider) request(ctx context.Context, input any, want int) ([][]float32, error) {
	body, err := json.Marshal(OpenAIEmbeddingRequest{
		Model:          e.model,
		Input:          input,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", e.apiKey))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s embeddings API returned status %d: %s", e.name, resp.StatusCode, string(respBody))
	}

	var embeddingResp OpenAIEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, err
	}
	if len(embeddingResp.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(embeddingResp.Data))
	}

	out := make([][]float32, want)
	for i, item := range embeddingResp.Data {
		idx := item.Index
		if idx < 0 || idx >= want || out[idx] != nil {
			idx = i
		}
		out[idx] = item.Embedding
	}
	return out, nil
}
