package oasis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a thin wrapper around the OasisDB HTTP API.
type Client struct {
	BaseURL  string
	Username string
	Password string
	HTTP     *http.Client
}

// ErrMalformedResponse is returned when a successful answer cannot be decoded
// into the expected shape.
var ErrMalformedResponse = errors.New("oasisdb: malformed response")

// APIError is returned when the server answers with a non-successful status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("oasisdb: %d %s", e.StatusCode, e.Message)
}

// NewClient creates a client for baseURL, e.g. http://localhost:8080.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// do sends body as JSON and decodes the answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := string(respBody)
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func collectionPath(name string, rest ...string) string {
	p := "/v1/collections/" + url.PathEscape(name)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// HealthCheck returns nil when the server reports status ok.
func (c *Client) HealthCheck(ctx context.Context) error {
	var result map[string]any
	if err := c.do(ctx, http.MethodGet, "/", nil, &result); err != nil {
		return err
	}
	if result["status"] != "ok" {
		return fmt.Errorf("oasisdb: unhealthy status %v", result["status"])
	}
	return nil
}

func (c *Client) CreateCollection(ctx context.Context, req CreateCollectionRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/collections", req, nil)
}

func (c *Client) GetCollection(ctx context.Context, name string) (*GetCollectionResponse, error) {
	var result GetCollectionResponse
	if err := c.do(ctx, http.MethodGet, collectionPath(name), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListCollections(ctx context.Context) ([]GetCollectionResponse, error) {
	var result []GetCollectionResponse
	err := c.do(ctx, http.MethodGet, "/v1/collections", nil, &result)
	return result, err
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, collectionPath(name), nil, nil)
}

func (c *Client) BuildIndex(ctx context.Context, name string, req BuildIndexRequest) error {
	return c.do(ctx, http.MethodPost, collectionPath(name, "buildindex"), req, nil)
}

// BatchUpsertDocuments inserts or updates documents and returns the count
// the server accepted. A bare 2xx accepts the whole batch.
func (c *Client) BatchUpsertDocuments(ctx context.Context, name string, docs []Document) (int, error) {
	var result BatchUpsertResponse
	err := c.do(ctx, http.MethodPost, collectionPath(name, "documents", "batchupsert"), BatchUpsertRequest{Documents: docs}, &result)
	if err != nil {
		return 0, err
	}
	if result.Upserted == nil {
		return len(docs), nil
	}
	return *result.Upserted, nil
}

// SearchVectors returns the nearest documents, closest first. The answer must
// carry both the documents and distances arrays, of equal length.
func (c *Client) SearchVectors(ctx context.Context, name string, vector []float32, limit int) ([]SearchResult, error) {
	var raw map[string]json.RawMessage
	err := c.do(ctx, http.MethodPost, collectionPath(name, "vectors", "search"), SearchVectorRequest{Vector: vector, Limit: limit}, &raw)
	if err != nil {
		return nil, err
	}
	docsRaw, hasDocs := raw["documents"]
	distRaw, hasDist := raw["distances"]
	if !hasDocs || !hasDist {
		return nil, fmt.Errorf("%w: want documents and distances", ErrMalformedResponse)
	}
	var result SearchResponse
	if err := json.Unmarshal(docsRaw, &result.Documents); err != nil {
		return nil, fmt.Errorf("%w: documents: %w", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal(distRaw, &result.Distances); err != nil {
		return nil, fmt.Errorf("%w: distances: %w", ErrMalformedResponse, err)
	}
	if len(result.Documents) != len(result.Distances) {
		return nil, fmt.Errorf("%w: %d documents but %d distances",
			ErrMalformedResponse, len(result.Documents), len(result.Distances))
	}
	out := make([]SearchResult, len(result.Documents))
	for i, d := range result.Documents {
		out[i] = SearchResult{ID: d.ID, Distance: result.Distances[i]}
	}
	return out, nil
}
