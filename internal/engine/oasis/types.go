package oasis

// CreateCollectionRequest represents the request body for creating a collection
type CreateCollectionRequest struct {
	Name       string            `json:"name"`
	Dimension  uint32            `json:"dimension"`
	IndexType  string            `json:"index_type"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// GetCollectionResponse represents the response body for getting a collection
type GetCollectionResponse struct {
	Name       string            `json:"name"`
	Dimension  uint32            `json:"dimension"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// BuildIndexRequest asks the server to (re)build a collection index
type BuildIndexRequest struct {
	Field     string `json:"field"`
	IndexType string `json:"index_type"`
	Metric    string `json:"metric"`
	NList     int    `json:"nlist"`
}

// Document is one stored row; ids travel as decimal strings
type Document struct {
	ID         string         `json:"id"`
	Vector     []float32      `json:"vector"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Dimension  int            `json:"dimension,omitempty"`
}

type BatchUpsertRequest struct {
	Documents []Document `json:"documents"`
}

// BatchUpsertResponse is optional: the server usually answers 200 with an
// empty body, which means every document was accepted.
type BatchUpsertResponse struct {
	Upserted *int `json:"upserted"`
}

type SearchVectorRequest struct {
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit"`
}

// SearchResponse carries the matched documents and their distances as
// parallel arrays
type SearchResponse struct {
	Documents []Document `json:"documents"`
	Distances []float32  `json:"distances"`
}

// SearchResult pairs a matched document id with its distance
type SearchResult struct {
	ID       string  `json:"id"`
	Distance float32 `json:"distance"`
}

type errorResponse struct {
	Error string `json:"error"`
}
