// Package embedding turns text into vectors for collections whose records
// come from documents rather than precomputed embeddings.
package embedding

import "context"

// Provider is implemented by every embedding backend.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
