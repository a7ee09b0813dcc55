package index

import (
	"fmt"
	"sort"

	pkgerrors "vectorhub/pkg/errors"
)

// IndexConfig represents index configuration
type IndexConfig struct {
	SpaceType SpaceType // distance metric type
	IndexType IndexType // "flat" or "ivf_flat"
	Dimension int       // vector dimension
	NList     int       // IVF cluster count
	NProbe    int       // IVF clusters scanned per query
}

// SearchResult holds ids and distances ordered nearest first
type SearchResult struct {
	IDs       []int64
	Distances []float32
}

// VectorIndex represents a vector index. Implementations are not safe for
// concurrent use; callers hold their own lock.
type VectorIndex interface {
	// Add adds a vector to the index
	Add(id int64, vector []float32) error

	// AddBatch adds multiple vectors to the index
	AddBatch(ids []int64, vectors [][]float32) error

	// Build replaces the index content with the given vectors
	Build(ids []int64, vectors [][]float32) error

	// Delete removes a vector from the index
	Delete(id int64) error

	// Search performs a k-NN search
	Search(vector []float32, k int) (*SearchResult, error)

	// Len returns the number of indexed vectors
	Len() int
}

// New creates an empty index of the configured type.
func New(config *IndexConfig) (VectorIndex, error) {
	if config.SpaceType == "" {
		config.SpaceType = L2Space
	}
	if config.SpaceType != L2Space {
		return nil, fmt.Errorf("%w: space %q", pkgerrors.ErrInvalidSchema, config.SpaceType)
	}
	switch config.IndexType {
	case FLATIndex:
		return newFlatIndex(config)
	case IVFFLATIndex:
		return newIVFIndex(config)
	default:
		return nil, fmt.Errorf("%w: index type %q", pkgerrors.ErrInvalidSchema, config.IndexType)
	}
}

type candidate struct {
	id   int64
	dist float32
}

// topK orders candidates by distance then id and keeps the first k.
func topK(cands []candidate, k int) *SearchResult {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].id < cands[j].id
	})
	if k > len(cands) {
		k = len(cands)
	}
	res := &SearchResult{
		IDs:       make([]int64, k),
		Distances: make([]float32, k),
	}
	for i := 0; i < k; i++ {
		res.IDs[i] = cands[i].id
		res.Distances[i] = cands[i].dist
	}
	return res
}
