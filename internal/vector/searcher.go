package vector

import (
	"context"
	"sort"

	"vectorhub/internal/engine"
	"vectorhub/internal/index"
	"vectorhub/internal/observability"
	pkgerrors "vectorhub/pkg/errors"
)

// MaxTopK bounds a single query; Milvus refuses anything larger.
const MaxTopK = 16384

// Searcher runs top-K nearest neighbor queries.
type Searcher struct {
	h *Handle
}

func NewSearcher(h *Handle) *Searcher {
	return &Searcher{h: h}
}

// Search returns at most topK hits ordered by ascending distance, ties by
// ascending id. A remote failure is always returned as an error; an empty
// slice means nothing matched.
func (s *Searcher) Search(ctx context.Context, collection string, query []float32, topK int) (hits []engine.Hit, err error) {
	const op = "search"
	if err := engine.ValidateName(collection); err != nil {
		return nil, pkgerrors.Validation(op, collection, err, "collection name")
	}
	if topK < 1 || topK > MaxTopK {
		return nil, pkgerrors.Validation(op, collection, pkgerrors.ErrInvalidTopK, "topK %d not in [1, %d]", topK, MaxTopK)
	}
	if !index.Finite(query) {
		return nil, pkgerrors.Validation(op, collection, pkgerrors.ErrInvalidVector, "query")
	}
	ctx, release, err := s.h.begin(ctx, op, collection)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, collection)
	defer func() {
		observability.RecordCount(span, len(hits))
		observability.RecordError(span, err)
		span.End()
	}()

	unlock, err := s.h.lockCollection(ctx, op, collection, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	schema, err := s.h.schemaOf(ctx, op, collection)
	if err != nil {
		report(op, collection, err)
		return nil, err
	}
	if len(query) != schema.Dimension {
		return nil, pkgerrors.Validation(op, collection, pkgerrors.ErrInvalidDimension,
			"query has %d components, collection expects %d", len(query), schema.Dimension)
	}

	raw, err := s.h.engine.Search(ctx, collection, schema, append([]float32(nil), query...), topK)
	if err != nil {
		err = classify(op, collection, err)
		report(op, collection, err)
		return nil, err
	}
	return rank(raw, topK), nil
}

// rank copies hits into ascending (distance, id) order and truncates.
func rank(raw []engine.Hit, topK int) []engine.Hit {
	hits := append(make([]engine.Hit, 0, len(raw)), raw...)
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
