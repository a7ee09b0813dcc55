package vector

import (
	"context"
	"time"

	"vectorhub/internal/engine"
	"vectorhub/internal/observability"
	pkgerrors "vectorhub/pkg/errors"
	"vectorhub/pkg/logger"
)

// IndexBuilder requests IVF_FLAT/L2 indexes on vector fields.
type IndexBuilder struct {
	h *Handle
}

func NewIndexBuilder(h *Handle) *IndexBuilder {
	return &IndexBuilder{h: h}
}

// BuildIndex indexes field with the configured nlist. Repeating the call on
// an indexed field succeeds without touching the existing index.
func (b *IndexBuilder) BuildIndex(ctx context.Context, collection, field string) error {
	return b.BuildIndexWithParams(ctx, collection, field, b.h.cfg.Engine.NList)
}

// BuildIndexWithParams is BuildIndex with an explicit nlist; zero selects
// the default.
func (b *IndexBuilder) BuildIndexWithParams(ctx context.Context, collection, field string, nlist int) (err error) {
	const op = "build_index"
	if err := engine.ValidateName(collection); err != nil {
		return pkgerrors.Validation(op, collection, err, "collection name")
	}
	spec := engine.NewIndexSpec(field, nlist)
	if err := spec.Validate(); err != nil {
		return pkgerrors.Validation(op, collection, err, "index spec")
	}
	ctx, release, err := b.h.begin(ctx, op, collection)
	if err != nil {
		return err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, collection)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	unlock, err := b.h.lockCollection(ctx, op, collection, true)
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	schema, err := b.h.schemaOf(ctx, op, collection)
	if err == nil && schema.VectorField != field {
		err = pkgerrors.NotFound(op, collection, pkgerrors.ErrFieldNotFound, "no vector field %q", field)
	}
	if err == nil {
		err = b.h.engine.BuildIndex(ctx, collection, spec)
	}
	if err != nil {
		err = classify(op, collection, err)
		report(op, collection, err)
		return err
	}
	logger.Info("index built",
		"collection", collection,
		"field", field,
		"index", spec.Type,
		"metric", spec.Metric,
		"nlist", spec.NList,
		"duration", time.Since(start))
	return nil
}
