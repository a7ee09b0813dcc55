package vector

import (
	"context"
	"fmt"
	"time"

	"vectorhub/internal/engine"
	"vectorhub/internal/index"
	"vectorhub/internal/observability"
	pkgerrors "vectorhub/pkg/errors"
	"vectorhub/pkg/logger"
)

// Writer submits batches of records.
type Writer struct {
	h *Handle
}

func NewWriter(h *Handle) *Writer {
	return &Writer{h: h}
}

// Insert validates records locally and submits them as one batch. It
// returns the number of records the engine acknowledged, which on success
// is always len(records).
//
// When ctx ends while the batch is in flight the error matches both
// ErrConnection and ErrOutcomeUnknown: the batch may or may not have been
// stored.
func (w *Writer) Insert(ctx context.Context, collection string, records []engine.Record) (n int, err error) {
	const op = "insert"
	if err := engine.ValidateName(collection); err != nil {
		return 0, pkgerrors.Validation(op, collection, err, "collection name")
	}
	if err := w.checkBatch(op, collection, records); err != nil {
		return 0, err
	}
	ctx, release, err := w.h.begin(ctx, op, collection)
	if err != nil {
		return 0, err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, collection)
	defer func() {
		observability.RecordCount(span, n)
		observability.RecordError(span, err)
		span.End()
	}()

	unlock, err := w.h.lockCollection(ctx, op, collection, true)
	if err != nil {
		return 0, err
	}
	defer unlock()

	schema, err := w.h.schemaOf(ctx, op, collection)
	if err != nil {
		report(op, collection, err)
		return 0, err
	}
	if err := checkVectors(op, collection, schema.Dimension, records); err != nil {
		return 0, err
	}

	start := time.Now()
	n, err = w.h.engine.Insert(ctx, collection, schema, copyRecords(records))
	if err != nil {
		if ctx.Err() != nil {
			err = pkgerrors.Connection(op, collection,
				fmt.Errorf("%w: %w", pkgerrors.ErrOutcomeUnknown, ctx.Err()),
				"insert of %d records interrupted; verify with Search before retrying", len(records))
		} else {
			err = classify(op, collection, err)
		}
		report(op, collection, err)
		return 0, err
	}
	if n != len(records) {
		err = pkgerrors.Rejected(op, collection, nil, "engine acknowledged %d of %d records", n, len(records))
		report(op, collection, err)
		return n, err
	}

	logger.Debug("batch inserted",
		"collection", collection,
		"count", n,
		"duration", time.Since(start))
	return n, nil
}

// checkBatch runs the checks that need no schema.
func (w *Writer) checkBatch(op, collection string, records []engine.Record) error {
	if len(records) == 0 {
		return pkgerrors.Validation(op, collection, pkgerrors.ErrEmptyBatch, "no records")
	}
	if limit := w.h.maxBatch(); limit > 0 && len(records) > limit {
		return pkgerrors.Validation(op, collection, pkgerrors.ErrBatchTooLarge, "%d records exceeds %d", len(records), limit)
	}
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			return pkgerrors.Validation(op, collection, pkgerrors.ErrDuplicateKey, "id %d", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

func checkVectors(op, collection string, dim int, records []engine.Record) error {
	for _, r := range records {
		if len(r.Vector) != dim {
			return pkgerrors.Validation(op, collection, pkgerrors.ErrInvalidDimension,
				"id %d has %d components, collection expects %d", r.ID, len(r.Vector), dim)
		}
		if !index.Finite(r.Vector) {
			return pkgerrors.Validation(op, collection, pkgerrors.ErrInvalidVector, "id %d", r.ID)
		}
	}
	return nil
}

// copyRecords detaches the batch from caller-owned slices and maps.
func copyRecords(records []engine.Record) []engine.Record {
	out := make([]engine.Record, len(records))
	for i, r := range records {
		out[i] = engine.Record{
			ID:     r.ID,
			Vector: append([]float32(nil), r.Vector...),
		}
		if len(r.Attributes) > 0 {
			attrs := make(map[string]any, len(r.Attributes))
			for k, v := range r.Attributes {
				attrs[k] = v
			}
			out[i].Attributes = attrs
		}
	}
	return out
}

// Progress is called after every committed batch of InsertBatches.
type Progress func(done, total int)

// InsertBatches splits records into consecutive batches of batchSize and
// inserts them in order. Each batch is atomic on its own; on failure the
// returned count covers the batches committed before it.
func (w *Writer) InsertBatches(ctx context.Context, collection string, records []engine.Record, batchSize int, progress Progress) (int, error) {
	if len(records) == 0 {
		return 0, pkgerrors.Validation("insert", collection, pkgerrors.ErrEmptyBatch, "no records")
	}
	if batchSize <= 0 {
		batchSize = w.h.cfg.Writer.LoadBatchSize
	}
	if limit := w.h.maxBatch(); batchSize <= 0 || (limit > 0 && batchSize > limit) {
		batchSize = limit
	}
	if batchSize <= 0 {
		batchSize = len(records)
	}

	total := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := w.Insert(ctx, collection, records[start:end])
		if err != nil {
			return total, err
		}
		total += n
		if progress != nil {
			progress(total, len(records))
		}
	}
	return total, nil
}

func (h *Handle) maxBatch() int {
	return h.cfg.Writer.MaxBatchSize
}
