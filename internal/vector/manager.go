package vector

import (
	"context"
	"time"

	"vectorhub/internal/engine"
	"vectorhub/internal/observability"
	pkgerrors "vectorhub/pkg/errors"
	"vectorhub/pkg/logger"
)

// Manager creates, drops and inspects collections.
type Manager struct {
	h *Handle
}

func NewManager(h *Handle) *Manager {
	return &Manager{h: h}
}

// Exists reports whether name is a collection in the active database.
func (m *Manager) Exists(ctx context.Context, name string) (ok bool, err error) {
	const op = "exists"
	if err := engine.ValidateName(name); err != nil {
		return false, pkgerrors.Validation(op, name, err, "collection name")
	}
	ctx, release, err := m.h.begin(ctx, op, name)
	if err != nil {
		return false, err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, name)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	unlock, err := m.h.lockCollection(ctx, op, name, false)
	if err != nil {
		return false, err
	}
	defer unlock()

	ok, err = m.h.engine.Exists(ctx, name)
	if err != nil {
		err = classify(op, name, err)
		report(op, name, err)
		return false, err
	}
	return ok, nil
}

// Create makes a collection with schema. An existing collection yields an
// AlreadyExists error, which callers re-running initialization can ignore.
func (m *Manager) Create(ctx context.Context, name string, schema engine.Schema) (err error) {
	const op = "create"
	if err := engine.ValidateName(name); err != nil {
		return pkgerrors.Validation(op, name, err, "collection name")
	}
	schema = schema.WithDefaults()
	if err := schema.Validate(); err != nil {
		return pkgerrors.Validation(op, name, err, "schema")
	}
	ctx, release, err := m.h.begin(ctx, op, name)
	if err != nil {
		return err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, name)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	unlock, err := m.h.lockCollection(ctx, op, name, true)
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	exists, err := m.h.engine.Exists(ctx, name)
	if err == nil && exists {
		err = pkgerrors.AlreadyExists(op, name)
	}
	if err == nil {
		err = m.h.engine.Create(ctx, name, schema)
	}
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.KindAlreadyExists {
			err = pkgerrors.AlreadyExists(op, name)
		}
		err = classify(op, name, err)
		report(op, name, err)
		return err
	}

	m.h.schemas.Set(name, schema)
	logger.Info("collection created",
		"collection", name,
		"dimension", schema.Dimension,
		"duration", time.Since(start))
	return nil
}

// Drop deletes the collection with all its data and indexes.
func (m *Manager) Drop(ctx context.Context, name string) (err error) {
	const op = "drop"
	if err := engine.ValidateName(name); err != nil {
		return pkgerrors.Validation(op, name, err, "collection name")
	}
	ctx, release, err := m.h.begin(ctx, op, name)
	if err != nil {
		return err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, name)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	unlock, err := m.h.lockCollection(ctx, op, name, true)
	if err != nil {
		return err
	}
	defer unlock()
	// stale whatever the outcome
	defer m.h.schemas.Delete(name)

	exists, err := m.h.engine.Exists(ctx, name)
	if err == nil && !exists {
		err = pkgerrors.NotFound(op, name, nil, "collection does not exist")
	}
	if err == nil {
		err = m.h.engine.Drop(ctx, name)
	}
	if err != nil {
		err = classify(op, name, err)
		report(op, name, err)
		return err
	}
	logger.Info("collection dropped", "collection", name)
	return nil
}

// Describe returns the schema of name, from the local cache when possible.
func (m *Manager) Describe(ctx context.Context, name string) (schema engine.Schema, err error) {
	const op = "describe"
	if err := engine.ValidateName(name); err != nil {
		return engine.Schema{}, pkgerrors.Validation(op, name, err, "collection name")
	}
	ctx, release, err := m.h.begin(ctx, op, name)
	if err != nil {
		return engine.Schema{}, err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, name)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	unlock, err := m.h.lockCollection(ctx, op, name, false)
	if err != nil {
		return engine.Schema{}, err
	}
	defer unlock()

	schema, err = m.h.schemaOf(ctx, op, name)
	if err != nil {
		report(op, name, err)
	}
	return schema, err
}

// List returns the collection names in the active database.
func (m *Manager) List(ctx context.Context) (names []string, err error) {
	const op = "list"
	ctx, release, err := m.h.begin(ctx, op, "")
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := observability.StartOpSpan(ctx, op, "")
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	names, err = m.h.engine.List(ctx)
	if err != nil {
		err = classify(op, "", err)
		report(op, "", err)
		return nil, err
	}
	observability.RecordCount(span, len(names))
	return names, nil
}

// schemaOf resolves the schema of name, falling back to the engine. The
// caller holds the collection lock.
func (h *Handle) schemaOf(ctx context.Context, op, name string) (engine.Schema, error) {
	if s, ok := h.schemas.Get(name); ok {
		return s, nil
	}
	s, err := h.engine.Describe(ctx, name)
	if err != nil {
		return engine.Schema{}, classify(op, name, err)
	}
	h.schemas.Set(name, s)
	return s, nil
}
