package vector

import (
	"context"
	"testing"

	"vectorhub/internal/engine"
	pkgerrors "vectorhub/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	schema, err := engine.NewSchema(4)
	require.NoError(t, err)

	require.NoError(t, f.manager.Create(ctx, "docs", schema))
	err = f.manager.Create(ctx, "docs", schema)
	assert.ErrorIs(t, err, pkgerrors.ErrCollectionExists)
	assert.True(t, pkgerrors.Expected(err))

	names, err := f.manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)
}

func TestCreateAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.manager.Create(ctx, "docs", engine.Schema{Dimension: 8}))
	schema, err := f.manager.Describe(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultPrimaryField, schema.PrimaryField)
	assert.Equal(t, engine.DefaultVectorField, schema.VectorField)
	assert.Equal(t, 8, schema.Dimension)
	// served from the cache populated by Create
	assert.Zero(t, f.spy.Calls("describe"))
}

func TestCreateInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.manager.Create(ctx, "my-docs", engine.Schema{Dimension: 4})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidName)

	err = f.manager.Create(ctx, "docs", engine.Schema{Dimension: 0})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)

	ok, err := f.manager.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDropNeverCreated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.manager.Drop(ctx, "ghost")
	assert.ErrorIs(t, err, pkgerrors.ErrCollectionNotFound)
	assert.True(t, pkgerrors.Expected(err))
}

func TestLifecycleStateMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.manager.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)

	f.createDocs(t, 4)
	ok, err = f.manager.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.builder.BuildIndex(ctx, "docs", "embedding"))
	require.NoError(t, f.manager.Drop(ctx, "docs"))

	ok, err = f.manager.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.manager.Describe(ctx, "docs")
	assert.ErrorIs(t, err, pkgerrors.ErrCollectionNotFound)

	// recreate with another dimension; the dropped schema must not linger
	schema, _ := engine.NewSchema(2)
	require.NoError(t, f.manager.Create(ctx, "docs", schema))
	got, err := f.manager.Describe(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Dimension)
}

func TestDescribeFallsBackToEngine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	schema, _ := engine.NewSchema(3)
	// created behind the handle's back, as another process would
	require.NoError(t, f.spy.Engine.Create(ctx, "external", schema))

	got, err := f.manager.Describe(ctx, "external")
	require.NoError(t, err)
	assert.Equal(t, schema, got)
	assert.Equal(t, 1, f.spy.Calls("describe"))

	_, err = f.manager.Describe(ctx, "external")
	require.NoError(t, err)
	assert.Equal(t, 1, f.spy.Calls("describe"))
}

func TestConcurrentCreateSameName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	schema, _ := engine.NewSchema(4)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() { errs <- f.manager.Create(ctx, "docs", schema) }()
	}

	created, exists := 0, 0
	for i := 0; i < 8; i++ {
		err := <-errs
		switch {
		case err == nil:
			created++
		case pkgerrors.KindOf(err) == pkgerrors.KindAlreadyExists:
			exists++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 7, exists)
}
