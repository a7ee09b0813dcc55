package oasis

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"vectorhub/internal/engine"
	pkgerrors "vectorhub/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEngine(t *testing.T) (*Engine, *fakeServer) {
	t.Helper()
	srv, ts := newFakeServer(t)
	e := New(5 * time.Second)
	require.NoError(t, e.OpenClient(context.Background(), NewClient(ts.URL, 5*time.Second)))
	t.Cleanup(func() { _ = e.Close() })
	return e, srv
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	e, _ := openEngine(t)
	schema, _ := engine.NewSchema(4)
	schema.PrimaryField = "doc_id"

	ok, err := e.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.Create(ctx, "docs", schema))
	assert.ErrorIs(t, e.Create(ctx, "docs", schema), pkgerrors.ErrCollectionExists)

	ok, err = e.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := e.Describe(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, schema, got)

	names, err := e.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)

	require.NoError(t, e.Drop(ctx, "docs"))
	assert.ErrorIs(t, e.Drop(ctx, "docs"), pkgerrors.ErrCollectionNotFound)
}

func TestInsertSearch(t *testing.T) {
	ctx := context.Background()
	e, srv := openEngine(t)
	schema, _ := engine.NewSchema(4)
	require.NoError(t, e.Create(ctx, "docs", schema))

	n, err := e.Insert(ctx, "docs", schema, []engine.Record{
		{ID: 1, Vector: []float32{0, 0, 0, 0}},
		{ID: 2, Vector: []float32{1, 1, 1, 1}, Attributes: map[string]any{"title": "ones"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, srv.upsertCalls())

	require.NoError(t, e.BuildIndex(ctx, "docs", engine.NewIndexSpec("embedding", 0)))
	assert.ErrorIs(t, e.BuildIndex(ctx, "docs", engine.NewIndexSpec("title", 0)), pkgerrors.ErrCollectionNotFound)

	hits, err := e.Search(ctx, "docs", schema, []float32{0, 0, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []engine.Hit{{ID: 1, Distance: 0}}, hits)

	srv.setFailSearch(true)
	hits, err = e.Search(ctx, "docs", schema, []float32{0, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, pkgerrors.ErrConnection)
	assert.Nil(t, hits)
}

func TestUpsertCount(t *testing.T) {
	ctx := context.Background()
	e, srv := openEngine(t)
	schema, _ := engine.NewSchema(2)
	require.NoError(t, e.Create(ctx, "docs", schema))
	records := []engine.Record{{ID: 1, Vector: []float32{0, 0}}, {ID: 2, Vector: []float32{1, 1}}}

	// a server that reports a count is taken at its word
	srv.setUpsertBody(gin.H{"upserted": 1})
	n, err := e.Insert(ctx, "docs", schema, records)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// any other success body accepts the whole batch
	srv.setUpsertBody(gin.H{"status": "ok"})
	n, err = e.Insert(ctx, "docs", schema, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSearchDocumentsAndDistances(t *testing.T) {
	ctx := context.Background()
	e, srv := openEngine(t)
	schema, _ := engine.NewSchema(2)
	require.NoError(t, e.Create(ctx, "docs", schema))

	srv.setSearchBody(gin.H{
		"documents": []gin.H{
			{"id": "7", "vector": []float32{0, 0}, "parameters": gin.H{"title": "a"}, "dimension": 2},
			{"id": "3", "vector": []float32{1, 1}, "parameters": nil, "dimension": 2},
		},
		"distances": []float32{0.5, 2},
	})
	hits, err := e.Search(ctx, "docs", schema, []float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []engine.Hit{{ID: 7, Distance: 0.5}, {ID: 3, Distance: 2}}, hits)

	srv.setSearchBody(gin.H{"documents": nil, "distances": nil})
	hits, err = e.Search(ctx, "docs", schema, []float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchMalformedResponse(t *testing.T) {
	ctx := context.Background()
	e, srv := openEngine(t)
	schema, _ := engine.NewSchema(2)
	require.NoError(t, e.Create(ctx, "docs", schema))

	bodies := map[string]any{
		"results array":   gin.H{"results": []gin.H{{"id": "1", "distance": 0}}},
		"no distances":    gin.H{"documents": []gin.H{{"id": "1"}}},
		"length mismatch": gin.H{"documents": []gin.H{{"id": "1"}}, "distances": []float32{}},
		"wrong types":     gin.H{"documents": "1", "distances": []float32{0}},
		"not an object":   []int{1, 2},
		"non-numeric ids": gin.H{"documents": []gin.H{{"id": "abc"}}, "distances": []float32{0}},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv.setSearchBody(body)
			hits, err := e.Search(ctx, "docs", schema, []float32{0, 0}, 1)
			assert.ErrorIs(t, err, pkgerrors.ErrRemoteRejected)
			assert.False(t, pkgerrors.Retryable(err))
			assert.Nil(t, hits)
		})
	}
}

func TestInsertRejected(t *testing.T) {
	ctx := context.Background()
	e, _ := openEngine(t)
	schema, _ := engine.NewSchema(4)
	require.NoError(t, e.Create(ctx, "docs", schema))

	// the server checks dimension too
	_, err := e.Insert(ctx, "docs", schema, []engine.Record{{ID: 1, Vector: []float32{0, 0}}})
	assert.ErrorIs(t, err, pkgerrors.ErrRemoteRejected)

	_, err = e.Insert(ctx, "absent", schema, []engine.Record{{ID: 1, Vector: []float32{0, 0, 0, 0}}})
	assert.ErrorIs(t, err, pkgerrors.ErrCollectionNotFound)
}

func TestOpenUnreachable(t *testing.T) {
	e := New(time.Second)
	err := e.Open(context.Background(), engine.ConnectParams{Host: "127.0.0.1", Port: 1})
	assert.ErrorIs(t, err, pkgerrors.ErrConnection)

	_, err = e.List(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrHandleClosed)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, pkgerrors.ErrCollectionNotFound},
		{http.StatusConflict, pkgerrors.ErrCollectionExists},
		{http.StatusUnauthorized, pkgerrors.ErrConnection},
		{http.StatusServiceUnavailable, pkgerrors.ErrConnection},
		{http.StatusBadRequest, pkgerrors.ErrRemoteRejected},
	}
	for _, tt := range tests {
		err := classify("op", "docs", &APIError{StatusCode: tt.status, Message: "x"})
		assert.ErrorIs(t, err, tt.want, http.StatusText(tt.status))
	}

	err := classify("search", "docs", fmt.Errorf("%w: truncated", ErrMalformedResponse))
	assert.ErrorIs(t, err, pkgerrors.ErrRemoteRejected)
}
