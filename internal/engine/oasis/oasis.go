// Package oasis binds the engine capability to an OasisDB server over its
// JSON HTTP API.
package oasis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"vectorhub/internal/engine"
	pkgerrors "vectorhub/pkg/errors"
)

const Name = "oasis"

// Parameter keys persisted with a collection so Describe can restore the
// field names.
const (
	paramPrimaryField = "primary_field"
	paramVectorField  = "vector_field"
	paramDescription  = "description"
)

type Engine struct {
	timeout time.Duration

	mu     sync.RWMutex
	client *Client
}

var _ engine.Engine = (*Engine)(nil)

func New(timeout time.Duration) *Engine {
	return &Engine{timeout: timeout}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Open(ctx context.Context, params engine.ConnectParams) error {
	scheme := "http"
	if params.TLS {
		scheme = "https"
	}
	c := NewClient(fmt.Sprintf("%s://%s:%d", scheme, params.Host, params.Port), e.timeout)
	c.Username, c.Password = params.Username, params.Password
	return e.OpenClient(ctx, c)
}

// OpenClient attaches a preconfigured client after a health check.
func (e *Engine) OpenClient(ctx context.Context, c *Client) error {
	if err := c.HealthCheck(ctx); err != nil {
		return classify("open", "", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = c
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.HTTP.CloseIdleConnections()
		e.client = nil
	}
	return nil
}

func (e *Engine) session(op, collection string) (*Client, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.client == nil {
		return nil, pkgerrors.Connection(op, collection, pkgerrors.ErrHandleClosed, "oasisdb session is not open")
	}
	return e.client, nil
}

func (e *Engine) Exists(ctx context.Context, collection string) (bool, error) {
	c, err := e.session("exists", collection)
	if err != nil {
		return false, err
	}
	_, err = c.GetCollection(ctx, collection)
	if err == nil {
		return true, nil
	}
	if err = classify("exists", collection, err); pkgerrors.KindOf(err) == pkgerrors.KindNotFound {
		return false, nil
	}
	return false, err
}

func (e *Engine) Create(ctx context.Context, collection string, schema engine.Schema) error {
	c, err := e.session("create", collection)
	if err != nil {
		return err
	}
	params := map[string]string{
		paramPrimaryField: schema.PrimaryField,
		paramVectorField:  schema.VectorField,
	}
	if schema.Description != "" {
		params[paramDescription] = schema.Description
	}
	err = c.CreateCollection(ctx, CreateCollectionRequest{
		Name:       collection,
		Dimension:  uint32(schema.Dimension),
		IndexType:  string(engine.IndexIVFFlat),
		Parameters: params,
	})
	if err != nil {
		return classify("create", collection, err)
	}
	return nil
}

func (e *Engine) Drop(ctx context.Context, collection string) error {
	c, err := e.session("drop", collection)
	if err != nil {
		return err
	}
	if err := c.DeleteCollection(ctx, collection); err != nil {
		return classify("drop", collection, err)
	}
	return nil
}

func (e *Engine) Describe(ctx context.Context, collection string) (engine.Schema, error) {
	c, err := e.session("describe", collection)
	if err != nil {
		return engine.Schema{}, err
	}
	info, err := c.GetCollection(ctx, collection)
	if err != nil {
		return engine.Schema{}, classify("describe", collection, err)
	}
	out := engine.Schema{
		PrimaryField: info.Parameters[paramPrimaryField],
		VectorField:  info.Parameters[paramVectorField],
		Dimension:    int(info.Dimension),
		Description:  info.Parameters[paramDescription],
	}.WithDefaults()
	if err := out.Validate(); err != nil {
		return engine.Schema{}, pkgerrors.Rejected("describe", collection, err, "unsupported collection layout")
	}
	return out, nil
}

func (e *Engine) List(ctx context.Context) ([]string, error) {
	c, err := e.session("list", "")
	if err != nil {
		return nil, err
	}
	colls, err := c.ListCollections(ctx)
	if err != nil {
		return nil, classify("list", "", err)
	}
	names := make([]string, len(colls))
	for i, coll := range colls {
		names[i] = coll.Name
	}
	return names, nil
}

func (e *Engine) BuildIndex(ctx context.Context, collection string, spec engine.IndexSpec) error {
	c, err := e.session("build_index", collection)
	if err != nil {
		return err
	}
	err = c.BuildIndex(ctx, collection, BuildIndexRequest{
		Field:     spec.Field,
		IndexType: string(spec.Type),
		Metric:    string(spec.Metric),
		NList:     spec.NList,
	})
	if err != nil {
		return classify("build_index", collection, err)
	}
	return nil
}

func (e *Engine) Insert(ctx context.Context, collection string, schema engine.Schema, records []engine.Record) (int, error) {
	c, err := e.session("insert", collection)
	if err != nil {
		return 0, err
	}
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{
			ID:         strconv.FormatInt(r.ID, 10),
			Vector:     r.Vector,
			Parameters: r.Attributes,
			Dimension:  len(r.Vector),
		}
	}
	n, err := c.BatchUpsertDocuments(ctx, collection, docs)
	if err != nil {
		return 0, classify("insert", collection, err)
	}
	return n, nil
}

func (e *Engine) Search(ctx context.Context, collection string, schema engine.Schema, query []float32, topK int) ([]engine.Hit, error) {
	c, err := e.session("search", collection)
	if err != nil {
		return nil, err
	}
	results, err := c.SearchVectors(ctx, collection, query, topK)
	if err != nil {
		return nil, classify("search", collection, err)
	}
	hits := make([]engine.Hit, len(results))
	for i, r := range results {
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			return nil, pkgerrors.Rejected("search", collection, err, "non-numeric document id %q", r.ID)
		}
		hits[i] = engine.Hit{ID: id, Distance: r.Distance}
	}
	return hits, nil
}

// classify maps transport failures and HTTP statuses onto pkg/errors kinds.
func classify(op, collection string, err error) error {
	if errors.Is(err, ErrMalformedResponse) {
		return pkgerrors.Rejected(op, collection, err, "oasisdb answered with an unexpected body")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Connection(op, collection, err, "oasisdb unreachable")
	}
	switch {
	case apiErr.StatusCode == http.StatusNotFound:
		return pkgerrors.NotFound(op, collection, err, "oasisdb")
	case apiErr.StatusCode == http.StatusConflict:
		return pkgerrors.New(pkgerrors.KindAlreadyExists, op, collection, err, "oasisdb")
	case apiErr.StatusCode == http.StatusUnauthorized,
		apiErr.StatusCode == http.StatusForbidden,
		apiErr.StatusCode == http.StatusTooManyRequests,
		apiErr.StatusCode >= http.StatusInternalServerError:
		return pkgerrors.Connection(op, collection, err, "oasisdb unavailable")
	}
	return pkgerrors.Rejected(op, collection, err, "oasisdb refused the request")
}
