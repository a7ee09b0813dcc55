// Package milvus binds the engine capability to a Milvus server through
// the official Go SDK.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"vectorhub/internal/engine"
	pkgerrors "vectorhub/pkg/errors"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const Name = "milvus"

// dynamicField is the reserved column Milvus uses for dynamic attributes
const dynamicField = "$meta"

// Options tunes search behavior.
type Options struct {
	// NProbe is the number of IVF lists scanned per query
	NProbe int
}

// Engine implements engine.Engine on top of client.Client.
type Engine struct {
	opts Options

	mu     sync.RWMutex
	client client.Client
}

var _ engine.Engine = (*Engine)(nil)

func New(opts Options) *Engine {
	if opts.NProbe <= 0 {
		opts.NProbe = 16
	}
	return &Engine{opts: opts}
}

// NewWithClient wraps an already connected client.
func NewWithClient(c client.Client, opts Options) *Engine {
	e := New(opts)
	e.client = c
	return e
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Open(ctx context.Context, params engine.ConnectParams) error {
	cfg := client.Config{
		Address: fmt.Sprintf("%s:%d", params.Host, params.Port),
		DBName:  params.Database,
	}
	if params.Username != "" {
		cfg.Username = params.Username
		cfg.Password = params.Password
	}
	if params.TLS {
		cfg.EnableTLSAuth = true
	}

	c, err := client.NewClient(ctx, cfg)
	if err != nil {
		return pkgerrors.Connection("open", "", err, "connect to milvus at %s", cfg.Address)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = c
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

func (e *Engine) session(op, collection string) (client.Client, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.client == nil {
		return nil, pkgerrors.Connection(op, collection, pkgerrors.ErrHandleClosed, "milvus session is not open")
	}
	return e.client, nil
}

func (e *Engine) Exists(ctx context.Context, collection string) (bool, error) {
	c, err := e.session("exists", collection)
	if err != nil {
		return false, err
	}
	ok, err := c.HasCollection(ctx, collection)
	if err != nil {
		return false, classify("exists", collection, err)
	}
	return ok, nil
}

func (e *Engine) Create(ctx context.Context, collection string, schema engine.Schema) error {
	c, err := e.session("create", collection)
	if err != nil {
		return err
	}
	err = c.CreateCollection(ctx, toEntitySchema(collection, schema), entity.DefaultShardNumber)
	if err != nil {
		return classify("create", collection, err)
	}
	return nil
}

func toEntitySchema(collection string, schema engine.Schema) *entity.Schema {
	return &entity.Schema{
		CollectionName:     collection,
		Description:        schema.Description,
		AutoID:             false,
		EnableDynamicField: true,
		Fields: []*entity.Field{
			{
				Name:       schema.PrimaryField,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     schema.VectorField,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					entity.TypeParamDim: strconv.Itoa(schema.Dimension),
				},
			},
		},
	}
}

func (e *Engine) Drop(ctx context.Context, collection string) error {
	c, err := e.session("drop", collection)
	if err != nil {
		return err
	}
	if err := c.DropCollection(ctx, collection); err != nil {
		return classify("drop", collection, err)
	}
	return nil
}

func (e *Engine) Describe(ctx context.Context, collection string) (engine.Schema, error) {
	c, err := e.session("describe", collection)
	if err != nil {
		return engine.Schema{}, err
	}
	coll, err := c.DescribeCollection(ctx, collection)
	if err != nil {
		return engine.Schema{}, classify("describe", collection, err)
	}
	return fromEntitySchema(collection, coll.Schema)
}

// fromEntitySchema maps a Milvus schema back, rejecting layouts the core
// cannot serve.
func fromEntitySchema(collection string, s *entity.Schema) (engine.Schema, error) {
	if s == nil {
		return engine.Schema{}, pkgerrors.Rejected("describe", collection, pkgerrors.ErrInvalidSchema, "empty schema")
	}
	out := engine.Schema{Description: s.Description}
	for _, f := range s.Fields {
		switch {
		case f.PrimaryKey && f.DataType == entity.FieldTypeInt64:
			out.PrimaryField = f.Name
		case f.DataType == entity.FieldTypeFloatVector:
			if out.VectorField != "" {
				return engine.Schema{}, pkgerrors.Rejected("describe", collection, pkgerrors.ErrInvalidSchema, "more than one vector field")
			}
			dim, err := strconv.Atoi(f.TypeParams[entity.TypeParamDim])
			if err != nil {
				return engine.Schema{}, pkgerrors.Rejected("describe", collection, pkgerrors.ErrInvalidSchema, "vector field %q has no dimension", f.Name)
			}
			out.VectorField, out.Dimension = f.Name, dim
		}
	}
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
	names := make([]string, 0, len(colls))
	for _, coll := range colls {
		names = append(names, coll.Name)
	}
	return names, nil
}

// BuildIndex creates the IVF_FLAT index and loads the collection so it can
// be searched.
func (e *Engine) BuildIndex(ctx context.Context, collection string, spec engine.IndexSpec) error {
	c, err := e.session("build_index", collection)
	if err != nil {
		return err
	}
	idx, err := entity.NewIndexIvfFlat(entity.L2, spec.NList)
	if err != nil {
		return pkgerrors.Validation("build_index", collection, pkgerrors.ErrInvalidSchema, "index params: %v", err)
	}
	if err := c.CreateIndex(ctx, collection, spec.Field, idx, false); err != nil && !indexExists(err) {
		return classify("build_index", collection, err)
	}
	if err := c.LoadCollection(ctx, collection, false); err != nil {
		return classify("load", collection, err)
	}
	return nil
}

func (e *Engine) Insert(ctx context.Context, collection string, schema engine.Schema, records []engine.Record) (int, error) {
	c, err := e.session("insert", collection)
	if err != nil {
		return 0, err
	}
	cols, err := toColumns(schema, records)
	if err != nil {
		return 0, pkgerrors.Validation("insert", collection, err, "encode attributes")
	}
	ids, err := c.Insert(ctx, collection, "", cols...)
	if err != nil {
		return 0, classify("insert", collection, err)
	}
	if ids == nil {
		return 0, nil
	}
	return ids.Len(), nil
}

// toColumns builds the column-oriented payload. Attributes travel in the
// dynamic field when any record carries them.
func toColumns(schema engine.Schema, records []engine.Record) ([]entity.Column, error) {
	ids := make([]int64, len(records))
	vectors := make([][]float32, len(records))
	withAttrs := false
	for i, r := range records {
		ids[i] = r.ID
		vectors[i] = r.Vector
		if len(r.Attributes) > 0 {
			withAttrs = true
		}
	}
	cols := []entity.Column{
		entity.NewColumnInt64(schema.PrimaryField, ids),
		entity.NewColumnFloatVector(schema.VectorField, schema.Dimension, vectors),
	}
	if !withAttrs {
		return cols, nil
	}

	meta := make([][]byte, len(records))
	for i, r := range records {
		attrs := r.Attributes
		if attrs == nil {
			attrs = map[string]any{}
		}
		b, err := json.Marshal(attrs)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, err)
		}
		meta[i] = b
	}
	return append(cols, entity.NewColumnJSONBytes(dynamicField, meta).WithIsDynamic(true)), nil
}

func (e *Engine) Search(ctx context.Context, collection string, schema engine.Schema, query []float32, topK int) ([]engine.Hit, error) {
	c, err := e.session("search", collection)
	if err != nil {
		return nil, err
	}
	sp, err := entity.NewIndexIvfFlatSearchParam(e.opts.NProbe)
	if err != nil {
		return nil, pkgerrors.Validation("search", collection, pkgerrors.ErrInvalidConfig, "nprobe: %v", err)
	}

	results, err := c.Search(
		ctx,
		collection,
		nil,
		"",
		[]string{schema.PrimaryField},
		[]entity.Vector{entity.FloatVector(query)},
		schema.VectorField,
		entity.L2,
		topK,
		sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, classify("search", collection, err)
	}
	if len(results) == 0 {
		return []engine.Hit{}, nil
	}
	return toHits(collection, results[0])
}

func toHits(collection string, res client.SearchResult) ([]engine.Hit, error) {
	if res.Err != nil {
		return nil, classify("search", collection, res.Err)
	}
	if res.ResultCount == 0 {
		return []engine.Hit{}, nil
	}
	idCol, ok := res.IDs.(*entity.ColumnInt64)
	if !ok {
		return nil, pkgerrors.Rejected("search", collection, nil, "unexpected id column type %T", res.IDs)
	}
	ids := idCol.Data()
	if len(ids) < res.ResultCount || len(res.Scores) < res.ResultCount {
		return nil, pkgerrors.Rejected("search", collection, nil, "truncated result set")
	}
	hits := make([]engine.Hit, res.ResultCount)
	for i := range hits {
		hits[i] = engine.Hit{ID: ids[i], Distance: res.Scores[i]}
	}
	return hits, nil
}
