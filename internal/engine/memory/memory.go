// Package memory is an in-process engine binding backed by internal/index.
// It follows Milvus semantics where they matter to callers: searching a
// collection without an index is rejected, and distances are squared L2.
//
// With Options.Dir set every mutation is appended to a write-ahead journal
// before it is applied, and Open replays the journal, so collections
// survive restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"vectorhub/internal/engine"
	"vectorhub/internal/index"
	"vectorhub/internal/wal"
	pkgerrors "vectorhub/pkg/errors"
)

const Name = "memory"

type collection struct {
	schema engine.Schema
	attrs  map[int64]map[string]any
	flat   *index.FlatIndex
	// ivf is nil until BuildIndex; it is trained lazily when the index was
	// requested on an empty collection.
	ivf     index.VectorIndex
	indexed bool
	nlist   int
	// trainedOn is the number of vectors the centroids were trained over
	trainedOn int
}

type Options struct {
	// NProbe is the number of lists scanned per query; zero scans all lists
	NProbe int
	// Dir holds the journal; empty keeps data in process only
	Dir string
	// Sync fsyncs the journal after every mutation
	Sync bool
}

// Engine keeps collections in process memory.
type Engine struct {
	mu          sync.RWMutex
	open        bool
	opts        Options
	collections map[string]*collection
	journal     *wal.Writer
}

var _ engine.Engine = (*Engine)(nil)

func New(opts Options) *Engine {
	return &Engine{
		opts:        opts,
		collections: make(map[string]*collection),
	}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Open(ctx context.Context, _ engine.ConnectParams) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Connection("open", "", err, "memory engine")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open {
		return nil
	}
	if e.opts.Dir != "" {
		if err := e.replayLocked(e.opts.Dir); err != nil {
			return pkgerrors.Connection("open", "", err, "replay journal in %s", e.opts.Dir)
		}
	}
	e.open = true
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = false
	if e.journal == nil {
		return nil
	}
	err := e.journal.Close()
	e.journal = nil
	return err
}

// checkLocked verifies the session and context; caller holds mu.
func (e *Engine) checkLocked(ctx context.Context, op, name string) error {
	if !e.open {
		return pkgerrors.Connection(op, name, pkgerrors.ErrHandleClosed, "memory engine is not open")
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.Connection(op, name, err, "request aborted")
	}
	return nil
}

func (e *Engine) Exists(ctx context.Context, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkLocked(ctx, "exists", name); err != nil {
		return false, err
	}
	_, ok := e.collections[name]
	return ok, nil
}

func (e *Engine) Create(ctx context.Context, name string, schema engine.Schema) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(ctx, "create", name); err != nil {
		return err
	}
	if _, ok := e.collections[name]; ok {
		return pkgerrors.AlreadyExists("create", name)
	}
	c, err := newCollection(schema)
	if err != nil {
		return pkgerrors.Rejected("create", name, err, "build storage")
	}
	if err := e.record(opCreate, journalEntry{Collection: name, Schema: &schema}); err != nil {
		return pkgerrors.Connection("create", name, err, "write journal")
	}
	e.collections[name] = c
	return nil
}

func newCollection(schema engine.Schema) (*collection, error) {
	flat, err := index.New(&index.IndexConfig{
		SpaceType: index.L2Space,
		IndexType: index.FLATIndex,
		Dimension: schema.Dimension,
	})
	if err != nil {
		return nil, err
	}
	return &collection{
		schema: schema,
		attrs:  make(map[int64]map[string]any),
		flat:   flat.(*index.FlatIndex),
	}, nil
}

func (e *Engine) Drop(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(ctx, "drop", name); err != nil {
		return err
	}
	if _, ok := e.collections[name]; !ok {
		return pkgerrors.NotFound("drop", name, nil, "collection does not exist")
	}
	if err := e.record(opDrop, journalEntry{Collection: name}); err != nil {
		return pkgerrors.Connection("drop", name, err, "write journal")
	}
	delete(e.collections, name)
	return nil
}

func (e *Engine) Describe(ctx context.Context, name string) (engine.Schema, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkLocked(ctx, "describe", name); err != nil {
		return engine.Schema{}, err
	}
	c, ok := e.collections[name]
	if !ok {
		return engine.Schema{}, pkgerrors.NotFound("describe", name, nil, "collection does not exist")
	}
	return c.schema, nil
}

func (e *Engine) List(ctx context.Context) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkLocked(ctx, "list", ""); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(e.collections))
	for name := range e.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// BuildIndex (re)builds the IVF index over the current vectors. Requesting
// the same nlist again is a no-op unless vectors were added since the
// centroids were trained, in which case they are trained again.
func (e *Engine) BuildIndex(ctx context.Context, name string, spec engine.IndexSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(ctx, "build_index", name); err != nil {
		return err
	}
	c, ok := e.collections[name]
	if !ok {
		return pkgerrors.NotFound("build_index", name, nil, "collection does not exist")
	}
	if spec.Field != c.schema.VectorField {
		return pkgerrors.NotFound("build_index", name, pkgerrors.ErrFieldNotFound, "field %q", spec.Field)
	}
	if c.indexed && c.nlist == spec.NList && c.flat.Len() == c.trainedOn {
		return nil
	}
	if spec.NList < 1 {
		return pkgerrors.Rejected("build_index", name, pkgerrors.ErrInvalidSchema, "nlist %d", spec.NList)
	}
	if err := e.record(opIndex, journalEntry{Collection: name, Index: &spec}); err != nil {
		return pkgerrors.Connection("build_index", name, err, "write journal")
	}
	if err := c.buildIndex(spec, e.opts.NProbe); err != nil {
		return pkgerrors.Rejected("build_index", name, err, "train index")
	}
	return nil
}

func (c *collection) buildIndex(spec engine.IndexSpec, nprobe int) error {
	if nprobe <= 0 {
		nprobe = spec.NList
	}
	ivf, err := index.New(&index.IndexConfig{
		SpaceType: index.L2Space,
		IndexType: index.IVFFLATIndex,
		Dimension: c.schema.Dimension,
		NList:     spec.NList,
		NProbe:    nprobe,
	})
	if err != nil {
		return err
	}
	c.ivf, c.indexed, c.nlist, c.trainedOn = ivf, true, spec.NList, 0
	if c.flat.Len() > 0 {
		return c.trainLocked()
	}
	return nil
}

func (c *collection) trainLocked() error {
	ids := append([]int64(nil), c.flat.Ids...)
	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i], _ = c.flat.Vector(id)
	}
	if err := c.ivf.Build(ids, vectors); err != nil {
		return err
	}
	c.trainedOn = len(ids)
	return nil
}

func (e *Engine) Insert(ctx context.Context, name string, schema engine.Schema, records []engine.Record) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked(ctx, "insert", name); err != nil {
		return 0, err
	}
	c, ok := e.collections[name]
	if !ok {
		return 0, pkgerrors.NotFound("insert", name, nil, "collection does not exist")
	}

	for i, r := range records {
		if len(r.Vector) != c.schema.Dimension {
			return 0, pkgerrors.Rejected("insert", name, pkgerrors.ErrInvalidDimension, "record %d has %d components", i, len(r.Vector))
		}
	}
	if err := e.record(opInsert, journalEntry{Collection: name, Records: records}); err != nil {
		return 0, pkgerrors.Connection("insert", name, err, "write journal")
	}
	if err := c.insert(records); err != nil {
		return 0, pkgerrors.Rejected("insert", name, err, "batch refused")
	}
	return len(records), nil
}

func (c *collection) insert(records []engine.Record) error {
	ids := make([]int64, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		ids[i], vectors[i] = r.ID, r.Vector
	}
	if err := c.flat.AddBatch(ids, vectors); err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Attributes) == 0 {
			delete(c.attrs, r.ID)
			continue
		}
		attrs := make(map[string]any, len(r.Attributes))
		for k, v := range r.Attributes {
			attrs[k] = v
		}
		c.attrs[r.ID] = attrs
	}

	if !c.indexed {
		return nil
	}
	if c.ivf.Len() == 0 {
		return c.trainLocked()
	}
	return c.ivf.AddBatch(ids, vectors)
}

func (e *Engine) Search(ctx context.Context, name string, schema engine.Schema, query []float32, topK int) ([]engine.Hit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkLocked(ctx, "search", name); err != nil {
		return nil, err
	}
	c, ok := e.collections[name]
	if !ok {
		return nil, pkgerrors.NotFound("search", name, nil, "collection does not exist")
	}
	if !c.indexed {
		return nil, pkgerrors.Rejected("search", name, pkgerrors.ErrNotIndexed, "build an index before searching")
	}
	if c.flat.Len() == 0 {
		return []engine.Hit{}, nil
	}

	res, err := c.ivf.Search(query, topK)
	if err != nil {
		return nil, pkgerrors.Rejected("search", name, err, "query refused")
	}
	hits := make([]engine.Hit, len(res.IDs))
	for i := range res.IDs {
		hits[i] = engine.Hit{ID: res.IDs[i], Distance: res.Distances[i]}
	}
	return hits, nil
}

// Attributes returns a copy of the attributes stored with id.
func (e *Engine) Attributes(name string, id int64) (map[string]any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.collections[name]
	if !ok {
		return nil, false
	}
	attrs, ok := c.attrs[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out, true
}
