// Package engine defines the narrow capability vectorhub needs from a remote
// similarity-search engine. Bindings for concrete engines live in the
// subpackages and translate their native failures into pkg/errors kinds.
package engine

import "context"

// ConnectParams carries what a binding needs to reach its engine.
type ConnectParams struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	TLS      bool
}

// Record is one (primary key, vector, attributes) row of an insert batch.
type Record struct {
	ID         int64
	Vector     []float32
	Attributes map[string]any
}

// Hit is one search candidate. Lower Distance means closer.
type Hit struct {
	ID       int64
	Distance float32
}

// Engine is implemented by every engine binding.
//
// Implementations must be safe for concurrent use once Open has returned.
// Errors should already be classified with pkg/errors; unclassified errors
// are treated as connection failures by the caller.
type Engine interface {
	// Open establishes the session reused by every other call.
	Open(ctx context.Context, params ConnectParams) error

	// Close releases the session. Calling it twice is not an error.
	Close() error

	// Name identifies the binding in logs and traces.
	Name() string

	Exists(ctx context.Context, collection string) (bool, error)

	Create(ctx context.Context, collection string, schema Schema) error

	Drop(ctx context.Context, collection string) error

	// Describe returns the schema of an existing collection.
	Describe(ctx context.Context, collection string) (Schema, error)

	List(ctx context.Context) ([]string, error)

	BuildIndex(ctx context.Context, collection string, spec IndexSpec) error

	// Insert transmits the batch and returns the count the engine acknowledged.
	Insert(ctx context.Context, collection string, schema Schema, records []Record) (int, error)

	Search(ctx context.Context, collection string, schema Schema, query []float32, topK int) ([]Hit, error)
}
