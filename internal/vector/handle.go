// Package vector manages named vector collections on a remote similarity
// search engine: lifecycle, index builds, batch inserts and top-K search.
//
// Every operation goes through a *Handle opened once at startup and closed
// once at shutdown. Writes to the same collection are serialized; reads and
// operations on different collections run concurrently.
package vector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vectorhub/internal/cache"
	"vectorhub/internal/config"
	"vectorhub/internal/engine"
	"vectorhub/internal/engine/memory"
	"vectorhub/internal/engine/milvus"
	"vectorhub/internal/engine/oasis"
	"vectorhub/internal/engine/qdrant"
	pkgerrors "vectorhub/pkg/errors"
	"vectorhub/pkg/logger"
)

// Handle is the live session to one engine.
type Handle struct {
	engine engine.Engine
	cfg    config.Config

	// mu guards closed and orders inflight.Add against inflight.Wait
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	// root is cancelled when Close gives up waiting for in-flight calls
	root       context.Context
	cancelRoot context.CancelFunc

	locks   *collectionLocks
	schemas *cache.LRUCache[engine.Schema]
}

// NewEngine returns the binding selected by cfg.Backend.
func NewEngine(cfg config.EngineConfig) (engine.Engine, error) {
	switch cfg.Backend {
	case config.BackendMilvus:
		return milvus.New(milvus.Options{NProbe: cfg.NProbe}), nil
	case config.BackendQdrant:
		return qdrant.New(), nil
	case config.BackendOasis:
		return oasis.New(cfg.DialTimeout), nil
	case config.BackendMemory:
		return memory.New(memory.Options{NProbe: cfg.NProbe, Dir: cfg.DataDir}), nil
	}
	return nil, pkgerrors.Validation("open", "", pkgerrors.ErrInvalidConfig, "unknown backend %q", cfg.Backend)
}

// OpenBackend opens a handle on the binding named in the config.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Handle, error) {
	if cfg == nil {
		return nil, pkgerrors.Validation("open", "", pkgerrors.ErrInvalidConfig, "nil config")
	}
	eng, err := NewEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, eng)
}

// Open validates cfg and connects eng. It never retries; wrap it in Retry
// when the engine may still be starting.
func Open(ctx context.Context, cfg *config.Config, eng engine.Engine) (*Handle, error) {
	if cfg == nil {
		return nil, pkgerrors.Validation("open", "", pkgerrors.ErrInvalidConfig, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, pkgerrors.Validation("open", "", err, "invalid config")
	}

	dialCtx := ctx
	if cfg.Engine.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.Engine.DialTimeout)
		defer cancel()
	}

	start := time.Now()
	err := eng.Open(dialCtx, engine.ConnectParams{
		Host:     cfg.Engine.Host,
		Port:     cfg.Engine.Port,
		Username: cfg.Engine.Username,
		Password: cfg.Engine.Password,
		Database: cfg.Engine.Database,
		TLS:      cfg.Engine.TLS,
	})
	if err != nil {
		err = classify("open", "", err)
		logger.Error("failed to connect to vector engine",
			"backend", eng.Name(),
			"address", cfg.Engine.Address(),
			"error", err)
		return nil, err
	}

	root, cancel := context.WithCancel(context.Background())
	h := &Handle{
		engine:     eng,
		cfg:        *cfg,
		root:       root,
		cancelRoot: cancel,
		locks:      newCollectionLocks(),
		schemas:    cache.NewLRUCache[engine.Schema](cfg.Engine.SchemaCacheSize),
	}
	logger.Info("connected to vector engine",
		"backend", eng.Name(),
		"address", cfg.Engine.Address(),
		"database", cfg.Engine.Database,
		"duration", time.Since(start))
	return h, nil
}

// Engine returns the binding behind h.
func (h *Handle) Engine() engine.Engine {
	return h.engine
}

// Config returns a copy of the config h was opened with.
func (h *Handle) Config() config.Config {
	return h.cfg
}

// begin registers an in-flight operation. The returned context is cancelled
// when either ctx or the handle's root context is done; release must be
// called exactly once.
func (h *Handle) begin(ctx context.Context, op, collection string) (context.Context, func(), error) {
	if h == nil {
		return nil, nil, pkgerrors.Connection(op, collection, pkgerrors.ErrHandleClosed, "no open handle")
	}
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return nil, nil, pkgerrors.Connection(op, collection, pkgerrors.ErrHandleClosed, "handle is closed")
	}
	h.inflight.Add(1)
	h.mu.RUnlock()

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(h.root, cancel)
	release := func() {
		stop()
		cancel()
		h.inflight.Done()
	}
	return opCtx, release, nil
}

// Close marks h closed, waits for in-flight operations and releases the
// engine session. If ctx ends first the remaining operations are cancelled
// and Close still waits for them to return. Closing a nil or closed handle
// is a no-op.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("close deadline reached, cancelling in-flight operations",
			"backend", h.engine.Name())
		h.cancelRoot()
		<-done
	}
	h.cancelRoot()

	if err := h.engine.Close(); err != nil {
		logger.Warn("engine close failed", "backend", h.engine.Name(), "error", err)
		return pkgerrors.Connection("close", "", err, "release engine session")
	}
	logger.Info("vector engine connection closed", "backend", h.engine.Name())
	return nil
}

// classify gives every error leaving the core a kind. Unclassified engine
// errors become connection errors.
func classify(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.KindOf(err) != pkgerrors.KindUnknown {
		return err
	}
	return pkgerrors.Connection(op, collection, err, "engine call failed")
}

// report logs err at the level its kind deserves.
func report(op, collection string, err error) {
	switch {
	case pkgerrors.Expected(err):
		logger.Info(fmt.Sprintf("%s: %s", op, pkgerrors.KindOf(err)), "collection", collection)
	case pkgerrors.KindOf(err) == pkgerrors.KindValidation:
		logger.Debug("rejected invalid request", "op", op, "collection", collection, "error", err)
	default:
		logger.Error("vector operation failed", "op", op, "collection", collection, "error", err)
	}
}
