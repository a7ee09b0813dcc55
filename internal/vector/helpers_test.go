package vector

import (
	"context"
	"sync"
	"testing"

	"vectorhub/internal/config"
	"vectorhub/internal/engine"
	"vectorhub/internal/engine/memory"

	"github.com/stretchr/testify/require"
)

// spyEngine wraps the memory engine, counts calls and injects faults.
type spyEngine struct {
	*memory.Engine

	mu    sync.Mutex
	calls map[string]int

	openErr   error
	searchErr error
	// shortAck makes Insert acknowledge one record less than it stored
	shortAck bool
	// block, when set, parks Insert until it is closed or ctx ends
	block chan struct{}
	// entered is signalled when Insert starts
	entered chan struct{}
}

func newSpy() *spyEngine {
	return &spyEngine{
		Engine: memory.New(memory.Options{}),
		calls:  make(map[string]int),
	}
}

func (s *spyEngine) count(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *spyEngine) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *spyEngine) Open(ctx context.Context, params engine.ConnectParams) error {
	s.count("open")
	if s.openErr != nil {
		return s.openErr
	}
	return s.Engine.Open(ctx, params)
}

func (s *spyEngine) Close() error {
	s.count("close")
	return s.Engine.Close()
}

func (s *spyEngine) Describe(ctx context.Context, name string) (engine.Schema, error) {
	s.count("describe")
	return s.Engine.Describe(ctx, name)
}

func (s *spyEngine) Insert(ctx context.Context, name string, schema engine.Schema, records []engine.Record) (int, error) {
	s.count("insert")
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	n, err := s.Engine.Insert(ctx, name, schema, records)
	if err == nil && s.shortAck {
		n--
	}
	return n, err
}

func (s *spyEngine) Search(ctx context.Context, name string, schema engine.Schema, query []float32, topK int) ([]engine.Hit, error) {
	s.count("search")
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.Engine.Search(ctx, name, schema, query, topK)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Engine.Backend = config.BackendMemory
	cfg.Engine.NList = 4
	return cfg
}

type fixture struct {
	h        *Handle
	spy      *spyEngine
	manager  *Manager
	builder  *IndexBuilder
	writer   *Writer
	searcher *Searcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, testConfig(), newSpy())
}

func newFixtureWith(t *testing.T, cfg *config.Config, spy *spyEngine) *fixture {
	t.Helper()
	h, err := Open(context.Background(), cfg, spy)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return &fixture{
		h:        h,
		spy:      spy,
		manager:  NewManager(h),
		builder:  NewIndexBuilder(h),
		writer:   NewWriter(h),
		searcher: NewSearcher(h),
	}
}

func (f *fixture) createDocs(t *testing.T, dim int) {
	t.Helper()
	schema, err := engine.NewSchema(dim)
	require.NoError(t, err)
	require.NoError(t, f.manager.Create(context.Background(), "docs", schema))
}
