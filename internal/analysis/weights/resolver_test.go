package weights

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

func testSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	s, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "c1", Kind: graphtypes.KindCompany},
			{ID: "c2", Kind: graphtypes.KindCompany},
			{ID: "ct1", Kind: graphtypes.KindContract},
		},
		[]graphtypes.EdgeRecord{
			{Source: "ct1", Target: "c1", Type: graphtypes.EdgeHasParty},
			{Source: "c1", Target: "c2", Type: graphtypes.EdgeTradesWith},
		},
	)
	require.NoError(t, err)
	return s
}

func engineConfig() config.EngineConfig {
	cfg := config.NewDefaultConfig().Engine
	cfg.EmbeddingBlend = false
	return cfg
}

func TestResolveUsesBusinessTable(t *testing.T) {
	snap := testSnapshot(t)
	r := NewResolver(engineConfig(), nil, nil)

	table, hit, err := r.Resolve(context.Background(), snap, false)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, table, 2)

	for _, e := range snap.Edges() {
		assert.Equal(t, r.BaseWeight(e.Type.String()), table[e.Index])
	}
}

func TestBaseWeightFailClosedDefault(t *testing.T) {
	cfg := engineConfig()
	r := NewResolver(cfg, nil, nil)
	assert.Equal(t, cfg.DefaultEdgeWeight, r.BaseWeight("NEVER_CONFIGURED"))
}

func TestResolveCacheRoundTrip(t *testing.T) {
	snap := testSnapshot(t)
	store := NewMemoryStore()
	r := NewResolver(engineConfig(), store, nil)
	ctx := context.Background()

	first, hit, err := r.Resolve(ctx, snap, false)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := r.Resolve(ctx, snap, false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
}

func TestResolveForceRecomputeBypassesStore(t *testing.T) {
	snap := testSnapshot(t)
	store := NewMemoryStore()
	r := NewResolver(engineConfig(), store, nil)
	ctx := context.Background()

	_, _, err := r.Resolve(ctx, snap, false)
	require.NoError(t, err)

	table, hit, err := r.Resolve(ctx, snap, true)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, table, snap.EdgeCount())

	// the forced recompute refreshed the store entry
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

// gatedStore blocks the first Get until release closes, so a test can hold a
// resolution in flight while issuing a second one.
type gatedStore struct {
	mu      sync.Mutex
	gets    int
	puts    int
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) Get(context.Context, string) (map[string]float64, bool, error) {
	s.mu.Lock()
	s.gets++
	if s.gets == 1 {
		close(s.entered)
	}
	s.mu.Unlock()
	<-s.release
	return nil, false, nil
}

func (s *gatedStore) Put(context.Context, string, map[string]float64) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return nil
}

func (s *gatedStore) Invalidate(context.Context, string) (int, error) { return 0, nil }
func (s *gatedStore) Keys(context.Context) ([]string, error)         { return nil, nil }

func TestConcurrentDerivedResolversShareFlight(t *testing.T) {
	snap := testSnapshot(t)
	store := newGatedStore()
	base := NewResolver(engineConfig(), store, nil)

	cfg := engineConfig()
	cfg.EdgeWeights = map[string]float64{"TRADES_WITH": 0.9}

	type outcome struct {
		table Table
		err   error
	}
	results := make(chan outcome, 2)
	resolve := func() {
		table, _, err := base.WithConfig(cfg).Resolve(context.Background(), snap, false)
		results <- outcome{table: table, err: err}
	}

	go resolve()
	<-store.entered
	go resolve()
	time.Sleep(100 * time.Millisecond)
	close(store.release)

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, first.table, second.table)

	// both requests rode one computation
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.puts)
}

func TestCacheKeyChangesWithConfig(t *testing.T) {
	snap := testSnapshot(t)

	a := NewResolver(engineConfig(), nil, nil).CacheKey(snap)

	cfg := engineConfig()
	cfg.DefaultEdgeWeight = 0.9
	b := NewResolver(cfg, nil, nil).CacheKey(snap)

	assert.NotEqual(t, a, b)
}

func TestBlendedWeightsStayInRange(t *testing.T) {
	cfg := engineConfig()
	cfg.EmbeddingBlend = true
	r := NewResolver(cfg, nil, nil)

	table, _, err := r.Resolve(context.Background(), testSnapshot(t), false)
	require.NoError(t, err)
	for _, w := range table {
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0)
	}
}
