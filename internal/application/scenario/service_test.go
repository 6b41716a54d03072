package scenario

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

type staticSource struct {
	nodes []graphtypes.NodeRecord
	edges []graphtypes.EdgeRecord
	err   error
}

func (s *staticSource) FetchRecords(context.Context, graphtypes.Scope) ([]graphtypes.NodeRecord, []graphtypes.EdgeRecord, error) {
	return s.nodes, s.edges, s.err
}

type capturePublisher struct {
	mu    sync.Mutex
	metas []risk.Meta
}

func (p *capturePublisher) PublishAnalysisCompleted(_ context.Context, meta risk.Meta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metas = append(p.metas, meta)
	return nil
}

type captureMetrics struct {
	mu        sync.Mutex
	runs      int
	cacheHits int
	cacheMiss int
}

func (m *captureMetrics) ObserveAnalysis(string, time.Duration, int, bool) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
}

func (m *captureMetrics) ObserveWeightCache(hit bool) {
	m.mu.Lock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMiss++
	}
	m.mu.Unlock()
}

// litigationRecords builds a contract under legal dispute with one company
// party trading onward.
func litigationRecords() *staticSource {
	return &staticSource{
		nodes: []graphtypes.NodeRecord{
			{ID: "ev1", Kind: graphtypes.KindLegalEvent, Attrs: graphtypes.Attributes{
				"event_type": "Case", "status": "F", "amount": 10_000_000.0,
			}},
			{ID: "ct1", Kind: graphtypes.KindContract, Attrs: graphtypes.Attributes{"name": "Supply-north"}},
			{ID: "c1", Kind: graphtypes.KindCompany, Attrs: graphtypes.Attributes{"name": "Alpha Ltd"}},
			{ID: "c2", Kind: graphtypes.KindCompany},
		},
		edges: []graphtypes.EdgeRecord{
			{Source: "ct1", Target: "ev1", Type: graphtypes.EdgeRelatedTo},
			{Source: "ct1", Target: "c1", Type: graphtypes.EdgeHasParty},
			{Source: "c1", Target: "c2", Type: graphtypes.EdgeTradesWith},
		},
	}
}

func newService(source RecordSource, pub EventPublisher, m Metrics) *Service {
	cfg := config.NewDefaultConfig().Engine
	cfg.EmbeddingBlend = false
	resolver := weights.NewResolver(cfg, weights.NewMemoryStore(), nil)
	return NewService(cfg, source, resolver, pub, m, nil)
}

func TestFraudRankEndToEnd(t *testing.T) {
	pub := &capturePublisher{}
	metrics := &captureMetrics{}
	svc := newService(litigationRecords(), pub, metrics)

	res, err := svc.FraudRank(context.Background(), graphtypes.Scope{}, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Meta.RunID)
	assert.Equal(t, risk.ScenarioFraudRank, res.Meta.Scenario)
	assert.Equal(t, 4, res.Meta.NodeCount)
	assert.Equal(t, 3, res.Meta.EdgeCount)
	assert.Equal(t, 1, res.Meta.SeedCount)
	assert.True(t, res.Meta.Converged)
	assert.Greater(t, res.Meta.Iterations, 0)

	require.NotEmpty(t, res.Contracts)
	assert.Equal(t, "ct1", res.Contracts[0].ContractID)
	assert.Contains(t, res.Contracts[0].Parties, "c1")
	require.NotEmpty(t, res.Companies)
	assert.Equal(t, "c1", res.Companies[0].CompanyID)
	assert.Equal(t, "Alpha Ltd", res.Companies[0].CompanyName)

	assert.Len(t, pub.metas, 1)
	assert.Equal(t, 1, metrics.runs)
}

func TestFraudRankEmptySeedSet(t *testing.T) {
	src := &staticSource{nodes: []graphtypes.NodeRecord{
		{ID: "c1", Kind: graphtypes.KindCompany},
	}}
	svc := newService(src, nil, nil)

	res, err := svc.FraudRank(context.Background(), graphtypes.Scope{}, Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Meta.SeedCount)
	assert.Zero(t, res.Meta.ResultCount)
	assert.Empty(t, res.Companies)
	assert.Empty(t, res.Contracts)
}

func TestFraudRankWeightCacheReused(t *testing.T) {
	metrics := &captureMetrics{}
	svc := newService(litigationRecords(), nil, metrics)
	ctx := context.Background()

	first, err := svc.FraudRank(ctx, graphtypes.Scope{}, Options{})
	require.NoError(t, err)
	assert.False(t, first.Meta.CacheHit)

	second, err := svc.FraudRank(ctx, graphtypes.Scope{}, Options{})
	require.NoError(t, err)
	assert.True(t, second.Meta.CacheHit)

	require.Len(t, second.Companies, len(first.Companies))
	for i := range first.Companies {
		assert.Equal(t, first.Companies[i].Score, second.Companies[i].Score)
	}
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMiss)
}

func TestFraudRankForceRecompute(t *testing.T) {
	svc := newService(litigationRecords(), nil, nil)
	ctx := context.Background()

	_, err := svc.FraudRank(ctx, graphtypes.Scope{}, Options{})
	require.NoError(t, err)

	res, err := svc.FraudRank(ctx, graphtypes.Scope{}, Options{ForceRecompute: true})
	require.NoError(t, err)
	assert.False(t, res.Meta.CacheHit)
}

func TestBeginRejectsBrokenSnapshot(t *testing.T) {
	src := &staticSource{
		nodes: []graphtypes.NodeRecord{{ID: "c1", Kind: graphtypes.KindCompany}},
		edges: []graphtypes.EdgeRecord{{Source: "c1", Target: "ghost", Type: graphtypes.EdgeTradesWith}},
	}
	svc := newService(src, nil, nil)

	_, err := svc.FraudRank(context.Background(), graphtypes.Scope{}, Options{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferentialIntegrity))

	_, err = svc.RunAll(context.Background(), graphtypes.Scope{}, Options{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferentialIntegrity))
}

func TestBeginRejectsInvalidOverrides(t *testing.T) {
	svc := newService(litigationRecords(), nil, nil)

	bad := -1.0
	_, err := svc.FraudRank(context.Background(), graphtypes.Scope{}, Options{
		EdgeWeights: map[string]float64{"TRADES_WITH": bad},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigWeightInvalid))
}

func TestExternalRiskRankUsesExternalThresholds(t *testing.T) {
	src := &staticSource{
		nodes: []graphtypes.NodeRecord{
			{ID: "c1", Kind: graphtypes.KindCompany},
			{ID: "pen1", Kind: graphtypes.KindAdminPenalty, Attrs: graphtypes.Attributes{
				"amount": 10_000_000.0, "status": "effective", "severity": "severe",
			}},
		},
		edges: []graphtypes.EdgeRecord{
			{Source: "pen1", Target: "c1", Type: graphtypes.EdgeAdminPenaltyOf},
		},
	}
	svc := newService(src, nil, nil)

	res, err := svc.ExternalRiskRank(context.Background(), graphtypes.Scope{}, Options{})
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	// seed 0.97 damped at 0.65: (1-0.65)*0.97 = 0.3395 on a propagation-free graph
	assert.InDelta(t, 0.3395, res.Companies[0].Score, 1e-6)
	assert.Equal(t, risk.LevelMedium, res.Companies[0].Level)

	require.Len(t, res.Companies[0].Events, 1)
	assert.Equal(t, "pen1", res.Companies[0].Events[0].EventID)
	assert.InDelta(t, 0.97, res.Companies[0].Events[0].Score, 1e-9)
}

func TestExternalRiskRankRiskTypeFilter(t *testing.T) {
	src := &staticSource{
		nodes: []graphtypes.NodeRecord{
			{ID: "c1", Kind: graphtypes.KindCompany},
			{ID: "c2", Kind: graphtypes.KindCompany},
			{ID: "pen1", Kind: graphtypes.KindAdminPenalty, Attrs: graphtypes.Attributes{
				"amount": 10_000_000.0, "status": "effective", "severity": "severe",
			}},
			{ID: "abn1", Kind: graphtypes.KindBusinessAbnormal, Attrs: graphtypes.Attributes{
				"status": "listed",
			}},
		},
		edges: []graphtypes.EdgeRecord{
			{Source: "pen1", Target: "c1", Type: graphtypes.EdgeAdminPenaltyOf},
			{Source: "abn1", Target: "c2", Type: graphtypes.EdgeBusinessAbnormalOf},
		},
	}
	svc := newService(src, nil, nil)

	res, err := svc.ExternalRiskRank(context.Background(), graphtypes.Scope{}, Options{
		RiskType: "admin_penalty",
	})
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "c1", res.Companies[0].CompanyID)
}

func TestFraudRankContractCarriesEventDetail(t *testing.T) {
	svc := newService(litigationRecords(), nil, nil)

	res, err := svc.FraudRank(context.Background(), graphtypes.Scope{}, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Contracts)
	require.Len(t, res.Contracts[0].Events, 1)
	assert.Equal(t, "ev1", res.Contracts[0].Events[0].EventID)
	assert.Equal(t, "Case", res.Contracts[0].Events[0].Type)
}

type countingSource struct {
	inner *staticSource
	mu    sync.Mutex
	calls int
}

func (s *countingSource) FetchRecords(ctx context.Context, scope graphtypes.Scope) ([]graphtypes.NodeRecord, []graphtypes.EdgeRecord, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.inner.FetchRecords(ctx, scope)
}

func TestRunAllLoadsOneSnapshot(t *testing.T) {
	src := &countingSource{inner: litigationRecords()}
	metrics := &captureMetrics{}
	svc := newService(src, nil, metrics)

	res, err := svc.RunAll(context.Background(), graphtypes.Scope{}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, metrics.cacheMiss+metrics.cacheHits)

	// every scenario reports the same shared graph
	for _, meta := range []risk.Meta{
		res.FraudRank.Meta, res.CircularTrade.Meta, res.Collusion.Meta,
		res.ShellCompany.Meta, res.ExternalRisk.Meta, res.PerformRisk.Meta,
	} {
		assert.Equal(t, 4, meta.NodeCount)
		assert.Equal(t, 3, meta.EdgeCount)
	}
	assert.NotEqual(t, res.FraudRank.Meta.RunID, res.CircularTrade.Meta.RunID)
}

func TestRunAllIsolatesDetectorFailure(t *testing.T) {
	svc := newService(litigationRecords(), nil, nil)

	badCluster := 1 // below the collusion detector's minimum
	res, err := svc.RunAll(context.Background(), graphtypes.Scope{}, Options{
		MinClusterSize: &badCluster,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Collusion.Meta.Error)
	assert.Empty(t, res.FraudRank.Meta.Error)
	assert.Empty(t, res.CircularTrade.Meta.Error)
	assert.Empty(t, res.ShellCompany.Meta.Error)
	assert.Empty(t, res.PerformRisk.Meta.Error)
	assert.NotEmpty(t, res.FraudRank.Contracts)
}

func TestRunAllSourceFailure(t *testing.T) {
	svc := newService(&staticSource{err: context.DeadlineExceeded}, nil, nil)
	_, err := svc.RunAll(context.Background(), graphtypes.Scope{}, Options{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSnapshotLoadFailed))
}

func TestOptionsEffectiveMergesOverrides(t *testing.T) {
	base := config.NewDefaultConfig().Engine
	topN := 5
	damping := 0.5
	opts := Options{
		TopN:        &topN,
		Damping:     &damping,
		EdgeWeights: map[string]float64{"TRADES_WITH": 0.9},
	}

	cfg := opts.effective(base)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, 0.5, cfg.Damping)
	assert.Equal(t, 0.5, cfg.ExternalDamping)
	assert.Equal(t, 0.9, cfg.EdgeWeights["TRADES_WITH"])
	// untouched entries keep their defaults
	assert.Equal(t, base.EdgeWeights["CONTROLS"], cfg.EdgeWeights["CONTROLS"])
	// the base table is not mutated
	assert.NotEqual(t, 0.9, base.EdgeWeights["TRADES_WITH"])
}
