package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	"github.com/corpgraph/CorpRisk-Insight/internal/application/scenario"
	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/internal/interfaces/http/handlers"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

type staticSource struct {
	nodes []graphtypes.NodeRecord
	edges []graphtypes.EdgeRecord
}

func (s *staticSource) FetchRecords(context.Context, graphtypes.Scope) ([]graphtypes.NodeRecord, []graphtypes.EdgeRecord, error) {
	return s.nodes, s.edges, nil
}

func testRouter(t *testing.T) (http.Handler, weights.Store) {
	t.Helper()
	source := &staticSource{
		nodes: []graphtypes.NodeRecord{
			{ID: "ev1", Kind: graphtypes.KindLegalEvent, Attrs: graphtypes.Attributes{
				"event_type": "Case", "status": "F", "amount": 10_000_000.0,
			}},
			{ID: "ct1", Kind: graphtypes.KindContract},
			{ID: "c1", Kind: graphtypes.KindCompany, Attrs: graphtypes.Attributes{"name": "Alpha Ltd"}},
		},
		edges: []graphtypes.EdgeRecord{
			{Source: "ct1", Target: "ev1", Type: graphtypes.EdgeRelatedTo},
			{Source: "ct1", Target: "c1", Type: graphtypes.EdgeHasParty},
		},
	}
	cfg := config.NewDefaultConfig().Engine
	cfg.EmbeddingBlend = false
	store := weights.NewMemoryStore()
	resolver := weights.NewResolver(cfg, store, nil)
	svc := scenario.NewService(cfg, source, resolver, nil, nil, nil)

	router := NewRouter(RouterConfig{
		Analysis: handlers.NewAnalysisHandler(svc, nil),
		Cache:    handlers.NewCacheHandler(store, nil),
		Health:   handlers.NewHealthHandler(),
	})
	return router, store
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestFraudRankEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/api/v1/analysis/fraud-rank", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["code"])

	data := body["data"].(map[string]interface{})
	meta := data["meta"].(map[string]interface{})
	assert.Equal(t, "fraud_rank", meta["scenario"])
	assert.EqualValues(t, 3, meta["node_count"])
	assert.NotEmpty(t, meta["run_id"])
}

func TestAnalysisEndpointUnknownKeysIgnored(t *testing.T) {
	router, _ := testRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/api/v1/analysis/fraud-rank",
		`{"top_n": 5, "not_a_real_option": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["code"])
}

func TestAnalysisEndpointEmptyBody(t *testing.T) {
	router, _ := testRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/analysis/circular-trade", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalysisEndpointMalformedBody(t *testing.T) {
	router, _ := testRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/api/v1/analysis/fraud-rank", `{"top_n": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "COMMON_002", body["code"])
}

func TestAnalysisEndpointInvalidWeightOverride(t *testing.T) {
	router, _ := testRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/api/v1/analysis/fraud-rank",
		`{"edge_weights": {"TRADES_WITH": 1.5}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CFG_002", body["code"])
}

func TestRunAllEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/api/v1/analysis/all", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	for _, key := range []string{"fraud_rank", "circular_trade", "collusion", "shell_company", "external_risk_rank", "perform_risk"} {
		assert.Contains(t, data, key)
	}
}

func TestCacheInspectAndInvalidate(t *testing.T) {
	router, _ := testRouter(t)

	// run once to populate the cache
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/analysis/fraud-rank", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/cache/weights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["count"])

	rec, body = doJSON(t, router, http.MethodDelete, "/api/v1/cache/weights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["removed"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/v1/cache/weights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = body["data"].(map[string]interface{})
	assert.EqualValues(t, 0, data["count"])
}

func TestCacheInspectMissingKey(t *testing.T) {
	router, _ := testRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/cache/weights?key=absent", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "COMMON_003", body["code"])
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])
}
