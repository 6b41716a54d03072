package propagation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

func seedWeights() SeedWeights {
	return SeedWeights{AmountThreshold: 10_000_000}
}

func TestLitigationSeederScoresContract(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "ct1", Kind: graphtypes.KindContract},
			{ID: "ev1", Kind: graphtypes.KindLegalEvent, Attrs: graphtypes.Attributes{
				"event_type": "Case", "status": "F", "amount": 5_000_000.0,
			}},
			{ID: "ev2", Kind: graphtypes.KindLegalEvent, Attrs: graphtypes.Attributes{
				"event_type": "Dispute", "status": "N", "amount": 20_000_000.0,
			}},
		},
		[]graphtypes.EdgeRecord{
			{Source: "ct1", Target: "ev1", Type: graphtypes.EdgeRelatedTo},
			{Source: "ct1", Target: "ev2", Type: graphtypes.EdgeRelatedTo},
		},
	)
	require.NoError(t, err)

	seeds := LitigationSeeder{Weights: seedWeights()}.Seed(snap)
	require.Contains(t, seeds, "ct1")

	// ev1: 0.8 * 0.9 * 0.5 = 0.36; ev2: 0.5 * 0.4 * 1.0 = 0.20; max wins
	assert.InDelta(t, 0.36, seeds["ct1"], 1e-9)

	events := LitigationSeeder{Weights: seedWeights()}.EventsFor(snap, "ct1")
	assert.Len(t, events, 2)
}

func TestLitigationSeederNoEvents(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{{ID: "ct1", Kind: graphtypes.KindContract}}, nil)
	require.NoError(t, err)

	assert.Empty(t, LitigationSeeder{Weights: seedWeights()}.Seed(snap))
}

func TestLitigationSeederWeightOverrides(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "ct1", Kind: graphtypes.KindContract},
			{ID: "ev1", Kind: graphtypes.KindLegalEvent, Attrs: graphtypes.Attributes{
				"event_type": "Case", "status": "F", "amount": 10_000_000.0,
			}},
		},
		[]graphtypes.EdgeRecord{
			{Source: "ct1", Target: "ev1", Type: graphtypes.EdgeRelatedTo},
		},
	)
	require.NoError(t, err)

	w := seedWeights()
	w.EventTypeWeights = map[string]float64{"Case": 1.0}
	w.StatusWeights = map[string]float64{"F": 1.0}

	seeds := LitigationSeeder{Weights: w}.Seed(snap)
	assert.InDelta(t, 1.0, seeds["ct1"], 1e-9)
}

func TestExternalEventSeeder(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "c1", Kind: graphtypes.KindCompany},
			{ID: "c2", Kind: graphtypes.KindCompany},
			{ID: "pen1", Kind: graphtypes.KindAdminPenalty, Attrs: graphtypes.Attributes{
				"amount": 10_000_000.0, "status": "effective", "severity": "severe",
			}},
			{ID: "abn1", Kind: graphtypes.KindBusinessAbnormal, Attrs: graphtypes.Attributes{
				"status": "listed", "reason": "report_concealed",
			}},
		},
		[]graphtypes.EdgeRecord{
			{Source: "pen1", Target: "c1", Type: graphtypes.EdgeAdminPenaltyOf},
			{Source: "abn1", Target: "c2", Type: graphtypes.EdgeBusinessAbnormalOf},
		},
	)
	require.NoError(t, err)

	seeds := ExternalEventSeeder{Weights: seedWeights()}.Seed(snap)

	// penalty: 0.4*1.0 + 0.3*1.0 + 0.3*0.9 = 0.97
	assert.InDelta(t, 0.97, seeds["c1"], 1e-9)
	// abnormal: 0.6*0.9 + 0.4*0.9 = 0.90
	assert.InDelta(t, 0.90, seeds["c2"], 1e-9)
}

func TestExternalEventSeederTakesMaxPerCompany(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "c1", Kind: graphtypes.KindCompany},
			{ID: "pen1", Kind: graphtypes.KindAdminPenalty, Attrs: graphtypes.Attributes{
				"amount": 1_000_000.0, "status": "revoked", "severity": "minor",
			}},
			{ID: "pen2", Kind: graphtypes.KindAdminPenalty, Attrs: graphtypes.Attributes{
				"amount": 10_000_000.0, "status": "effective", "severity": "severe",
			}},
		},
		[]graphtypes.EdgeRecord{
			{Source: "pen1", Target: "c1", Type: graphtypes.EdgeAdminPenaltyOf},
			{Source: "pen2", Target: "c1", Type: graphtypes.EdgeAdminPenaltyOf},
		},
	)
	require.NoError(t, err)

	seeds := ExternalEventSeeder{Weights: seedWeights()}.Seed(snap)
	assert.InDelta(t, 0.97, seeds["c1"], 1e-9)
}

func TestExternalEventSeederRiskTypeFilter(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "c1", Kind: graphtypes.KindCompany},
			{ID: "c2", Kind: graphtypes.KindCompany},
			{ID: "pen1", Kind: graphtypes.KindAdminPenalty, Attrs: graphtypes.Attributes{
				"amount": 10_000_000.0, "status": "effective", "severity": "severe",
			}},
			{ID: "abn1", Kind: graphtypes.KindBusinessAbnormal, Attrs: graphtypes.Attributes{
				"status": "listed", "reason": "report_concealed",
			}},
		},
		[]graphtypes.EdgeRecord{
			{Source: "pen1", Target: "c1", Type: graphtypes.EdgeAdminPenaltyOf},
			{Source: "abn1", Target: "c2", Type: graphtypes.EdgeBusinessAbnormalOf},
		},
	)
	require.NoError(t, err)

	penaltiesOnly := ExternalEventSeeder{Weights: seedWeights(), RiskType: RiskTypeAdminPenalty}.Seed(snap)
	assert.Contains(t, penaltiesOnly, "c1")
	assert.NotContains(t, penaltiesOnly, "c2")

	abnormalsOnly := ExternalEventSeeder{Weights: seedWeights(), RiskType: RiskTypeBusinessAbnormal}.Seed(snap)
	assert.NotContains(t, abnormalsOnly, "c1")
	assert.Contains(t, abnormalsOnly, "c2")

	all := ExternalEventSeeder{Weights: seedWeights(), RiskType: RiskTypeAll}.Seed(snap)
	assert.Len(t, all, 2)
}

func TestExternalEventSeederEventsFor(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "c1", Kind: graphtypes.KindCompany},
			{ID: "pen1", Kind: graphtypes.KindAdminPenalty, Attrs: graphtypes.Attributes{
				"amount": 10_000_000.0, "status": "effective", "severity": "severe", "event_no": "P-17",
			}},
			{ID: "abn1", Kind: graphtypes.KindBusinessAbnormal, Attrs: graphtypes.Attributes{
				"status": "listed", "reason": "report_concealed",
			}},
		},
		[]graphtypes.EdgeRecord{
			{Source: "pen1", Target: "c1", Type: graphtypes.EdgeAdminPenaltyOf},
			{Source: "abn1", Target: "c1", Type: graphtypes.EdgeBusinessAbnormalOf},
		},
	)
	require.NoError(t, err)

	events := ExternalEventSeeder{Weights: seedWeights()}.EventsFor(snap, "c1")
	require.Len(t, events, 2)
	assert.Equal(t, RiskTypeAdminPenalty, events[0].Type)
	assert.Equal(t, "P-17", events[0].EventNo)
	assert.InDelta(t, 0.97, events[0].Score, 1e-9)
	assert.Equal(t, RiskTypeBusinessAbnormal, events[1].Type)
	assert.InDelta(t, 0.90, events[1].Score, 1e-9)

	filtered := ExternalEventSeeder{Weights: seedWeights(), RiskType: RiskTypeAdminPenalty}.EventsFor(snap, "c1")
	require.Len(t, filtered, 1)
	assert.Equal(t, "pen1", filtered[0].EventID)
}

func TestPartyCompanies(t *testing.T) {
	snap, err := graph.NewSnapshot(
		[]graphtypes.NodeRecord{
			{ID: "ct1", Kind: graphtypes.KindContract},
			{ID: "a", Kind: graphtypes.KindCompany},
			{ID: "b", Kind: graphtypes.KindCompany},
		},
		[]graphtypes.EdgeRecord{
			{Source: "ct1", Target: "a", Type: graphtypes.EdgeHasParty},
			{Source: "b", Target: "ct1", Type: graphtypes.EdgePartyB},
			// duplicate representation of the same party
			{Source: "a", Target: "ct1", Type: graphtypes.EdgePartyA},
		},
	)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a", "b"}, PartyCompanies(snap, "ct1"))
}
