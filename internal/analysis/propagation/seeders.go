package propagation

import (
	"math"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

// Seeder assigns initial risk to nodes before propagation starts. An empty
// map means the scenario has no risk sources in this snapshot.
type Seeder interface {
	Seed(snap *graph.Snapshot) map[string]float64
}

// SeedWeights carries the scenario-tunable weight tables for seeding. Keys
// absent from a table fall back to the documented defaults.
type SeedWeights struct {
	EventTypeWeights map[string]float64
	StatusWeights    map[string]float64
	AmountThreshold  float64
}

func (w SeedWeights) eventTypeWeight(t string) float64 {
	if v, ok := w.EventTypeWeights[t]; ok {
		return v
	}
	switch t {
	case "Case":
		return 0.8
	case "Dispute":
		return 0.5
	default:
		return 0.3
	}
}

func (w SeedWeights) statusWeight(s string) float64 {
	if v, ok := w.StatusWeights[s]; ok {
		return v
	}
	switch s {
	case "F":
		return 0.9
	case "I":
		return 0.8
	case "J":
		return 0.7
	case "N":
		return 0.4
	default:
		return 0.5
	}
}

func (w SeedWeights) amountWeight(amount float64) float64 {
	if w.AmountThreshold <= 0 {
		return 0
	}
	r := amount / w.AmountThreshold
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// LitigationSeeder seeds Contract nodes that are tied to a LegalEvent through
// a RELATED_TO edge. A contract linked to several events takes the highest
// event score.
type LitigationSeeder struct {
	Weights SeedWeights
}

func (s LitigationSeeder) Seed(snap *graph.Snapshot) map[string]float64 {
	seeds := make(map[string]float64)
	for _, contract := range snap.NodesOfKind(graphtypes.KindContract) {
		best := 0.0
		for _, e := range snap.OutEdgesByType(contract.ID, graphtypes.EdgeRelatedTo) {
			event := snap.NodeAt(e.Target)
			if event.Kind != graphtypes.KindLegalEvent {
				continue
			}
			score := s.Weights.eventTypeWeight(event.Attrs.Str("event_type")) *
				s.Weights.statusWeight(event.Attrs.Str("status")) *
				s.Weights.amountWeight(event.Attrs.Float("amount"))
			if score > best {
				best = score
			}
		}
		if best > 0 {
			seeds[contract.ID] = best
		}
	}
	return seeds
}

// EventsFor summarizes the legal events backing a contract's seed, for result
// presentation.
func (s LitigationSeeder) EventsFor(snap *graph.Snapshot, contractID string) []risk.EventBrief {
	var events []risk.EventBrief
	for _, e := range snap.OutEdgesByType(contractID, graphtypes.EdgeRelatedTo) {
		event := snap.NodeAt(e.Target)
		if event.Kind != graphtypes.KindLegalEvent {
			continue
		}
		events = append(events, risk.EventBrief{
			Type:    event.Attrs.Str("event_type"),
			EventID: event.ID,
			EventNo: event.Attrs.Str("event_no"),
			Score: s.Weights.eventTypeWeight(event.Attrs.Str("event_type")) *
				s.Weights.statusWeight(event.Attrs.Str("status")) *
				s.Weights.amountWeight(event.Attrs.Float("amount")),
		})
	}
	return events
}

// Event-source filter values for the external-event scenario.
const (
	RiskTypeAll              = "all"
	RiskTypeAdminPenalty     = "admin_penalty"
	RiskTypeBusinessAbnormal = "business_abnormal"
)

// ExternalEventSeeder seeds Company nodes directly linked from AdminPenalty
// or BusinessAbnormal nodes. A company hit by several events takes the
// highest event score; penalty and abnormality sub-formulas weight their
// amount/status/severity factors independently and sum them. RiskType
// restricts seeding to one event source; empty means both.
type ExternalEventSeeder struct {
	Weights  SeedWeights
	RiskType string
}

func (s ExternalEventSeeder) Seed(snap *graph.Snapshot) map[string]float64 {
	seeds := make(map[string]float64)

	if s.wantsPenalties() {
		for _, penalty := range snap.NodesOfKind(graphtypes.KindAdminPenalty) {
			s.spread(snap, penalty.ID, graphtypes.EdgeAdminPenaltyOf, s.penaltyScore(penalty), seeds)
		}
	}

	if s.wantsAbnormals() {
		for _, abn := range snap.NodesOfKind(graphtypes.KindBusinessAbnormal) {
			s.spread(snap, abn.ID, graphtypes.EdgeBusinessAbnormalOf, s.abnormalScore(abn), seeds)
		}
	}

	return seeds
}

func (s ExternalEventSeeder) wantsPenalties() bool {
	return s.RiskType == "" || s.RiskType == RiskTypeAll || s.RiskType == RiskTypeAdminPenalty
}

func (s ExternalEventSeeder) wantsAbnormals() bool {
	return s.RiskType == "" || s.RiskType == RiskTypeAll || s.RiskType == RiskTypeBusinessAbnormal
}

func (s ExternalEventSeeder) penaltyScore(penalty *graph.Node) float64 {
	score := 0.4*s.Weights.amountWeight(penalty.Attrs.Float("amount")) +
		0.3*s.penaltyStatusWeight(penalty.Attrs.Str("status")) +
		0.3*s.severityWeight(penalty.Attrs.Str("severity"))
	return math.Min(score, 1)
}

func (s ExternalEventSeeder) abnormalScore(abn *graph.Node) float64 {
	score := 0.6*s.abnormalStatusWeight(abn.Attrs.Str("status")) +
		0.4*s.reasonWeight(abn.Attrs.Str("reason"))
	return math.Min(score, 1)
}

// EventsFor summarizes the external events seeding a company, for result
// presentation. Respects the RiskType filter.
func (s ExternalEventSeeder) EventsFor(snap *graph.Snapshot, companyID string) []risk.EventBrief {
	var events []risk.EventBrief
	if s.wantsPenalties() {
		for _, e := range snap.InEdgesByType(companyID, graphtypes.EdgeAdminPenaltyOf) {
			penalty := snap.NodeAt(e.Source)
			events = append(events, risk.EventBrief{
				Type:    RiskTypeAdminPenalty,
				EventID: penalty.ID,
				EventNo: penalty.Attrs.Str("event_no"),
				Score:   s.penaltyScore(penalty),
			})
		}
	}
	if s.wantsAbnormals() {
		for _, e := range snap.InEdgesByType(companyID, graphtypes.EdgeBusinessAbnormalOf) {
			abn := snap.NodeAt(e.Source)
			events = append(events, risk.EventBrief{
				Type:    RiskTypeBusinessAbnormal,
				EventID: abn.ID,
				EventNo: abn.Attrs.Str("event_no"),
				Score:   s.abnormalScore(abn),
			})
		}
	}
	return events
}

func (s ExternalEventSeeder) spread(snap *graph.Snapshot, eventID string, typ graphtypes.EdgeType, score float64, seeds map[string]float64) {
	if score <= 0 {
		return
	}
	for _, e := range snap.OutEdgesByType(eventID, typ) {
		company := snap.NodeAt(e.Target)
		if company.Kind != graphtypes.KindCompany {
			continue
		}
		if score > seeds[company.ID] {
			seeds[company.ID] = score
		}
	}
}

func (s ExternalEventSeeder) penaltyStatusWeight(status string) float64 {
	if v, ok := s.Weights.StatusWeights[status]; ok {
		return v
	}
	switch status {
	case "effective":
		return 1.0
	case "appealed":
		return 0.7
	case "revoked":
		return 0.2
	default:
		return 0.6
	}
}

func (s ExternalEventSeeder) severityWeight(severity string) float64 {
	switch severity {
	case "severe":
		return 0.9
	case "major":
		return 0.7
	case "minor":
		return 0.4
	default:
		return 0.5
	}
}

func (s ExternalEventSeeder) abnormalStatusWeight(status string) float64 {
	if v, ok := s.Weights.StatusWeights[status]; ok {
		return v
	}
	switch status {
	case "listed":
		return 0.9
	case "removed":
		return 0.3
	default:
		return 0.9
	}
}

func (s ExternalEventSeeder) reasonWeight(reason string) float64 {
	switch reason {
	case "address_unreachable":
		return 0.7
	case "report_concealed":
		return 0.9
	case "report_missing":
		return 0.4
	default:
		return 0.5
	}
}

// PartyCompanies exposes the contract-party resolution used when presenting
// contract-level scores.
func PartyCompanies(snap *graph.Snapshot, contractID string) []string {
	return partyCompanies(snap, contractID)
}
