// Package collusion finds clusters of companies tied by control or a shared
// legal representative whose contract awards rotate suspiciously.
package collusion

import (
	"context"
	"math"
	"sort"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

// FactorWeights is the composite-score weighting. Zero value means "use
// defaults".
type FactorWeights struct {
	Rotation         float64
	AmountSimilarity float64
	ThresholdRatio   float64
	Density          float64
	StrongBonus      float64
}

func defaultFactorWeights() FactorWeights {
	return FactorWeights{
		Rotation:         0.3,
		AmountSimilarity: 0.2,
		ThresholdRatio:   0.2,
		Density:          0.2,
		StrongBonus:      0.1,
	}
}

// Params bounds one detection pass.
type Params struct {
	MinClusterSize     int
	RiskScoreThreshold float64
	ApprovalThresholds []float64
	ThresholdMargin    float64
	TopN               int
	Weights            FactorWeights
}

type Detector struct {
	log logging.Logger
}

func NewDetector(log logging.Logger) *Detector {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Detector{log: log.Named("collusion")}
}

// Detect clusters companies over CONTROLS and shared-legal-person adjacency,
// scores each surviving cluster, and returns the scores ranked descending.
func (d *Detector) Detect(ctx context.Context, snap *graph.Snapshot, p Params) ([]risk.CollusionCluster, error) {
	if p.MinClusterSize < 2 {
		return nil, errors.New(errors.ErrCodeConfigThresholdInvalid, "min cluster size must be at least 2")
	}
	if p.ThresholdMargin < 0 || p.ThresholdMargin > 1 {
		return nil, errors.New(errors.ErrCodeConfigThresholdInvalid, "threshold margin must lie in [0,1]")
	}
	w := p.Weights
	if w == (FactorWeights{}) {
		w = defaultFactorWeights()
	}

	adj := buildAdjacency(snap)
	clusters := components(adj, p.MinClusterSize)

	var out []risk.CollusionCluster
	for _, members := range clusters {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "collusion detection cancelled")
		default:
		}
		c := d.score(snap, members, p, w)
		if c.RiskScore >= p.RiskScoreThreshold {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].NetworkID < out[j].NetworkID
	})
	if p.TopN > 0 && len(out) > p.TopN {
		out = out[:p.TopN]
	}
	return out, nil
}

// buildAdjacency links companies connected by a CONTROLS edge (either
// direction) or sharing a legal representative. The result is undirected.
func buildAdjacency(snap *graph.Snapshot) map[string]map[string]struct{} {
	adj := make(map[string]map[string]struct{})
	link := func(a, b string) {
		if a == b {
			return
		}
		if adj[a] == nil {
			adj[a] = make(map[string]struct{})
		}
		if adj[b] == nil {
			adj[b] = make(map[string]struct{})
		}
		adj[a][b] = struct{}{}
		adj[b][a] = struct{}{}
	}

	for _, e := range snap.Edges() {
		if e.Type == graphtypes.EdgeControls {
			link(e.SourceID, e.TargetID)
		}
	}
	for _, person := range snap.NodesOfKind(graphtypes.KindPerson) {
		companies := snap.CompaniesOfLegalPerson(person.ID)
		for i := 0; i < len(companies); i++ {
			for j := i + 1; j < len(companies); j++ {
				link(companies[i], companies[j])
			}
		}
	}
	return adj
}

// components walks the adjacency and returns every connected component of at
// least minSize members, each sorted by id for deterministic output.
func components(adj map[string]map[string]struct{}, minSize int) [][]string {
	seen := make(map[string]struct{})
	var out [][]string

	ids := make([]string, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, start := range ids {
		if _, done := seen[start]; done {
			continue
		}
		var members []string
		queue := []string{start}
		seen[start] = struct{}{}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			for nb := range adj[cur] {
				if _, done := seen[nb]; !done {
					seen[nb] = struct{}{}
					queue = append(queue, nb)
				}
			}
		}
		if len(members) >= minSize {
			sort.Strings(members)
			out = append(out, members)
		}
	}
	return out
}

func (d *Detector) score(snap *graph.Snapshot, members []string, p Params, w FactorWeights) risk.CollusionCluster {
	memberSet := make(map[string]struct{}, len(members))
	for _, m := range members {
		memberSet[m] = struct{}{}
	}

	wins := make(map[string]int, len(members))
	amounts := []float64{}
	contractSeen := make(map[string]struct{})
	for _, m := range members {
		for _, ct := range memberContracts(snap, m) {
			wins[m]++
			if _, dup := contractSeen[ct]; dup {
				continue
			}
			contractSeen[ct] = struct{}{}
			if node, ok := snap.Node(ct); ok {
				amounts = append(amounts, node.Attrs.Float("amount"))
			}
		}
	}

	rotation := rotationScore(members, wins)
	amountSim := amountSimilarity(amounts)
	thresholdRatio := thresholdRatio(amounts, p.ApprovalThresholds, p.ThresholdMargin)
	density := networkDensity(snap, members, memberSet)
	strong := strongRelation(snap, members, wins)

	score := w.Rotation*rotation +
		w.AmountSimilarity*amountSim +
		w.ThresholdRatio*thresholdRatio +
		w.Density*density
	if strong {
		score += w.StrongBonus
	}
	if score > 1 {
		score = 1
	}

	total := 0.0
	for _, a := range amounts {
		total += a
	}
	avg := 0.0
	if len(amounts) > 0 {
		avg = total / float64(len(amounts))
	}

	return risk.CollusionCluster{
		NetworkID:        "net-" + members[0],
		Companies:        members,
		Size:             len(members),
		RiskScore:        score,
		RotationScore:    rotation,
		AmountSimilarity: amountSim,
		ThresholdRatio:   thresholdRatio,
		NetworkDensity:   density,
		StrongRelation:   strong,
		ContractCount:    len(amounts),
		TotalAmount:      total,
		AvgAmount:        avg,
	}
}

// memberContracts lists contract ids the company participates in, through
// either edge representation.
func memberContracts(snap *graph.Snapshot, companyID string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range snap.OutEdges(companyID) {
		if e.Type.IsParty() {
			if _, dup := seen[e.TargetID]; !dup {
				seen[e.TargetID] = struct{}{}
				out = append(out, e.TargetID)
			}
		}
	}
	for _, e := range snap.InEdgesByType(companyID, graphtypes.EdgeHasParty) {
		if _, dup := seen[e.SourceID]; !dup {
			seen[e.SourceID] = struct{}{}
			out = append(out, e.SourceID)
		}
	}
	return out
}

// rotationScore measures how evenly awards rotate: 1 - min(var/mean^2, 1)
// over per-member win counts. A perfect round-robin scores 1.
func rotationScore(members []string, wins map[string]int) float64 {
	if len(members) == 0 {
		return 0
	}
	mean := 0.0
	for _, m := range members {
		mean += float64(wins[m])
	}
	mean /= float64(len(members))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, m := range members {
		d := float64(wins[m]) - mean
		variance += d * d
	}
	variance /= float64(len(members))
	r := variance / (mean * mean)
	if r > 1 {
		r = 1
	}
	return 1 - r
}

// amountSimilarity = 1 - min(CV, 1) over contract amounts.
func amountSimilarity(amounts []float64) float64 {
	if len(amounts) < 2 {
		return 0
	}
	mean := 0.0
	for _, a := range amounts {
		mean += a
	}
	mean /= float64(len(amounts))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, a := range amounts {
		d := a - mean
		variance += d * d
	}
	variance /= float64(len(amounts))
	cv := math.Sqrt(variance) / mean
	if cv > 1 {
		cv = 1
	}
	return 1 - cv
}

// thresholdRatio is the fraction of amounts falling within the margin just
// below a fixed approval threshold.
func thresholdRatio(amounts, thresholds []float64, margin float64) float64 {
	if len(amounts) == 0 || len(thresholds) == 0 {
		return 0
	}
	hits := 0
	for _, a := range amounts {
		for _, thr := range thresholds {
			if a <= thr && a >= thr*(1-margin) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(amounts))
}

// networkDensity counts distinct directly-connected member pairs against the
// complete-graph pair count.
func networkDensity(snap *graph.Snapshot, members []string, memberSet map[string]struct{}) float64 {
	n := len(members)
	if n < 2 {
		return 0
	}
	pairs := make(map[[2]string]struct{})
	record := func(a, b string) {
		if a == b {
			return
		}
		if a > b {
			a, b = b, a
		}
		pairs[[2]string{a, b}] = struct{}{}
	}
	for _, m := range members {
		for _, e := range snap.OutEdges(m) {
			if _, ok := memberSet[e.TargetID]; ok {
				record(m, e.TargetID)
			}
		}
	}
	// shared legal person counts as a relationship pair
	byPerson := make(map[string][]string)
	for _, m := range members {
		if lp := snap.LegalPersonOf(m); lp != "" {
			byPerson[lp] = append(byPerson[lp], m)
		}
	}
	for _, group := range byPerson {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				record(group[i], group[j])
			}
		}
	}
	return float64(len(pairs)) / float64(n*(n-1)/2)
}

// strongRelation reports whether the two most active members are directly
// tied by a CONTROLS edge or a shared legal representative.
func strongRelation(snap *graph.Snapshot, members []string, wins map[string]int) bool {
	if len(members) < 2 {
		return false
	}
	ranked := append([]string(nil), members...)
	sort.Slice(ranked, func(i, j int) bool {
		if wins[ranked[i]] != wins[ranked[j]] {
			return wins[ranked[i]] > wins[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	a, b := ranked[0], ranked[1]

	for _, e := range snap.OutEdgesByType(a, graphtypes.EdgeControls) {
		if e.TargetID == b {
			return true
		}
	}
	for _, e := range snap.OutEdgesByType(b, graphtypes.EdgeControls) {
		if e.TargetID == a {
			return true
		}
	}
	lpa, lpb := snap.LegalPersonOf(a), snap.LegalPersonOf(b)
	return lpa != "" && lpa == lpb
}
