// Package propagation implements the seeded damped score-spreading loop used
// by the litigation and external-event contagion scenarios.
package propagation

import (
	"context"
	"math"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

// Params bounds one propagation run.
type Params struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

// Result carries the final score map plus convergence bookkeeping. A run that
// exhausts its iteration budget still returns its best scores with Converged
// set to false; callers decide whether to surface that as a warning.
type Result struct {
	Scores     map[string]float64
	Iterations int
	Converged  bool
}

// Engine spreads seed scores along the traversal graph. One engine may serve
// concurrent runs; it holds no per-run state.
type Engine struct {
	log logging.Logger
}

func NewEngine(log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{log: log.Named("propagation")}
}

// traversal edge in propagation direction, weight already resolved.
type tEdge struct {
	from   int
	weight float64
}

// Run iterates new = (1-damping)*seed + damping * Σ(weight*score(src)/out(src))
// over the traversal graph until the max per-node delta drops below the
// tolerance or the iteration budget runs out. An empty seed set returns an
// empty result without iterating.
func (e *Engine) Run(ctx context.Context, snap *graph.Snapshot, table weights.Table, seeds map[string]float64, p Params) (*Result, error) {
	if err := validateParams(table, p); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return &Result{Scores: map[string]float64{}, Converged: true}, nil
	}

	n := snap.NodeCount()
	seedVec := make([]float64, n)
	for id, s := range seeds {
		if node, ok := snap.Node(id); ok {
			seedVec[node.Index] = clamp01(s)
		}
	}

	incoming, outDeg := buildTraversal(snap, table)

	scores := make([]float64, n)
	copy(scores, seedVec)
	next := make([]float64, n)

	res := &Result{}
	for iter := 1; iter <= p.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "propagation cancelled")
		default:
		}

		delta := 0.0
		for v := 0; v < n; v++ {
			sum := 0.0
			for _, te := range incoming[v] {
				if outDeg[te.from] > 0 {
					sum += te.weight * scores[te.from] / float64(outDeg[te.from])
				}
			}
			s := (1-p.Damping)*seedVec[v] + p.Damping*sum
			if s > 1 {
				s = 1
			}
			next[v] = s
			if d := math.Abs(s - scores[v]); d > delta {
				delta = d
			}
		}
		scores, next = next, scores
		res.Iterations = iter
		if delta < p.Tolerance {
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		e.log.Warn("iteration budget exhausted before convergence",
			logging.Int("iterations", res.Iterations),
			logging.Float64("tolerance", p.Tolerance))
	}

	res.Scores = make(map[string]float64, n)
	for _, node := range snap.Nodes() {
		if scores[node.Index] > 0 {
			res.Scores[node.ID] = scores[node.Index]
		}
	}
	return res, nil
}

// buildTraversal applies the direction rules: every edge propagates in its
// natural direction except contract-participation edges (Company -> Contract),
// which are reversed so contract risk reaches its parties. Out-degrees are
// counted in the traversal graph, not the raw one.
func buildTraversal(snap *graph.Snapshot, table weights.Table) ([][]tEdge, []int) {
	n := snap.NodeCount()
	incoming := make([][]tEdge, n)
	outDeg := make([]int, n)

	for _, edge := range snap.Edges() {
		from, to := edge.Source, edge.Target
		if edge.Type.IsParty() {
			from, to = to, from
		}
		incoming[to] = append(incoming[to], tEdge{from: from, weight: table[edge.Index]})
		outDeg[from]++
	}
	return incoming, outDeg
}

func validateParams(table weights.Table, p Params) error {
	if p.Damping < 0 || p.Damping >= 1 {
		return errors.New(errors.ErrCodeConfigWeightInvalid, "damping must lie in [0,1)")
	}
	if p.MaxIterations <= 0 {
		return errors.New(errors.ErrCodeConfigWeightInvalid, "max iterations must be positive")
	}
	if p.Tolerance <= 0 {
		return errors.New(errors.ErrCodeConfigWeightInvalid, "tolerance must be positive")
	}
	for _, w := range table {
		if w < 0 {
			return errors.New(errors.ErrCodeConfigWeightInvalid, "negative edge weight in resolved table")
		}
	}
	return nil
}

// Thresholds classify a propagated score into a risk level.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// CompanyThresholds applies to the litigation-contagion (company ranking)
// scenario, ExternalThresholds to the external-event variant.
var (
	CompanyThresholds  = Thresholds{High: 0.7, Medium: 0.4, Low: 0.2}
	ExternalThresholds = Thresholds{High: 0.6, Medium: 0.3, Low: 0.1}
)

func (t Thresholds) Level(score float64) risk.Level {
	switch {
	case score >= t.High:
		return risk.LevelHigh
	case score >= t.Medium:
		return risk.LevelMedium
	case score >= t.Low:
		return risk.LevelLow
	default:
		return risk.LevelNormal
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// partyCompanies resolves the company parties of a contract for presentation,
// following both the materialized inverse edges and any raw participation
// edges present in the snapshot.
func partyCompanies(snap *graph.Snapshot, contractID string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, e := range snap.OutEdgesByType(contractID, graphtypes.EdgeHasParty) {
		add(e.TargetID)
	}
	for _, e := range snap.InEdges(contractID) {
		if e.Type.IsParty() {
			add(e.SourceID)
		}
	}
	return out
}
