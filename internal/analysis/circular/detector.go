// Package circular detects disperse/converge fund-flow patterns: a central
// company fanning funds out to several dispersed companies whose money later
// converges back to the central company or a company related to it.
package circular

import (
	"context"
	"sort"
	"time"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

// similarityGate is the minimum outflow/inflow similarity for a pattern to be
// reported at all.
const similarityGate = 0.7

// Params bounds one detection pass.
type Params struct {
	AmountThreshold float64
	TimeWindowDays  int
	TopN            int
}

type Detector struct {
	log logging.Logger
}

func NewDetector(log logging.Logger) *Detector {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Detector{log: log.Named("circular")}
}

// Detect scans every company as a candidate central node. Ties in risk score
// are broken by larger total outflow, then by company id.
func (d *Detector) Detect(ctx context.Context, snap *graph.Snapshot, p Params) ([]risk.CircularPattern, error) {
	if p.TimeWindowDays <= 0 {
		return nil, errors.New(errors.ErrCodeTimeWindowInvalid, "time window must be positive")
	}
	if p.AmountThreshold < 0 {
		return nil, errors.New(errors.ErrCodeConfigThresholdInvalid, "amount threshold must be non-negative")
	}

	idx := snap.IndexTransfers()
	window := time.Duration(p.TimeWindowDays) * 24 * time.Hour

	var patterns []risk.CircularPattern
	for _, central := range snap.NodesOfKind(graphtypes.KindCompany) {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "circular-trade detection cancelled")
		default:
		}
		if pat, ok := d.inspect(snap, idx, central.ID, p, window); ok {
			patterns = append(patterns, pat)
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].RiskScore != patterns[j].RiskScore {
			return patterns[i].RiskScore > patterns[j].RiskScore
		}
		if patterns[i].TotalOutflow != patterns[j].TotalOutflow {
			return patterns[i].TotalOutflow > patterns[j].TotalOutflow
		}
		return patterns[i].CentralCompany < patterns[j].CentralCompany
	})
	if p.TopN > 0 && len(patterns) > p.TopN {
		patterns = patterns[:p.TopN]
	}
	return patterns, nil
}

func (d *Detector) inspect(snap *graph.Snapshot, idx graph.TransfersByCompany, centralID string, p Params, window time.Duration) (risk.CircularPattern, bool) {
	// fan-out: qualifying outflows to distinct dispersed companies
	var outflows []graph.Transfer
	dispersed := make(map[string]struct{})
	var windowStart, windowEnd time.Time

	for _, t := range idx.Outgoing[centralID] {
		if t.Amount < p.AmountThreshold || t.To == centralID {
			continue
		}
		if len(outflows) > 0 && !t.Date.IsZero() {
			start, end := windowStart, windowEnd
			if t.Date.Before(start) {
				start = t.Date
			}
			if t.Date.After(end) {
				end = t.Date
			}
			if end.Sub(start) > window {
				continue
			}
			windowStart, windowEnd = start, end
		} else if !t.Date.IsZero() {
			windowStart, windowEnd = t.Date, t.Date
		}
		outflows = append(outflows, t)
		dispersed[t.To] = struct{}{}
	}
	if len(dispersed) < 2 {
		return risk.CircularPattern{}, false
	}

	related := relatedCompanies(snap, centralID)

	// convergence: inflows from the dispersed set back to the central company
	// or a related one
	totalOutflow := 0.0
	for _, t := range outflows {
		totalOutflow += t.Amount
	}
	totalInflow := 0.0
	interTrades := 0
	convergeTargets := map[string]struct{}{centralID: {}}
	for id := range related {
		convergeTargets[id] = struct{}{}
	}
	for from := range dispersed {
		for _, t := range idx.Outgoing[from] {
			if !withinWindow(t.Date, windowStart, window) {
				continue
			}
			if _, ok := convergeTargets[t.To]; ok {
				totalInflow += t.Amount
				continue
			}
			if _, ok := dispersed[t.To]; ok {
				interTrades++
			}
		}
	}
	if totalInflow == 0 {
		return risk.CircularPattern{}, false
	}

	similarity := flowSimilarity(totalOutflow, totalInflow)
	if similarity < similarityGate {
		return risk.CircularPattern{}, false
	}

	dispersedIDs := make([]string, 0, len(dispersed))
	for id := range dispersed {
		dispersedIDs = append(dispersedIDs, id)
	}
	sort.Strings(dispersedIDs)
	relatedIDs := make([]string, 0, len(related))
	for id := range related {
		relatedIDs = append(relatedIDs, id)
	}
	sort.Strings(relatedIDs)

	score := similarity*0.4 +
		capRatio(float64(len(dispersed))/10)*0.3 +
		capRatio(float64(interTrades)/20)*0.3

	spanDays := 0
	if !windowStart.IsZero() && !windowEnd.IsZero() {
		spanDays = int(windowEnd.Sub(windowStart).Hours() / 24)
	}

	return risk.CircularPattern{
		CentralCompany:     centralID,
		DispersedCompanies: dispersedIDs,
		RelatedCompanies:   relatedIDs,
		TotalOutflow:       totalOutflow,
		TotalInflow:        totalInflow,
		Similarity:         similarity,
		InterTradeCount:    interTrades,
		TimeSpanDays:       spanDays,
		RiskScore:          score,
	}, true
}

// flowSimilarity = 1 - |out-in| / max(out,in).
func flowSimilarity(outflow, inflow float64) float64 {
	max := outflow
	if inflow > max {
		max = inflow
	}
	if max == 0 {
		return 0
	}
	diff := outflow - inflow
	if diff < 0 {
		diff = -diff
	}
	return 1 - diff/max
}

// relatedCompanies collects companies tied to the central one by a CONTROLS
// edge in either direction or by a shared legal representative.
func relatedCompanies(snap *graph.Snapshot, centralID string) map[string]struct{} {
	related := make(map[string]struct{})
	for _, e := range snap.OutEdgesByType(centralID, graphtypes.EdgeControls) {
		related[e.TargetID] = struct{}{}
	}
	for _, e := range snap.InEdgesByType(centralID, graphtypes.EdgeControls) {
		related[e.SourceID] = struct{}{}
	}
	if lp := snap.LegalPersonOf(centralID); lp != "" {
		for _, id := range snap.CompaniesOfLegalPerson(lp) {
			if id != centralID {
				related[id] = struct{}{}
			}
		}
	}
	return related
}

func withinWindow(d, start time.Time, window time.Duration) bool {
	if d.IsZero() || start.IsZero() {
		return true
	}
	return !d.Before(start) && d.Sub(start) <= window
}

func capRatio(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
