// Package shell scores companies on conduit-like behavior: funds passing
// straight through, few counterparties, and a legal representative fronting
// many companies at once.
package shell

import (
	"context"
	"sort"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

// Params bounds one scoring pass.
type Params struct {
	MinScore float64
	TopN     int
}

type Scorer struct {
	log logging.Logger
}

func NewScorer(log logging.Logger) *Scorer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Scorer{log: log.Named("shell")}
}

// Score evaluates every company with at least one transaction and reports
// those at or above the minimum score, ranked descending. Networks group
// reported companies sharing a legal representative when at least two members
// scored independently.
func (s *Scorer) Score(ctx context.Context, snap *graph.Snapshot, p Params) ([]risk.ShellFeatures, []risk.ShellNetwork, error) {
	if p.MinScore < 0 || p.MinScore > 1 {
		return nil, nil, errors.New(errors.ErrCodeConfigThresholdInvalid, "min score must lie in [0,1]")
	}

	idx := snap.IndexTransfers()

	var reported []risk.ShellFeatures
	for _, company := range snap.NodesOfKind(graphtypes.KindCompany) {
		select {
		case <-ctx.Done():
			return nil, nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "shell scoring cancelled")
		default:
		}
		f := s.features(snap, idx, company)
		if f.TransactionCount == 0 {
			continue
		}
		if f.ShellScore >= p.MinScore {
			reported = append(reported, f)
		}
	}

	sort.Slice(reported, func(i, j int) bool {
		if reported[i].ShellScore != reported[j].ShellScore {
			return reported[i].ShellScore > reported[j].ShellScore
		}
		return reported[i].CompanyID < reported[j].CompanyID
	})
	if p.TopN > 0 && len(reported) > p.TopN {
		reported = reported[:p.TopN]
	}

	return reported, buildNetworks(snap, reported), nil
}

func (s *Scorer) features(snap *graph.Snapshot, idx graph.TransfersByCompany, company *graph.Node) risk.ShellFeatures {
	in := idx.Incoming[company.ID]
	out := idx.Outgoing[company.ID]

	totalIn, totalOut := 0.0, 0.0
	counterparts := make(map[string]struct{})
	for _, t := range in {
		totalIn += t.Amount
		counterparts[t.From] = struct{}{}
	}
	for _, t := range out {
		totalOut += t.Amount
		counterparts[t.To] = struct{}{}
	}
	txnCount := len(in) + len(out)

	ptr := passThroughRatio(totalIn, totalOut)
	velocity, paired := transactionVelocity(in, out)
	// normalized so a single counterpart scores 0 no matter the volume
	diversity := 0.0
	if txnCount > 1 && len(counterparts) > 1 {
		diversity = float64(len(counterparts)-1) / float64(txnCount-1)
	}

	lpCount := 0
	if lp := snap.LegalPersonOf(company.ID); lp != "" {
		lpCount = len(snap.CompaniesOfLegalPerson(lp)) - 1
	}

	contractCount, avgContract := contractProfile(snap, company.ID)

	f := risk.ShellFeatures{
		CompanyID:               company.ID,
		CompanyName:             company.Attrs.Str("name"),
		LegalPerson:             company.Attrs.Str("legal_person"),
		PassThroughRatio:        ptr,
		VelocityDays:            velocity,
		PartnerDiversity:        diversity,
		TransactionCount:        txnCount,
		TotalInflow:             totalIn,
		TotalOutflow:            totalOut,
		DegreeCentrality:        len(snap.OutEdges(company.ID)) + len(snap.InEdges(company.ID)),
		LegalPersonCompanyCount: lpCount,
		ContractCount:           contractCount,
	}
	f.ShellScore = shellScore(f, paired, avgContract)
	return f
}

// shellScore buckets each feature into a fixed contribution; the buckets sum
// to at most 1.
func shellScore(f risk.ShellFeatures, paired bool, avgContract float64) float64 {
	score := 0.0

	switch {
	case f.PassThroughRatio >= 0.9:
		score += 0.25
	case f.PassThroughRatio >= 0.8:
		score += 0.15
	}

	if paired {
		switch {
		case f.VelocityDays < 7:
			score += 0.20
		case f.VelocityDays <= 30:
			score += 0.10
		}
	}

	switch {
	case f.PartnerDiversity < 0.2:
		score += 0.20
	case f.PartnerDiversity < 0.4:
		score += 0.10
	}

	switch {
	case f.LegalPersonCompanyCount >= 5:
		score += 0.20
	case f.LegalPersonCompanyCount >= 3:
		score += 0.10
	}

	if avgContract > 5_000_000 && f.ContractCount > 0 && f.ContractCount < 3 {
		score += 0.15
	}
	return score
}

// passThroughRatio is the matched share of flow through the company: 1.0 when
// every unit in is mirrored by a unit out.
func passThroughRatio(totalIn, totalOut float64) float64 {
	if totalIn <= 0 || totalOut <= 0 {
		return 0
	}
	if totalIn < totalOut {
		return totalIn / totalOut
	}
	return totalOut / totalIn
}

// transactionVelocity pairs each inflow with the first later unmatched
// outflow and returns the mean gap in days. The second return reports whether
// any pair was formed.
func transactionVelocity(in, out []graph.Transfer) (float64, bool) {
	inflows := append([]graph.Transfer(nil), in...)
	outflows := append([]graph.Transfer(nil), out...)
	sort.Slice(inflows, func(i, j int) bool { return inflows[i].Date.Before(inflows[j].Date) })
	sort.Slice(outflows, func(i, j int) bool { return outflows[i].Date.Before(outflows[j].Date) })

	totalDays, pairs := 0.0, 0
	oi := 0
	for _, inf := range inflows {
		if inf.Date.IsZero() {
			continue
		}
		for oi < len(outflows) && (outflows[oi].Date.IsZero() || outflows[oi].Date.Before(inf.Date)) {
			oi++
		}
		if oi >= len(outflows) {
			break
		}
		totalDays += outflows[oi].Date.Sub(inf.Date).Hours() / 24
		pairs++
		oi++
	}
	if pairs == 0 {
		return 0, false
	}
	return totalDays / float64(pairs), true
}

func contractProfile(snap *graph.Snapshot, companyID string) (int, float64) {
	seen := make(map[string]struct{})
	total := 0.0
	add := func(contractID string) {
		if _, dup := seen[contractID]; dup {
			return
		}
		seen[contractID] = struct{}{}
		if node, ok := snap.Node(contractID); ok {
			total += node.Attrs.Float("amount")
		}
	}
	for _, e := range snap.OutEdges(companyID) {
		if e.Type.IsParty() {
			add(e.TargetID)
		}
	}
	for _, e := range snap.InEdgesByType(companyID, graphtypes.EdgeHasParty) {
		add(e.SourceID)
	}
	if len(seen) == 0 {
		return 0, 0
	}
	return len(seen), total / float64(len(seen))
}

func buildNetworks(snap *graph.Snapshot, reported []risk.ShellFeatures) []risk.ShellNetwork {
	byPerson := make(map[string][]string)
	for _, f := range reported {
		if lp := snap.LegalPersonOf(f.CompanyID); lp != "" {
			byPerson[lp] = append(byPerson[lp], f.CompanyID)
		}
	}

	persons := make([]string, 0, len(byPerson))
	for p, companies := range byPerson {
		if len(companies) >= 2 {
			persons = append(persons, p)
		}
	}
	sort.Strings(persons)

	var networks []risk.ShellNetwork
	for _, p := range persons {
		companies := byPerson[p]
		sort.Strings(companies)
		name := ""
		if node, ok := snap.Node(p); ok {
			name = node.Attrs.Str("name")
		}
		networks = append(networks, risk.ShellNetwork{
			PersonID:    p,
			LegalPerson: name,
			Companies:   companies,
			NetworkSize: len(companies),
		})
	}
	return networks
}
