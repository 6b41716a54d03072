// Package overdue scores companies on overdue-payment contagion: overdue
// transactions, contracts sharing a subject with overdue-linked contracts,
// and the outstanding amount relative to a threshold.
package overdue

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

// Params bounds one scoring pass. A zero EvalDate means "now".
type Params struct {
	AmountThreshold float64
	SeverityPower   float64
	EvalDate        time.Time
	TopN            int
}

type Scorer struct {
	log logging.Logger
}

func NewScorer(log logging.Logger) *Scorer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Scorer{log: log.Named("overdue")}
}

// Score finds overdue transactions, attributes each to its paying company,
// expands to same-subject contracts of the company and its direct trading or
// ownership neighbors, and composes the per-company contagion score.
func (s *Scorer) Score(ctx context.Context, snap *graph.Snapshot, p Params) ([]risk.OverdueCompanyRisk, []risk.OverdueTransaction, error) {
	if p.AmountThreshold <= 0 {
		return nil, nil, errors.New(errors.ErrCodeConfigThresholdInvalid, "amount threshold must be positive")
	}
	if p.SeverityPower <= 0 {
		p.SeverityPower = 0.7
	}
	evalDate := p.EvalDate
	if evalDate.IsZero() {
		evalDate = time.Now()
	}

	overdue := findOverdue(snap, evalDate)

	byCompany := make(map[string][]risk.OverdueTransaction)
	for _, o := range overdue {
		byCompany[o.CompanyID] = append(byCompany[o.CompanyID], o)
	}

	var results []risk.OverdueCompanyRisk
	for companyID, txns := range byCompany {
		select {
		case <-ctx.Done():
			return nil, nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "overdue scoring cancelled")
		default:
		}
		results = append(results, s.scoreCompany(snap, companyID, txns, p))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CompanyID < results[j].CompanyID
	})
	if p.TopN > 0 && len(results) > p.TopN {
		results = results[:p.TopN]
	}
	return results, overdue, nil
}

// findOverdue scans transactions whose due date has passed and whose payment
// or performance obligation is unmet. The paying company carries the risk.
func findOverdue(snap *graph.Snapshot, evalDate time.Time) []risk.OverdueTransaction {
	var out []risk.OverdueTransaction
	for _, t := range snap.Transfers() {
		due, ok := t.Attrs.Date("due_date")
		if !ok || !due.Before(evalDate) {
			continue
		}
		amount := t.Attrs.Float("amount")
		paid := t.Attrs.Float("paid_amount")
		unpaid := paid < amount
		unperformed := notComplete(t.Attrs.Str("fperformstatus"))
		if !unpaid && !unperformed {
			continue
		}

		kind := risk.OverduePayment
		switch {
		case unpaid && unperformed:
			kind = risk.OverdueBoth
		case unperformed:
			kind = risk.OverdueDelivery
		}

		contractID := t.Attrs.Str("contract_id")
		contractName := ""
		if node, ok := snap.Node(contractID); ok {
			contractName = node.Attrs.Str("name")
		}
		out = append(out, risk.OverdueTransaction{
			TransactionID: t.TxnID,
			TransactionNo: t.TxnNo,
			ContractID:    contractID,
			ContractName:  contractName,
			CompanyID:     t.From,
			Amount:        amount,
			PaidAmount:    paid,
			DueDate:       due,
			OverdueDays:   int(evalDate.Sub(due).Hours() / 24),
			Kind:          kind,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out
}

func (s *Scorer) scoreCompany(snap *graph.Snapshot, companyID string, txns []risk.OverdueTransaction, p Params) risk.OverdueCompanyRisk {
	maxDays := 0
	totalOutstanding := 0.0
	overdueContracts := make(map[string]struct{})
	subjects := make(map[string]struct{})
	for _, t := range txns {
		if t.OverdueDays > maxDays {
			maxDays = t.OverdueDays
		}
		outstanding := t.Amount - t.PaidAmount
		if outstanding < 0 {
			outstanding = 0
		}
		totalOutstanding += outstanding
		if t.ContractID != "" {
			overdueContracts[t.ContractID] = struct{}{}
			if subj := subjectOf(t.ContractName); subj != "" {
				subjects[subj] = struct{}{}
			}
		}
	}

	riskContracts := collectRiskContracts(snap, companyID, subjects, overdueContracts)

	severity := 1 + math.Min(1, math.Pow(float64(maxDays)/365, p.SeverityPower))*0.5

	countScore := math.Min(float64(len(txns))*0.15*severity, 0.5)
	ratio := 0.0
	if len(riskContracts) > 0 {
		overdueCount := 0
		for _, rc := range riskContracts {
			if rc.HasOverdue {
				overdueCount++
			}
		}
		ratio = float64(overdueCount) / float64(len(riskContracts))
	}
	amountScore := math.Min(totalOutstanding/p.AmountThreshold, 1) * 0.2

	var name, legalPerson string
	if node, ok := snap.Node(companyID); ok {
		name = node.Attrs.Str("name")
		legalPerson = node.Attrs.Str("legal_person")
	}
	return risk.OverdueCompanyRisk{
		CompanyID:     companyID,
		CompanyName:   name,
		LegalPerson:   legalPerson,
		Score:         countScore + ratio*0.3 + amountScore,
		OverdueCount:  len(txns),
		RiskContracts: riskContracts,
	}
}

// collectRiskContracts gathers contracts of the company and its direct
// trading/ownership neighbors whose normalized subject matches an
// overdue-linked contract.
func collectRiskContracts(snap *graph.Snapshot, companyID string, subjects map[string]struct{}, overdueContracts map[string]struct{}) []risk.RiskContract {
	if len(subjects) == 0 {
		return nil
	}

	companies := map[string]struct{}{companyID: {}}
	for _, e := range snap.OutEdges(companyID) {
		switch e.Type {
		case graphtypes.EdgeTradesWith, graphtypes.EdgeIsSupplier, graphtypes.EdgeIsCustomer, graphtypes.EdgeControls:
			companies[e.TargetID] = struct{}{}
		}
	}
	for _, e := range snap.InEdges(companyID) {
		switch e.Type {
		case graphtypes.EdgeTradesWith, graphtypes.EdgeIsSupplier, graphtypes.EdgeIsCustomer, graphtypes.EdgeControls:
			companies[e.SourceID] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var out []risk.RiskContract
	for cid := range companies {
		for _, contractID := range companyContracts(snap, cid) {
			if _, dup := seen[contractID]; dup {
				continue
			}
			seen[contractID] = struct{}{}
			node, ok := snap.Node(contractID)
			if !ok {
				continue
			}
			subj := subjectOf(node.Attrs.Str("name"))
			if _, match := subjects[subj]; !match || subj == "" {
				continue
			}
			_, hasOverdue := overdueContracts[contractID]
			out = append(out, risk.RiskContract{
				ContractID:   contractID,
				ContractName: node.Attrs.Str("name"),
				Amount:       node.Attrs.Float("amount"),
				Status:       node.Attrs.Str("status"),
				HasOverdue:   hasOverdue,
				SubjectName:  subj,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractID < out[j].ContractID })
	return out
}

func companyContracts(snap *graph.Snapshot, companyID string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
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
	return out
}

// subjectOf normalizes a contract name to its subject: the segment before the
// first dash.
func subjectOf(name string) string {
	if name == "" {
		return ""
	}
	if i := strings.IndexAny(name, "-—"); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}

func notComplete(status string) bool {
	switch strings.ToLower(status) {
	case "", "complete", "completed", "done":
		return false
	}
	return true
}
