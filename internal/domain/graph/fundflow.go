package graph

import (
	"time"

	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

// Transfer is a materialized fund movement: the payer reaches the Transaction
// node through a PAYS edge, the payee leaves it through a RECEIVES edge.
type Transfer struct {
	TxnID  string
	TxnNo  string
	From   string
	To     string
	Amount float64
	Date   time.Time
	Attrs  graphtypes.Attributes
}

// Transfers flattens every fully-connected Transaction node into a Transfer.
// Transactions missing either endpoint are skipped; they carry no flow.
func (s *Snapshot) Transfers() []Transfer {
	txns := s.NodesOfKind(graphtypes.KindTransaction)
	out := make([]Transfer, 0, len(txns))
	for _, txn := range txns {
		payers := s.InEdgesByType(txn.ID, graphtypes.EdgePays)
		payees := s.OutEdgesByType(txn.ID, graphtypes.EdgeReceives)
		if len(payers) == 0 || len(payees) == 0 {
			continue
		}
		date, _ := txn.Attrs.Date("transaction_date")
		for _, p := range payers {
			for _, r := range payees {
				out = append(out, Transfer{
					TxnID:  txn.ID,
					TxnNo:  txn.Attrs.Str("transaction_no"),
					From:   p.SourceID,
					To:     r.TargetID,
					Amount: txn.Attrs.Float("amount"),
					Date:   date,
					Attrs:  txn.Attrs,
				})
			}
		}
	}
	return out
}

// TransfersByCompany indexes transfers by payer and payee.
type TransfersByCompany struct {
	Outgoing map[string][]Transfer
	Incoming map[string][]Transfer
}

func (s *Snapshot) IndexTransfers() TransfersByCompany {
	idx := TransfersByCompany{
		Outgoing: make(map[string][]Transfer),
		Incoming: make(map[string][]Transfer),
	}
	for _, t := range s.Transfers() {
		idx.Outgoing[t.From] = append(idx.Outgoing[t.From], t)
		idx.Incoming[t.To] = append(idx.Incoming[t.To], t)
	}
	return idx
}

// LegalPersonOf returns the id of the Person holding the LEGAL_PERSON edge
// into the company, or "" when none exists.
func (s *Snapshot) LegalPersonOf(companyID string) string {
	for _, e := range s.InEdgesByType(companyID, graphtypes.EdgeLegalPerson) {
		return e.SourceID
	}
	return ""
}

// CompaniesOfLegalPerson returns every company the person is legal
// representative of.
func (s *Snapshot) CompaniesOfLegalPerson(personID string) []string {
	var out []string
	for _, e := range s.OutEdgesByType(personID, graphtypes.EdgeLegalPerson) {
		out = append(out, e.TargetID)
	}
	return out
}
