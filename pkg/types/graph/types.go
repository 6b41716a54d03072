// Package graph defines the node/edge vocabulary and the flat record shapes
// exchanged with the external snapshot store. Nodes are tagged variants (a
// kind enumeration plus an attribute map), never subclassed: detectors switch
// on kind.
package graph

import (
	"strconv"
	"strings"
	"time"
)

// NodeKind tags a node record with its entity class.
type NodeKind string

const (
	KindPerson           NodeKind = "Person"
	KindCompany          NodeKind = "Company"
	KindContract         NodeKind = "Contract"
	KindLegalEvent       NodeKind = "LegalEvent"
	KindTransaction      NodeKind = "Transaction"
	KindAdminPenalty     NodeKind = "AdminPenalty"
	KindBusinessAbnormal NodeKind = "BusinessAbnormal"
)

// AllNodeKinds lists every recognized node kind.
var AllNodeKinds = []NodeKind{
	KindPerson, KindCompany, KindContract, KindLegalEvent,
	KindTransaction, KindAdminPenalty, KindBusinessAbnormal,
}

// IsValid reports whether k is a recognized node kind.
func (k NodeKind) IsValid() bool {
	for _, known := range AllNodeKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k NodeKind) String() string { return string(k) }

// EdgeType labels a directed relationship. The label declares the edge's
// semantic direction; its propagation direction may differ (contract
// participation is reversed by the propagation engine).
type EdgeType string

const (
	EdgeControls          EdgeType = "CONTROLS"            // Company -> Company
	EdgeLegalPerson       EdgeType = "LEGAL_PERSON"        // Person -> Company
	EdgeEmployedBy        EdgeType = "EMPLOYED_BY"         // Person -> Company
	EdgePartyA            EdgeType = "PARTY_A"             // Company -> Contract
	EdgePartyB            EdgeType = "PARTY_B"             // Company -> Contract
	EdgePartyC            EdgeType = "PARTY_C"             // Company -> Contract
	EdgePartyD            EdgeType = "PARTY_D"             // Company -> Contract
	EdgeHasParty          EdgeType = "HAS_PARTY"           // Contract -> Company (logical inverse of PARTY_x)
	EdgeTradesWith        EdgeType = "TRADES_WITH"         // Company -> Company
	EdgeIsSupplier        EdgeType = "IS_SUPPLIER"         // Company -> Company
	EdgeIsCustomer        EdgeType = "IS_CUSTOMER"         // Company -> Company
	EdgePays              EdgeType = "PAYS"                // Company -> Transaction
	EdgeReceives          EdgeType = "RECEIVES"            // Transaction -> Company
	EdgeInvolvedIn        EdgeType = "INVOLVED_IN"         // Company -> LegalEvent
	EdgeRelatedTo         EdgeType = "RELATED_TO"          // Contract -> LegalEvent
	EdgeAdminPenaltyOf    EdgeType = "ADMIN_PENALTY_OF"    // AdminPenalty -> Company
	EdgeBusinessAbnormalOf EdgeType = "BUSINESS_ABNORMAL_OF" // BusinessAbnormal -> Company
)

// AllEdgeTypes lists every recognized edge type.
var AllEdgeTypes = []EdgeType{
	EdgeControls, EdgeLegalPerson, EdgeEmployedBy,
	EdgePartyA, EdgePartyB, EdgePartyC, EdgePartyD, EdgeHasParty,
	EdgeTradesWith, EdgeIsSupplier, EdgeIsCustomer,
	EdgePays, EdgeReceives, EdgeInvolvedIn, EdgeRelatedTo,
	EdgeAdminPenaltyOf, EdgeBusinessAbnormalOf,
}

// IsValid reports whether t is a recognized edge type.
func (t EdgeType) IsValid() bool {
	for _, known := range AllEdgeTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t EdgeType) String() string { return string(t) }

// IsParty reports whether t is one of the contract-participation labels.
func (t EdgeType) IsParty() bool {
	switch t {
	case EdgePartyA, EdgePartyB, EdgePartyC, EdgePartyD:
		return true
	}
	return false
}

// Attributes is the flat attribute map attached to a node or edge record.
// Recognized keys vary by kind; values are strings, numbers, or dates as
// delivered by the store adapter.
type Attributes map[string]interface{}

// Str returns the string attribute under key, or "" when absent.
func (a Attributes) Str(key string) string {
	if v, ok := a[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Float returns the numeric attribute under key, accepting float64, int
// variants, and numeric strings. Missing or unparseable values yield 0.
func (a Attributes) Float(key string) float64 {
	v, ok := a[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// dateLayouts are the accepted attribute date formats, tried in order.
var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006-01-02 15:04:05", time.RFC3339}

// Date returns the date attribute under key. The zero time and false are
// returned when the value is absent or does not parse.
func (a Attributes) Date(key string) (time.Time, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NodeRecord is the flat node shape supplied by the store adapter.
type NodeRecord struct {
	ID    string     `json:"id"`
	Kind  NodeKind   `json:"kind"`
	Attrs Attributes `json:"attrs,omitempty"`
}

// EdgeRecord is the flat edge shape supplied by the store adapter. Multiple
// edges of different types may connect the same endpoint pair.
type EdgeRecord struct {
	Source string     `json:"source"`
	Target string     `json:"target"`
	Type   EdgeType   `json:"type"`
	Attrs  Attributes `json:"attrs,omitempty"`
}

// PruneEdges drops edges with an endpoint outside the node set. Adapters
// call it after node filtering so a scoped fetch never hands the snapshot a
// dangling edge.
func PruneEdges(nodes []NodeRecord, edges []EdgeRecord) []EdgeRecord {
	ids := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}
	out := edges[:0:0]
	for _, e := range edges {
		if _, ok := ids[e.Source]; !ok {
			continue
		}
		if _, ok := ids[e.Target]; !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Scope bounds a snapshot load: an optional company-number list and an
// optional period (a single date or an inclusive [start, end] pair).
type Scope struct {
	CompanyNumbers []string `json:"company_numbers,omitempty"`
	Periods        []string `json:"periods,omitempty"`
}

// TransactionType values carried on Transaction nodes.
const (
	TxnInflow  = "INFLOW"
	TxnOutflow = "OUTFLOW"
)
