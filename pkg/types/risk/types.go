// Package risk defines the scenario result shapes returned across the output
// boundary: ranked, typed result rows plus a metadata block per scenario.
package risk

import "time"

// Scenario identifies one analysis scenario.
type Scenario string

const (
	ScenarioFraudRank        Scenario = "fraud_rank"
	ScenarioCircularTrade    Scenario = "circular_trade"
	ScenarioCollusion        Scenario = "collusion"
	ScenarioShellCompany     Scenario = "shell_company"
	ScenarioExternalRiskRank Scenario = "external_risk_rank"
	ScenarioPerformRisk      Scenario = "perform_risk"
)

// AllScenarios lists every supported scenario.
var AllScenarios = []Scenario{
	ScenarioFraudRank, ScenarioCircularTrade, ScenarioCollusion,
	ScenarioShellCompany, ScenarioExternalRiskRank, ScenarioPerformRisk,
}

// IsValid reports whether s names a supported scenario.
func (s Scenario) IsValid() bool {
	for _, known := range AllScenarios {
		if s == known {
			return true
		}
	}
	return false
}

func (s Scenario) String() string { return string(s) }

// Level classifies a propagated score.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
	LevelNormal Level = "normal"
)

// Meta is the metadata block attached to every scenario response.
type Meta struct {
	RunID       string        `json:"run_id"`
	Scenario    Scenario      `json:"scenario"`
	NodeCount   int           `json:"node_count"`
	EdgeCount   int           `json:"edge_count"`
	SeedCount   int           `json:"seed_count"`
	ResultCount int           `json:"result_count"`
	Duration    time.Duration `json:"duration_ns"`
	Iterations  int           `json:"iterations,omitempty"`
	Converged   bool          `json:"converged,omitempty"`
	CacheHit    bool          `json:"cache_hit,omitempty"`
	// Error carries the per-scenario error note when a detector-local failure
	// produced partial results.
	Error string `json:"error,omitempty"`
}

// CompanyScore is a company-keyed propagation result row.
type CompanyScore struct {
	CompanyID   string       `json:"company_id"`
	CompanyName string       `json:"company_name,omitempty"`
	LegalPerson string       `json:"legal_person,omitempty"`
	CreditCode  string       `json:"credit_code,omitempty"`
	Score       float64      `json:"score"`
	Level       Level        `json:"level"`
	Events      []EventBrief `json:"events,omitempty"`
}

// ContractScore is a contract-keyed propagation result row with resolved
// party identities for presentation.
type ContractScore struct {
	ContractID   string       `json:"contract_id"`
	ContractName string       `json:"contract_name,omitempty"`
	Score        float64      `json:"score"`
	Level        Level        `json:"level"`
	Parties      []string     `json:"parties,omitempty"`
	Events       []EventBrief `json:"events,omitempty"`
}

// EventBrief summarizes a seeding risk event on a result row.
type EventBrief struct {
	Type    string  `json:"type"`
	EventID string  `json:"event_id"`
	EventNo string  `json:"event_no,omitempty"`
	Score   float64 `json:"score"`
}

// CircularPattern is one disperse/converge fund-flow finding.
type CircularPattern struct {
	CentralCompany     string   `json:"central_company"`
	DispersedCompanies []string `json:"dispersed_companies"`
	RelatedCompanies   []string `json:"related_companies"`
	TotalOutflow       float64  `json:"total_outflow"`
	TotalInflow        float64  `json:"total_inflow"`
	Similarity         float64  `json:"similarity"`
	InterTradeCount    int      `json:"inter_trade_count"`
	TimeSpanDays       int      `json:"time_span_days"`
	RiskScore          float64  `json:"risk_score"`
}

// CollusionCluster is one suspicious bidding cluster.
type CollusionCluster struct {
	NetworkID        string   `json:"network_id"`
	Companies        []string `json:"companies"`
	Size             int      `json:"size"`
	RiskScore        float64  `json:"risk_score"`
	RotationScore    float64  `json:"rotation_score"`
	AmountSimilarity float64  `json:"amount_similarity"`
	ThresholdRatio   float64  `json:"threshold_ratio"`
	NetworkDensity   float64  `json:"network_density"`
	StrongRelation   bool     `json:"strong_relation"`
	ContractCount    int      `json:"contract_count"`
	TotalAmount      float64  `json:"total_amount"`
	AvgAmount        float64  `json:"avg_amount"`
}

// ShellFeatures is the per-company shell-company feature vector and score.
type ShellFeatures struct {
	CompanyID              string  `json:"company_id"`
	CompanyName            string  `json:"company_name,omitempty"`
	LegalPerson            string  `json:"legal_person,omitempty"`
	PassThroughRatio       float64 `json:"pass_through_ratio"`
	VelocityDays           float64 `json:"transaction_velocity_days"`
	PartnerDiversity       float64 `json:"partner_diversity"`
	TransactionCount       int     `json:"total_transaction_count"`
	TotalInflow            float64 `json:"total_inflow"`
	TotalOutflow           float64 `json:"total_outflow"`
	DegreeCentrality       int     `json:"degree_centrality"`
	LegalPersonCompanyCount int    `json:"legal_person_company_count"`
	ContractCount          int     `json:"contract_count"`
	ShellScore             float64 `json:"shell_score"`
}

// ShellNetwork groups independently high-scoring companies sharing a legal
// representative.
type ShellNetwork struct {
	PersonID    string   `json:"person_id"`
	LegalPerson string   `json:"legal_person,omitempty"`
	Companies   []string `json:"companies"`
	NetworkSize int      `json:"network_size"`
}

// OverdueKind classifies an overdue transaction.
type OverdueKind string

const (
	OverduePayment  OverdueKind = "payment"
	OverdueDelivery OverdueKind = "delivery"
	OverdueBoth     OverdueKind = "payment+delivery"
)

// OverdueTransaction is one overdue finding feeding the contagion score.
type OverdueTransaction struct {
	TransactionID string      `json:"transaction_id"`
	TransactionNo string      `json:"transaction_no,omitempty"`
	ContractID    string      `json:"contract_id,omitempty"`
	ContractName  string      `json:"contract_name,omitempty"`
	CompanyID     string      `json:"company_id"`
	Amount        float64     `json:"amount"`
	PaidAmount    float64     `json:"paid_amount"`
	DueDate       time.Time   `json:"due_date"`
	OverdueDays   int         `json:"overdue_days"`
	Kind          OverdueKind `json:"kind"`
}

// RiskContract is a contract sharing a normalized subject with an
// overdue-linked contract.
type RiskContract struct {
	ContractID   string  `json:"contract_id"`
	ContractName string  `json:"contract_name,omitempty"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status,omitempty"`
	HasOverdue   bool    `json:"has_overdue"`
	SubjectName  string  `json:"subject_name,omitempty"`
}

// OverdueCompanyRisk is the per-company overdue-contagion result row.
type OverdueCompanyRisk struct {
	CompanyID     string         `json:"company_id"`
	CompanyName   string         `json:"company_name,omitempty"`
	LegalPerson   string         `json:"legal_person,omitempty"`
	Score         float64        `json:"score"`
	OverdueCount  int            `json:"overdue_count"`
	RiskContracts []RiskContract `json:"risk_contracts,omitempty"`
}

// FraudRankResult is the litigation-contagion scenario response payload.
type FraudRankResult struct {
	Companies []CompanyScore  `json:"companies"`
	Contracts []ContractScore `json:"contracts,omitempty"`
	Meta      Meta            `json:"meta"`
}

// CircularTradeResult is the circular-trade scenario response payload.
type CircularTradeResult struct {
	Patterns []CircularPattern `json:"patterns"`
	Meta     Meta              `json:"meta"`
}

// CollusionResult is the collusion scenario response payload.
type CollusionResult struct {
	Clusters []CollusionCluster `json:"clusters"`
	Meta     Meta               `json:"meta"`
}

// ShellCompanyResult is the shell-company scenario response payload.
type ShellCompanyResult struct {
	Companies []ShellFeatures `json:"companies"`
	Networks  []ShellNetwork  `json:"networks,omitempty"`
	Meta      Meta            `json:"meta"`
}

// ExternalRiskResult is the external-event contagion scenario response payload.
type ExternalRiskResult struct {
	Companies []CompanyScore `json:"companies"`
	Meta      Meta           `json:"meta"`
}

// PerformRiskResult is the overdue-contagion scenario response payload.
type PerformRiskResult struct {
	Companies []OverdueCompanyRisk `json:"companies"`
	Overdue   []OverdueTransaction `json:"overdue_transactions,omitempty"`
	Meta      Meta                 `json:"meta"`
}
