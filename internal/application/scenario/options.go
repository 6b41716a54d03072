package scenario

import (
	"time"

	"github.com/corpgraph/CorpRisk-Insight/internal/config"
)

// Options is the per-request configuration override set. Nil pointers and nil
// maps fall back to the engine configuration; callers never see partially
// applied options.
type Options struct {
	EdgeWeights        map[string]float64 `json:"edge_weights,omitempty"`
	EventTypeWeights   map[string]float64 `json:"event_type_weights,omitempty"`
	StatusWeights      map[string]float64 `json:"status_weights,omitempty"`
	FeatureWeights     map[string]float64 `json:"feature_weights,omitempty"`
	AmountThreshold    *float64           `json:"amount_threshold,omitempty"`
	TopN               *int               `json:"top_n,omitempty"`
	TimeWindowDays     *int               `json:"time_window_days,omitempty"`
	MinClusterSize     *int               `json:"min_cluster_size,omitempty"`
	RiskScoreThreshold *float64           `json:"risk_score_threshold,omitempty"`
	ApprovalThresholds []float64          `json:"approval_thresholds,omitempty"`
	ThresholdMargin    *float64           `json:"threshold_margin,omitempty"`
	Damping            *float64           `json:"damping,omitempty"`
	MaxIter            *int               `json:"max_iter,omitempty"`
	EvalDate           *time.Time         `json:"eval_date,omitempty"`
	RiskType           string             `json:"risk_type,omitempty"`
	ForceRecompute     bool               `json:"force_recompute,omitempty"`
}

// effective merges the request overrides over the configured engine defaults.
func (o Options) effective(base config.EngineConfig) config.EngineConfig {
	cfg := base

	if len(o.EdgeWeights) > 0 {
		merged := make(map[string]float64, len(cfg.EdgeWeights)+len(o.EdgeWeights))
		for k, v := range cfg.EdgeWeights {
			merged[k] = v
		}
		for k, v := range o.EdgeWeights {
			merged[k] = v
		}
		cfg.EdgeWeights = merged
	}
	if o.AmountThreshold != nil {
		cfg.AmountThreshold = *o.AmountThreshold
	}
	if o.TopN != nil {
		cfg.TopN = *o.TopN
	}
	if o.TimeWindowDays != nil {
		cfg.TimeWindowDays = *o.TimeWindowDays
	}
	if o.MinClusterSize != nil {
		cfg.MinClusterSize = *o.MinClusterSize
	}
	if o.RiskScoreThreshold != nil {
		cfg.RiskScoreThreshold = *o.RiskScoreThreshold
	}
	if len(o.ApprovalThresholds) > 0 {
		cfg.ApprovalThresholds = o.ApprovalThresholds
	}
	if o.ThresholdMargin != nil {
		cfg.ThresholdMargin = *o.ThresholdMargin
	}
	if o.Damping != nil {
		cfg.Damping = *o.Damping
		cfg.ExternalDamping = *o.Damping
	}
	if o.MaxIter != nil {
		cfg.MaxIterations = *o.MaxIter
	}
	return cfg
}
