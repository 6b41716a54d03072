// Package scenario orchestrates analysis invocations: load a snapshot for
// the requested scope, resolve weights, run the scenario's engine or
// detector, and assemble ranked results with a metadata block.
package scenario

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/circular"
	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/collusion"
	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/overdue"
	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/propagation"
	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/shell"
	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

// RecordSource supplies the node and edge record sets for a scope. The
// engine treats the records as read-only and assumes nothing about the
// backing store's query language.
type RecordSource interface {
	FetchRecords(ctx context.Context, scope graphtypes.Scope) ([]graphtypes.NodeRecord, []graphtypes.EdgeRecord, error)
}

// EventPublisher announces completed analysis runs. Publish failures are
// logged, never surfaced to the caller.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, meta risk.Meta) error
}

// Metrics records per-scenario run observations.
type Metrics interface {
	ObserveAnalysis(scenario string, duration time.Duration, resultCount int, failed bool)
	ObserveWeightCache(hit bool)
}

// Service runs the six analysis scenarios.
type Service struct {
	cfg       config.EngineConfig
	source    RecordSource
	resolver  *weights.Resolver
	engine    *propagation.Engine
	circular  *circular.Detector
	collusion *collusion.Detector
	shell     *shell.Scorer
	overdue   *overdue.Scorer
	publisher EventPublisher
	metrics   Metrics
	log       logging.Logger
}

// NewService wires a scenario service. publisher and metrics may be nil.
func NewService(cfg config.EngineConfig, source RecordSource, resolver *weights.Resolver, publisher EventPublisher, metrics Metrics, log logging.Logger) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("scenario")
	return &Service{
		cfg:       cfg,
		source:    source,
		resolver:  resolver,
		engine:    propagation.NewEngine(log),
		circular:  circular.NewDetector(log),
		collusion: collusion.NewDetector(log),
		shell:     shell.NewScorer(log),
		overdue:   overdue.NewScorer(log),
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

// run is the shared per-invocation context. A pre-resolved table set by
// RunAll lets sibling scenarios skip their own weight resolution.
type run struct {
	meta     risk.Meta
	snap     *graph.Snapshot
	cfg      config.EngineConfig
	start    time.Time
	table    weights.Table
	tableHit bool
}

// load fetches the scoped records, builds the snapshot, and settles the
// effective engine configuration for the request.
func (s *Service) load(ctx context.Context, scope graphtypes.Scope, opts Options) (*graph.Snapshot, config.EngineConfig, error) {
	nodes, edges, err := s.source.FetchRecords(ctx, scope)
	if err != nil {
		return nil, config.EngineConfig{}, errors.Wrap(err, errors.ErrCodeSnapshotLoadFailed, "record fetch failed")
	}
	snap, err := graph.NewSnapshot(nodes, edges)
	if err != nil {
		return nil, config.EngineConfig{}, err
	}
	cfg := opts.effective(s.cfg)
	if err := validateEngineConfig(cfg); err != nil {
		return nil, config.EngineConfig{}, err
	}
	return snap, cfg, nil
}

func (s *Service) newRun(sc risk.Scenario, snap *graph.Snapshot, cfg config.EngineConfig) *run {
	return &run{
		meta: risk.Meta{
			RunID:     uuid.NewString(),
			Scenario:  sc,
			NodeCount: snap.NodeCount(),
			EdgeCount: snap.EdgeCount(),
		},
		snap:  snap,
		cfg:   cfg,
		start: time.Now(),
	}
}

func (s *Service) begin(ctx context.Context, sc risk.Scenario, scope graphtypes.Scope, opts Options) (*run, error) {
	snap, cfg, err := s.load(ctx, scope, opts)
	if err != nil {
		return nil, err
	}
	return s.newRun(sc, snap, cfg), nil
}

func (s *Service) finish(ctx context.Context, r *run, resultCount int, runErr error) {
	r.meta.Duration = time.Since(r.start)
	r.meta.ResultCount = resultCount

	failed := runErr != nil
	if s.metrics != nil {
		s.metrics.ObserveAnalysis(r.meta.Scenario.String(), r.meta.Duration, resultCount, failed)
	}
	fields := []logging.Field{
		logging.String("run_id", r.meta.RunID),
		logging.String("scenario", r.meta.Scenario.String()),
		logging.Int("nodes", r.meta.NodeCount),
		logging.Int("edges", r.meta.EdgeCount),
		logging.Int("results", resultCount),
		logging.Duration("duration", r.meta.Duration),
	}
	if failed {
		s.log.Error("analysis run failed", append(fields, logging.Err(runErr))...)
		return
	}
	s.log.Info("analysis run completed", fields...)

	if s.publisher != nil {
		if err := s.publisher.PublishAnalysisCompleted(ctx, r.meta); err != nil {
			s.log.Warn("completion event publish failed", logging.Err(err))
		}
	}
}

// resolveWeights resolves the edge weight table and records the cache
// observation on the run meta. A run carrying a pre-resolved table reuses it
// without touching the resolver or the cache metrics again.
func (s *Service) resolveWeights(ctx context.Context, r *run, force bool) (weights.Table, error) {
	if r.table != nil {
		r.meta.CacheHit = r.tableHit
		return r.table, nil
	}
	resolver := s.resolver
	if resolver == nil {
		return nil, errors.New(errors.ErrCodeWeightResolveFailed, "weight resolver not configured")
	}
	if len(r.cfg.EdgeWeights) > 0 {
		// per-request edge weight overrides need a resolver carrying them
		resolver = resolver.WithConfig(r.cfg)
	}
	table, hit, err := resolver.Resolve(ctx, r.snap, force)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeWeightResolveFailed, "weight resolution failed")
	}
	r.meta.CacheHit = hit
	if s.metrics != nil {
		s.metrics.ObserveWeightCache(hit)
	}
	return table, nil
}

// FraudRank runs litigation contagion: seed contracts from legal events,
// propagate, and rank both contracts and their party companies.
func (s *Service) FraudRank(ctx context.Context, scope graphtypes.Scope, opts Options) (*risk.FraudRankResult, error) {
	r, err := s.begin(ctx, risk.ScenarioFraudRank, scope, opts)
	if err != nil {
		return nil, err
	}
	return s.fraudRank(ctx, r, opts)
}

func (s *Service) fraudRank(ctx context.Context, r *run, opts Options) (*risk.FraudRankResult, error) {
	out := &risk.FraudRankResult{}
	defer func() { out.Meta = r.meta }()

	seeder := propagation.LitigationSeeder{Weights: propagation.SeedWeights{
		EventTypeWeights: opts.EventTypeWeights,
		StatusWeights:    opts.StatusWeights,
		AmountThreshold:  r.cfg.AmountThreshold,
	}}
	seeds := seeder.Seed(r.snap)
	r.meta.SeedCount = len(seeds)
	if len(seeds) == 0 {
		s.finish(ctx, r, 0, nil)
		return out, nil
	}

	table, err := s.resolveWeights(ctx, r, opts.ForceRecompute)
	if err != nil {
		s.finish(ctx, r, 0, err)
		return nil, err
	}

	propRes, err := s.engine.Run(ctx, r.snap, table, seeds, propagation.Params{
		Damping:       r.cfg.Damping,
		MaxIterations: r.cfg.MaxIterations,
		Tolerance:     r.cfg.Tolerance,
	})
	if err != nil {
		s.finish(ctx, r, 0, err)
		return nil, err
	}
	r.meta.Iterations = propRes.Iterations
	r.meta.Converged = propRes.Converged

	for id, score := range propRes.Scores {
		node, ok := r.snap.Node(id)
		if !ok {
			continue
		}
		switch node.Kind {
		case graphtypes.KindCompany:
			out.Companies = append(out.Companies, companyScore(node, score, propagation.CompanyThresholds))
		case graphtypes.KindContract:
			out.Contracts = append(out.Contracts, risk.ContractScore{
				ContractID:   id,
				ContractName: node.Attrs.Str("name"),
				Score:        score,
				Level:        propagation.CompanyThresholds.Level(score),
				Parties:      propagation.PartyCompanies(r.snap, id),
				Events:       seeder.EventsFor(r.snap, id),
			})
		}
	}
	out.Companies = rankCompanies(out.Companies, r.cfg.TopN)
	sort.Slice(out.Contracts, func(i, j int) bool {
		if out.Contracts[i].Score != out.Contracts[j].Score {
			return out.Contracts[i].Score > out.Contracts[j].Score
		}
		return out.Contracts[i].ContractID < out.Contracts[j].ContractID
	})
	if r.cfg.TopN > 0 && len(out.Contracts) > r.cfg.TopN {
		out.Contracts = out.Contracts[:r.cfg.TopN]
	}

	s.finish(ctx, r, len(out.Companies)+len(out.Contracts), nil)
	return out, nil
}

// ExternalRiskRank runs the external-event contagion variant with its lower
// damping and thresholds.
func (s *Service) ExternalRiskRank(ctx context.Context, scope graphtypes.Scope, opts Options) (*risk.ExternalRiskResult, error) {
	r, err := s.begin(ctx, risk.ScenarioExternalRiskRank, scope, opts)
	if err != nil {
		return nil, err
	}
	return s.externalRiskRank(ctx, r, opts)
}

func (s *Service) externalRiskRank(ctx context.Context, r *run, opts Options) (*risk.ExternalRiskResult, error) {
	out := &risk.ExternalRiskResult{}
	defer func() { out.Meta = r.meta }()

	seeder := propagation.ExternalEventSeeder{
		Weights: propagation.SeedWeights{
			StatusWeights:   opts.StatusWeights,
			AmountThreshold: r.cfg.AmountThreshold,
		},
		RiskType: opts.RiskType,
	}
	seeds := seeder.Seed(r.snap)
	r.meta.SeedCount = len(seeds)
	if len(seeds) == 0 {
		s.finish(ctx, r, 0, nil)
		return out, nil
	}

	table, err := s.resolveWeights(ctx, r, opts.ForceRecompute)
	if err != nil {
		s.finish(ctx, r, 0, err)
		return nil, err
	}

	damping := r.cfg.ExternalDamping
	if opts.Damping != nil {
		damping = *opts.Damping
	}
	propRes, err := s.engine.Run(ctx, r.snap, table, seeds, propagation.Params{
		Damping:       damping,
		MaxIterations: r.cfg.MaxIterations,
		Tolerance:     r.cfg.Tolerance,
	})
	if err != nil {
		s.finish(ctx, r, 0, err)
		return nil, err
	}
	r.meta.Iterations = propRes.Iterations
	r.meta.Converged = propRes.Converged

	for id, score := range propRes.Scores {
		node, ok := r.snap.Node(id)
		if !ok || node.Kind != graphtypes.KindCompany {
			continue
		}
		cs := companyScore(node, score, propagation.ExternalThresholds)
		cs.Events = seeder.EventsFor(r.snap, id)
		out.Companies = append(out.Companies, cs)
	}
	out.Companies = rankCompanies(out.Companies, r.cfg.TopN)

	s.finish(ctx, r, len(out.Companies), nil)
	return out, nil
}

// CircularTrade runs the disperse/converge fund-flow detector.
func (s *Service) CircularTrade(ctx context.Context, scope graphtypes.Scope, opts Options) (*risk.CircularTradeResult, error) {
	r, err := s.begin(ctx, risk.ScenarioCircularTrade, scope, opts)
	if err != nil {
		return nil, err
	}
	return s.circularTrade(ctx, r)
}

func (s *Service) circularTrade(ctx context.Context, r *run) (*risk.CircularTradeResult, error) {
	out := &risk.CircularTradeResult{}
	defer func() { out.Meta = r.meta }()

	var err error
	out.Patterns, err = s.circular.Detect(ctx, r.snap, circular.Params{
		AmountThreshold: r.cfg.AmountThreshold,
		TimeWindowDays:  r.cfg.TimeWindowDays,
		TopN:            r.cfg.TopN,
	})
	s.finish(ctx, r, len(out.Patterns), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Collusion runs the bidding-cluster detector.
func (s *Service) Collusion(ctx context.Context, scope graphtypes.Scope, opts Options) (*risk.CollusionResult, error) {
	r, err := s.begin(ctx, risk.ScenarioCollusion, scope, opts)
	if err != nil {
		return nil, err
	}
	return s.collusionRun(ctx, r, opts)
}

func (s *Service) collusionRun(ctx context.Context, r *run, opts Options) (*risk.CollusionResult, error) {
	out := &risk.CollusionResult{}
	defer func() { out.Meta = r.meta }()

	var err error
	out.Clusters, err = s.collusion.Detect(ctx, r.snap, collusion.Params{
		MinClusterSize:     r.cfg.MinClusterSize,
		RiskScoreThreshold: r.cfg.RiskScoreThreshold,
		ApprovalThresholds: r.cfg.ApprovalThresholds,
		ThresholdMargin:    r.cfg.ThresholdMargin,
		TopN:               r.cfg.TopN,
		Weights:            collusionWeights(opts.FeatureWeights),
	})
	s.finish(ctx, r, len(out.Clusters), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ShellCompany runs the conduit-behavior scorer.
func (s *Service) ShellCompany(ctx context.Context, scope graphtypes.Scope, opts Options) (*risk.ShellCompanyResult, error) {
	r, err := s.begin(ctx, risk.ScenarioShellCompany, scope, opts)
	if err != nil {
		return nil, err
	}
	return s.shellCompany(ctx, r)
}

func (s *Service) shellCompany(ctx context.Context, r *run) (*risk.ShellCompanyResult, error) {
	out := &risk.ShellCompanyResult{}
	defer func() { out.Meta = r.meta }()

	var err error
	out.Companies, out.Networks, err = s.shell.Score(ctx, r.snap, shell.Params{
		MinScore: r.cfg.ShellMinScore,
		TopN:     r.cfg.TopN,
	})
	s.finish(ctx, r, len(out.Companies), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PerformRisk runs the overdue-contagion scorer.
func (s *Service) PerformRisk(ctx context.Context, scope graphtypes.Scope, opts Options) (*risk.PerformRiskResult, error) {
	r, err := s.begin(ctx, risk.ScenarioPerformRisk, scope, opts)
	if err != nil {
		return nil, err
	}
	return s.performRisk(ctx, r, opts)
}

func (s *Service) performRisk(ctx context.Context, r *run, opts Options) (*risk.PerformRiskResult, error) {
	out := &risk.PerformRiskResult{}
	defer func() { out.Meta = r.meta }()

	params := overdue.Params{
		AmountThreshold: r.cfg.AmountThreshold,
		TopN:            r.cfg.TopN,
	}
	if opts.EvalDate != nil {
		params.EvalDate = *opts.EvalDate
	}
	var err error
	out.Companies, out.Overdue, err = s.overdue.Score(ctx, r.snap, params)
	s.finish(ctx, r, len(out.Companies), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AllResult aggregates one run of every scenario. Detector-local failures
// surface as the per-scenario Meta.Error note; sibling scenarios are
// unaffected.
type AllResult struct {
	FraudRank     *risk.FraudRankResult     `json:"fraud_rank"`
	CircularTrade *risk.CircularTradeResult `json:"circular_trade"`
	Collusion     *risk.CollusionResult     `json:"collusion"`
	ShellCompany  *risk.ShellCompanyResult  `json:"shell_company"`
	ExternalRisk  *risk.ExternalRiskResult  `json:"external_risk_rank"`
	PerformRisk   *risk.PerformRiskResult   `json:"perform_risk"`
}

// RunAll executes every scenario concurrently over one shared snapshot and
// one resolved weight table. Only a snapshot-level failure aborts the whole
// call.
func (s *Service) RunAll(ctx context.Context, scope graphtypes.Scope, opts Options) (*AllResult, error) {
	snap, cfg, err := s.load(ctx, scope, opts)
	if err != nil {
		return nil, err
	}

	// resolve once up front; on failure the table stays nil and the
	// propagation scenarios retry and surface the error individually
	shared := &run{snap: snap, cfg: cfg}
	table, terr := s.resolveWeights(ctx, shared, opts.ForceRecompute)
	if terr != nil {
		table = nil
	}
	derive := func(sc risk.Scenario) *run {
		r := s.newRun(sc, snap, cfg)
		r.table = table
		r.tableHit = shared.meta.CacheHit
		return r
	}

	out := &AllResult{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out.FraudRank = isolate(gctx, risk.ScenarioFraudRank, func(c context.Context) (*risk.FraudRankResult, error) {
			return s.fraudRank(c, derive(risk.ScenarioFraudRank), opts)
		})
		return nil
	})
	g.Go(func() error {
		out.CircularTrade = isolate(gctx, risk.ScenarioCircularTrade, func(c context.Context) (*risk.CircularTradeResult, error) {
			return s.circularTrade(c, derive(risk.ScenarioCircularTrade))
		})
		return nil
	})
	g.Go(func() error {
		out.Collusion = isolate(gctx, risk.ScenarioCollusion, func(c context.Context) (*risk.CollusionResult, error) {
			return s.collusionRun(c, derive(risk.ScenarioCollusion), opts)
		})
		return nil
	})
	g.Go(func() error {
		out.ShellCompany = isolate(gctx, risk.ScenarioShellCompany, func(c context.Context) (*risk.ShellCompanyResult, error) {
			return s.shellCompany(c, derive(risk.ScenarioShellCompany))
		})
		return nil
	})
	g.Go(func() error {
		out.ExternalRisk = isolate(gctx, risk.ScenarioExternalRiskRank, func(c context.Context) (*risk.ExternalRiskResult, error) {
			return s.externalRiskRank(c, derive(risk.ScenarioExternalRiskRank), opts)
		})
		return nil
	})
	g.Go(func() error {
		out.PerformRisk = isolate(gctx, risk.ScenarioPerformRisk, func(c context.Context) (*risk.PerformRiskResult, error) {
			return s.performRisk(c, derive(risk.ScenarioPerformRisk), opts)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// isolate converts a scenario failure into a result carrying the error note.
func isolate[T any](ctx context.Context, sc risk.Scenario, f func(context.Context) (*T, error)) *T {
	res, err := f(ctx)
	if err != nil {
		res = new(T)
		setMetaError(res, sc, err)
	}
	return res
}

// setMetaError fills the Meta of any scenario result type.
func setMetaError(res interface{}, sc risk.Scenario, err error) {
	meta := risk.Meta{Scenario: sc, Error: errors.GetCode(err).String() + ": " + err.Error()}
	switch r := res.(type) {
	case *risk.FraudRankResult:
		r.Meta = meta
	case *risk.CircularTradeResult:
		r.Meta = meta
	case *risk.CollusionResult:
		r.Meta = meta
	case *risk.ShellCompanyResult:
		r.Meta = meta
	case *risk.ExternalRiskResult:
		r.Meta = meta
	case *risk.PerformRiskResult:
		r.Meta = meta
	}
}

func companyScore(node *graph.Node, score float64, ths propagation.Thresholds) risk.CompanyScore {
	return risk.CompanyScore{
		CompanyID:   node.ID,
		CompanyName: node.Attrs.Str("name"),
		LegalPerson: node.Attrs.Str("legal_person"),
		CreditCode:  node.Attrs.Str("credit_code"),
		Score:       score,
		Level:       ths.Level(score),
	}
}

func rankCompanies(list []risk.CompanyScore, topN int) []risk.CompanyScore {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].CompanyID < list[j].CompanyID
	})
	if topN > 0 && len(list) > topN {
		list = list[:topN]
	}
	return list
}

func collusionWeights(fw map[string]float64) collusion.FactorWeights {
	if len(fw) == 0 {
		return collusion.FactorWeights{}
	}
	w := collusion.FactorWeights{}
	if v, ok := fw["rotation"]; ok {
		w.Rotation = v
	}
	if v, ok := fw["amount_similarity"]; ok {
		w.AmountSimilarity = v
	}
	if v, ok := fw["threshold_ratio"]; ok {
		w.ThresholdRatio = v
	}
	if v, ok := fw["density"]; ok {
		w.Density = v
	}
	if v, ok := fw["strong_bonus"]; ok {
		w.StrongBonus = v
	}
	return w
}

func validateEngineConfig(cfg config.EngineConfig) error {
	for typ, w := range cfg.EdgeWeights {
		if w < 0 || w > 1 {
			return errors.New(errors.ErrCodeConfigWeightInvalid, "edge weight out of range").WithDetail("type=" + typ)
		}
	}
	if cfg.DefaultEdgeWeight < 0 || cfg.DefaultEdgeWeight > 1 {
		return errors.New(errors.ErrCodeConfigWeightInvalid, "default edge weight out of range")
	}
	if cfg.AmountThreshold < 0 {
		return errors.New(errors.ErrCodeConfigThresholdInvalid, "amount threshold must be non-negative")
	}
	return nil
}
