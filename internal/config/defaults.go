package config

import "time"

// Default value constants.
const (
	DefaultServerPort = 8080

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jDatabase = "neo4j"

	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultPostgresDB   = "corprisk"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "corprisk:"

	DefaultKafkaTopic = "corprisk.analysis.completed"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Propagation defaults. The external-event variant uses a lower damping
	// so that seeded penalty/anomaly risk dominates propagation.
	DefaultDamping         = 0.85
	DefaultExternalDamping = 0.65
	DefaultMaxIterations   = 100
	DefaultTolerance       = 1e-6

	DefaultAmountThreshold    = 10_000_000
	DefaultTimeWindowDays     = 180
	DefaultMinClusterSize     = 3
	DefaultRiskScoreThreshold = 0.5
	DefaultThresholdMargin    = 0.05
	DefaultShellMinScore      = 0.6
	DefaultTopN               = 50

	DefaultEdgeWeight   = 0.3
	DefaultBusinessWeight   = 0.7
	DefaultSimilarityWeight = 0.3
	DefaultEmbeddingDim     = 32
	DefaultWalkLength       = 10
	DefaultWalksPerNode     = 20
)

// DefaultEdgeWeights returns the per-edge-type base traversal weight table.
// The HAS_PARTY reversal carries contract risk to parties at full weight.
func DefaultEdgeWeights() map[string]float64 {
	return map[string]float64{
		"CONTROLS":             0.80,
		"LEGAL_PERSON":         0.75,
		"PAYS":                 0.65,
		"RECEIVES":             0.60,
		"TRADES_WITH":          0.50,
		"IS_SUPPLIER":          0.45,
		"IS_CUSTOMER":          0.40,
		"PARTY_A":              0.50,
		"PARTY_B":              0.50,
		"PARTY_C":              0.50,
		"PARTY_D":              0.50,
		"HAS_PARTY":            1.00,
		"ADMIN_PENALTY_OF":     0.90,
		"BUSINESS_ABNORMAL_OF": 0.70,
	}
}

// DefaultApprovalThresholds returns the fixed contract-approval amounts used
// by the collusion threshold-proximity feature.
func DefaultApprovalThresholds() []float64 {
	return []float64{1_000_000, 3_000_000, 5_000_000, 10_000_000}
}

// ApplyDefaults fills zero-value fields in cfg with the engine defaults.
// Call after unmarshalling and before Validate so optional-but-defaulted
// fields are never seen as missing. Explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceNeo4j
	}

	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Neo4j.MaxConnectionPoolSize == 0 {
		cfg.Neo4j.MaxConnectionPoolSize = 50
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 10 * time.Second
	}

	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultPostgresDB
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 10
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	applyEngineDefaults(&cfg.Engine)
}

func applyEngineDefaults(e *EngineConfig) {
	if e.EdgeWeights == nil {
		e.EdgeWeights = DefaultEdgeWeights()
	}
	if e.DefaultEdgeWeight == 0 {
		e.DefaultEdgeWeight = DefaultEdgeWeight
	}
	if e.BusinessWeight == 0 {
		e.BusinessWeight = DefaultBusinessWeight
	}
	if e.SimilarityWeight == 0 {
		e.SimilarityWeight = DefaultSimilarityWeight
	}
	if e.EmbeddingDim == 0 {
		e.EmbeddingDim = DefaultEmbeddingDim
	}
	if e.WalkLength == 0 {
		e.WalkLength = DefaultWalkLength
	}
	if e.WalksPerNode == 0 {
		e.WalksPerNode = DefaultWalksPerNode
	}
	if e.Damping == 0 {
		e.Damping = DefaultDamping
	}
	if e.ExternalDamping == 0 {
		e.ExternalDamping = DefaultExternalDamping
	}
	if e.MaxIterations == 0 {
		e.MaxIterations = DefaultMaxIterations
	}
	if e.Tolerance == 0 {
		e.Tolerance = DefaultTolerance
	}
	if e.AmountThreshold == 0 {
		e.AmountThreshold = DefaultAmountThreshold
	}
	if e.TimeWindowDays == 0 {
		e.TimeWindowDays = DefaultTimeWindowDays
	}
	if e.MinClusterSize == 0 {
		e.MinClusterSize = DefaultMinClusterSize
	}
	if e.RiskScoreThreshold == 0 {
		e.RiskScoreThreshold = DefaultRiskScoreThreshold
	}
	if e.ApprovalThresholds == nil {
		e.ApprovalThresholds = DefaultApprovalThresholds()
	}
	if e.ThresholdMargin == 0 {
		e.ThresholdMargin = DefaultThresholdMargin
	}
	if e.ShellMinScore == 0 {
		e.ShellMinScore = DefaultShellMinScore
	}
	if e.TopN == 0 {
		e.TopN = DefaultTopN
	}
}

// NewDefaultConfig returns a Config populated entirely with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
