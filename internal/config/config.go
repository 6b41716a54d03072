// Package config defines all configuration structures for the CorpRisk-Insight
// engine. No I/O or parsing logic lives here, only plain data types and
// validation; loading is in loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SourceConfig selects the snapshot record source. "neo4j" reads from the
// graph store, "postgres" from the relational staging tables, "file" from a
// local JSON records file (offline runs and the CLI).
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	File string `mapstructure:"file"`
}

// Source kinds.
const (
	SourceNeo4j    = "neo4j"
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// Neo4jConfig holds graph-store connection parameters.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// PostgresConfig holds the relational staging-store connection parameters.
// The engine only reads from these tables; the ingestion pipeline owns them.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds weight-cache store connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the completion-event producer parameters. Publishing is
// disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// EngineConfig holds the analysis defaults. Each value can be overridden per
// request by the scenario configuration object; unknown request keys are
// ignored and missing keys fall back to these.
type EngineConfig struct {
	// EdgeWeights is the per-edge-type base traversal weight table.
	EdgeWeights map[string]float64 `mapstructure:"edge_weights"`
	// DefaultEdgeWeight is the fail-closed weight for unknown edge types.
	DefaultEdgeWeight float64 `mapstructure:"default_edge_weight"`
	// EmbeddingBlend enables blending the learned similarity component into
	// edge weights: final = business*0.7 + similarity*0.3.
	EmbeddingBlend  bool    `mapstructure:"embedding_blend"`
	BusinessWeight  float64 `mapstructure:"business_weight"`
	SimilarityWeight float64 `mapstructure:"similarity_weight"`
	EmbeddingDim    int     `mapstructure:"embedding_dim"`
	WalkLength      int     `mapstructure:"walk_length"`
	WalksPerNode    int     `mapstructure:"walks_per_node"`

	Damping         float64 `mapstructure:"damping"`
	ExternalDamping float64 `mapstructure:"external_damping"`
	MaxIterations   int     `mapstructure:"max_iterations"`
	Tolerance       float64 `mapstructure:"tolerance"`

	AmountThreshold    float64   `mapstructure:"amount_threshold"`
	TimeWindowDays     int       `mapstructure:"time_window_days"`
	MinClusterSize     int       `mapstructure:"min_cluster_size"`
	RiskScoreThreshold float64   `mapstructure:"risk_score_threshold"`
	ApprovalThresholds []float64 `mapstructure:"approval_thresholds"`
	ThresholdMargin    float64   `mapstructure:"threshold_margin"`
	ShellMinScore      float64   `mapstructure:"shell_min_score"`
	TopN               int       `mapstructure:"top_n"`
}

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Source   SourceConfig   `mapstructure:"source"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// Validate checks invariants that would otherwise surface as confusing
// failures deep inside an analysis run. Weight and threshold violations are
// fatal before any computation starts.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Source.Kind {
	case SourceNeo4j, SourcePostgres:
	case SourceFile:
		if c.Source.File == "" {
			return fmt.Errorf("source.file is required when source.kind is %q", SourceFile)
		}
	default:
		return fmt.Errorf("source.kind must be one of neo4j, postgres, file; got %q", c.Source.Kind)
	}
	return c.Engine.Validate()
}

// Validate checks the engine defaults.
func (e *EngineConfig) Validate() error {
	for typ, w := range e.EdgeWeights {
		if w < 0 || w > 1 {
			return fmt.Errorf("engine.edge_weights[%s] must be in [0,1], got %v", typ, w)
		}
	}
	if e.DefaultEdgeWeight < 0 || e.DefaultEdgeWeight > 1 {
		return fmt.Errorf("engine.default_edge_weight must be in [0,1], got %v", e.DefaultEdgeWeight)
	}
	if e.Damping < 0 || e.Damping >= 1 {
		return fmt.Errorf("engine.damping must be in [0,1), got %v", e.Damping)
	}
	if e.ExternalDamping < 0 || e.ExternalDamping >= 1 {
		return fmt.Errorf("engine.external_damping must be in [0,1), got %v", e.ExternalDamping)
	}
	if e.MaxIterations <= 0 {
		return fmt.Errorf("engine.max_iterations must be positive, got %d", e.MaxIterations)
	}
	if e.Tolerance <= 0 {
		return fmt.Errorf("engine.tolerance must be positive, got %v", e.Tolerance)
	}
	if e.AmountThreshold < 0 {
		return fmt.Errorf("engine.amount_threshold must not be negative, got %v", e.AmountThreshold)
	}
	if e.MinClusterSize < 2 {
		return fmt.Errorf("engine.min_cluster_size must be at least 2, got %d", e.MinClusterSize)
	}
	if e.ThresholdMargin < 0 || e.ThresholdMargin > 1 {
		return fmt.Errorf("engine.threshold_margin must be in [0,1], got %v", e.ThresholdMargin)
	}
	return nil
}
