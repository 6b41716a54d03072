// Package cli implements the corprisk command tree: one-shot scenario runs
// against a configured record source and weight-cache maintenance.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	"github.com/corpgraph/CorpRisk-Insight/internal/application/scenario"
	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	neo4jstore "github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/database/neo4j"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/database/postgres"
	redisstore "github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/database/redis"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/storage/localfile"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	output     string
	records    string
}

// NewRootCommand builds the corprisk command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "corprisk",
		Short:         "Compliance-risk graph analytics over corporate relationship graphs",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.output, "output", "o", "table", "output format (table, json)")
	pf.StringVar(&opts.records, "records", "", "JSON records file to analyze instead of the configured source")

	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newCacheCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig loads and validates configuration, falling back to defaults when
// no config file is given or found.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		if o.configPath != "" {
			return nil, err
		}
		cfg = config.NewDefaultConfig()
	}
	if o.records != "" {
		cfg.Source.Kind = config.SourceFile
		cfg.Source.File = o.records
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "configuration invalid")
	}
	return cfg, nil
}

func (o *rootOptions) logger() logging.Logger {
	log, err := logging.NewLogger(logging.Config{Level: o.logLevel, Format: "console"})
	if err != nil {
		return logging.NewNopLogger()
	}
	return log
}

// newSource builds the record source selected by cfg.Source.Kind.
func newSource(ctx context.Context, cfg *config.Config, log logging.Logger) (scenario.RecordSource, func(), error) {
	switch cfg.Source.Kind {
	case config.SourceFile:
		return localfile.NewSource(cfg.Source.File), func() {}, nil
	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSource(pool, log), pool.Close, nil
	default:
		driver, err := neo4jstore.NewDriver(ctx, cfg.Neo4j)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() { _ = driver.Close(context.Background()) }
		return neo4jstore.NewSource(driver, cfg.Neo4j.Database, log), cleanup, nil
	}
}

// newWeightStore connects the redis-backed store, falling back to the
// in-memory store when redis is unreachable. File-sourced runs always use
// the in-memory store.
func newWeightStore(ctx context.Context, cfg *config.Config, log logging.Logger) (weights.Store, func()) {
	if cfg.Source.Kind == config.SourceFile {
		return weights.NewMemoryStore(), func() {}
	}
	client, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unreachable, weight cache is in-memory for this run", logging.Err(err))
		return weights.NewMemoryStore(), func() {}
	}
	return redisstore.NewWeightStore(client, cfg.Redis.KeyPrefix, log), func() { _ = client.Close() }
}

// buildService wires a scenario service for one CLI invocation.
func buildService(ctx context.Context, cfg *config.Config, log logging.Logger) (*scenario.Service, func(), error) {
	source, cleanupSource, err := newSource(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	store, cleanupStore := newWeightStore(ctx, cfg, log)
	resolver := weights.NewResolver(cfg.Engine, store, log)
	svc := scenario.NewService(cfg.Engine, source, resolver, nil, nil, log)

	cleanup := func() {
		cleanupStore()
		cleanupSource()
	}
	return svc, cleanup, nil
}
