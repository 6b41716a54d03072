package main

import (
	"context"
	"net/http"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	"github.com/corpgraph/CorpRisk-Insight/internal/application/scenario"
	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	neo4jstore "github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/database/neo4j"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/database/postgres"
	redisstore "github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/database/redis"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/messaging/kafka"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	appmetrics "github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/storage/localfile"
	httpserver "github.com/corpgraph/CorpRisk-Insight/internal/interfaces/http"
	"github.com/corpgraph/CorpRisk-Insight/internal/interfaces/http/handlers"
)

// buildRouter wires the record source, weight store, publisher, metrics, and
// the scenario service into the route tree. The returned teardown closes
// everything in reverse construction order.
func buildRouter(ctx context.Context, cfg *config.Config, log logging.Logger) (http.Handler, func(), error) {
	var closers []func()
	teardown := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		teardown()
		return nil, nil, err
	}

	var (
		source scenario.RecordSource
		checks []handlers.ReadinessCheck
	)
	switch cfg.Source.Kind {
	case config.SourceFile:
		source = localfile.NewSource(cfg.Source.File)
	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pool.Close)
		source = postgres.NewSource(pool, log)
		checks = append(checks, handlers.ReadinessCheck{
			Name:  "postgres",
			Probe: pool.Ping,
		})
	default:
		driver, err := neo4jstore.NewDriver(ctx, cfg.Neo4j)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = driver.Close(context.Background()) })
		source = neo4jstore.NewSource(driver, cfg.Neo4j.Database, log)
		checks = append(checks, handlers.ReadinessCheck{
			Name:  "neo4j",
			Probe: driver.VerifyConnectivity,
		})
	}

	var store weights.Store
	if cfg.Source.Kind == config.SourceFile {
		store = weights.NewMemoryStore()
	} else {
		client, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = client.Close() })
		store = redisstore.NewWeightStore(client, cfg.Redis.KeyPrefix, log)
		checks = append(checks, handlers.ReadinessCheck{
			Name:  "redis",
			Probe: func(c context.Context) error { return client.Ping(c).Err() },
		})
	}

	producer := kafka.NewProducer(cfg.Kafka, log)
	if producer != nil {
		closers = append(closers, func() { _ = producer.Close() })
	}

	metrics := appmetrics.NewAppMetrics()
	resolver := weights.NewResolver(cfg.Engine, store, log)
	svc := scenario.NewService(cfg.Engine, source, resolver, producer, metrics, log)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Analysis:       handlers.NewAnalysisHandler(svc, log),
		Cache:          handlers.NewCacheHandler(store, log),
		Health:         handlers.NewHealthHandler(checks...),
		MetricsHandler: metrics.Handler(),
		Logger:         log,
	})
	return router, teardown, nil
}
