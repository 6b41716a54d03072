// Package http wires the route tree and the server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/internal/interfaces/http/handlers"
	"github.com/corpgraph/CorpRisk-Insight/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and infrastructure the route tree
// needs. MetricsHandler and CacheHandler may be nil; their routes are then
// omitted.
type RouterConfig struct {
	Analysis *handlers.AnalysisHandler
	Cache    *handlers.CacheHandler
	Health   *handlers.HealthHandler

	MetricsHandler http.Handler
	Logger         logging.Logger
}

// NewRouter constructs the full route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger))
	}

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Liveness)
		r.Get("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/analysis", func(an chi.Router) {
			an.Post("/fraud-rank", cfg.Analysis.FraudRank)
			an.Post("/circular-trade", cfg.Analysis.CircularTrade)
			an.Post("/collusion", cfg.Analysis.Collusion)
			an.Post("/shell-company", cfg.Analysis.ShellCompany)
			an.Post("/external-risk-rank", cfg.Analysis.ExternalRiskRank)
			an.Post("/perform-risk", cfg.Analysis.PerformRisk)
			an.Post("/all", cfg.Analysis.RunAll)
		})
		if cfg.Cache != nil {
			api.Get("/cache/weights", cfg.Cache.Inspect)
			api.Delete("/cache/weights", cfg.Cache.Invalidate)
		}
	})

	return r
}
