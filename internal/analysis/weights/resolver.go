// Package weights resolves the traversal weight of every edge in a snapshot.
// The base business weight table is optionally blended with the embedding
// similarity of the edge endpoints, and the resolved table is cached keyed by
// structural hash plus configuration fingerprint.
package weights

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/internal/intelligence/embedding"
)

// Table holds one resolved weight per edge, indexed by edge arena index.
type Table []float64

// Store persists resolved tables across runs. Implementations must treat a
// missing key as (nil, false, nil), not an error.
type Store interface {
	Get(ctx context.Context, key string) (map[string]float64, bool, error)
	Put(ctx context.Context, key string, weights map[string]float64) error
	Invalidate(ctx context.Context, key string) (int, error)
	Keys(ctx context.Context) ([]string, error)
}

// Resolver computes weight tables. Safe for concurrent use; concurrent
// resolutions of the same cache key collapse into a single computation.
type Resolver struct {
	cfg   config.EngineConfig
	store Store
	log   logging.Logger
	group *singleflight.Group
}

// NewResolver builds a resolver. store may be nil, in which case every call
// recomputes.
func NewResolver(cfg config.EngineConfig, store Store, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resolver{cfg: cfg, store: store, log: log.Named("weights"), group: new(singleflight.Group)}
}

// WithConfig derives a resolver carrying request-scoped engine settings but
// sharing the persistent store and the in-flight group. Sharing the group
// keeps resolution at-most-once per cache key across derived resolvers; the
// key's config fingerprint disambiguates the settings.
func (r *Resolver) WithConfig(cfg config.EngineConfig) *Resolver {
	return &Resolver{cfg: cfg, store: r.store, log: r.log, group: r.group}
}

// CacheKey combines the snapshot's structural hash with a fingerprint of
// every weight-affecting setting, so configuration changes never serve a
// stale table.
func (r *Resolver) CacheKey(snap *graph.Snapshot) string {
	settings := map[string]string{
		"default":    strconv.FormatFloat(r.cfg.DefaultEdgeWeight, 'g', -1, 64),
		"blend":      strconv.FormatBool(r.cfg.EmbeddingBlend),
		"business":   strconv.FormatFloat(r.cfg.BusinessWeight, 'g', -1, 64),
		"similarity": strconv.FormatFloat(r.cfg.SimilarityWeight, 'g', -1, 64),
		"dim":        strconv.Itoa(r.cfg.EmbeddingDim),
		"walk_len":   strconv.Itoa(r.cfg.WalkLength),
		"walks":      strconv.Itoa(r.cfg.WalksPerNode),
	}
	for typ, w := range r.cfg.EdgeWeights {
		settings["w:"+typ] = strconv.FormatFloat(w, 'g', -1, 64)
	}
	return snap.StructuralHash() + ":" + graph.HashFingerprint(settings)
}

// Resolve returns the weight table for the snapshot. The second return is
// true when the table came from the store. forceRecompute skips the store
// lookup but still writes the fresh table back.
func (r *Resolver) Resolve(ctx context.Context, snap *graph.Snapshot, forceRecompute bool) (Table, bool, error) {
	key := r.CacheKey(snap)

	type resolved struct {
		table Table
		hit   bool
	}
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if r.store != nil && !forceRecompute {
			cached, ok, err := r.store.Get(ctx, key)
			if err != nil {
				r.log.Warn("weight cache read failed, recomputing", logging.Err(err))
			} else if ok {
				table, complete := r.tableFromMap(snap, cached)
				if complete {
					return resolved{table: table, hit: true}, nil
				}
				r.log.Warn("weight cache entry incomplete, recomputing", logging.String("key", key))
			}
		}

		table := r.compute(snap)
		if r.store != nil {
			if err := r.store.Put(ctx, key, r.tableToMap(snap, table)); err != nil {
				r.log.Warn("weight cache write failed", logging.Err(err))
			}
		}
		return resolved{table: table}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(resolved)
	return res.table, res.hit, nil
}

// BaseWeight returns the business weight for an edge type, falling back to
// the configured default for types absent from the table.
func (r *Resolver) BaseWeight(edgeType string) float64 {
	if w, ok := r.cfg.EdgeWeights[edgeType]; ok {
		return w
	}
	return r.cfg.DefaultEdgeWeight
}

func (r *Resolver) compute(snap *graph.Snapshot) Table {
	table := make(Table, snap.EdgeCount())

	var emb *embedding.Embedder
	if r.cfg.EmbeddingBlend {
		emb = embedding.New(snap, embedding.Params{
			Dim:          r.cfg.EmbeddingDim,
			WalkLength:   r.cfg.WalkLength,
			WalksPerNode: r.cfg.WalksPerNode,
		})
	}

	for _, e := range snap.Edges() {
		w := r.BaseWeight(e.Type.String())
		if emb != nil {
			sim := emb.Similarity(e.SourceID, e.TargetID)
			w = w*r.cfg.BusinessWeight + sim*r.cfg.SimilarityWeight
		}
		table[e.Index] = clamp01(w)
	}
	return table
}

// edgeKey is the persisted form of an edge identity. Arena indexes are not
// stable enough to persist; the triple is.
func edgeKey(e *graph.Edge) string {
	return fmt.Sprintf("%s|%s|%s", e.SourceID, e.Type, e.TargetID)
}

func (r *Resolver) tableToMap(snap *graph.Snapshot, table Table) map[string]float64 {
	m := make(map[string]float64, len(table))
	for _, e := range snap.Edges() {
		m[edgeKey(e)] = table[e.Index]
	}
	return m
}

// tableFromMap rebuilds the arena-indexed table and reports whether every
// edge was covered. Parallel edges share a triple key, which is fine: they
// also share a weight.
func (r *Resolver) tableFromMap(snap *graph.Snapshot, m map[string]float64) (Table, bool) {
	table := make(Table, snap.EdgeCount())
	for _, e := range snap.Edges() {
		w, ok := m[edgeKey(e)]
		if !ok {
			return nil, false
		}
		table[e.Index] = w
	}
	return table, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
