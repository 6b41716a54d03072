package handlers

import (
	"net/http"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
)

// CacheHandler exposes read and invalidate operations on the weight cache.
type CacheHandler struct {
	store weights.Store
	log   logging.Logger
}

func NewCacheHandler(store weights.Store, log logging.Logger) *CacheHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CacheHandler{store: store, log: log.Named("cache")}
}

// Inspect lists cached weight-set keys, or one entry when ?key= is given.
func (h *CacheHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeAppError(w, errors.New(errors.ErrCodeServiceUnavailable, "weight cache not configured"))
		return
	}
	if key := r.URL.Query().Get("key"); key != "" {
		entry, ok, err := h.store.Get(r.Context(), key)
		if err != nil {
			writeAppError(w, err)
			return
		}
		if !ok {
			writeAppError(w, errors.NotFound("no cached weight set for key").WithDetail("key="+key))
			return
		}
		writeData(w, map[string]interface{}{"key": key, "weights": entry})
		return
	}
	keys, err := h.store.Keys(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, map[string]interface{}{"keys": keys, "count": len(keys)})
}

// Invalidate drops one cache entry (?key=) or the whole cache.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeAppError(w, errors.New(errors.ErrCodeServiceUnavailable, "weight cache not configured"))
		return
	}
	key := r.URL.Query().Get("key")
	removed, err := h.store.Invalidate(r.Context(), key)
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.log.Info("weight cache invalidated",
		logging.String("key", key),
		logging.Int("removed", removed))
	writeData(w, map[string]interface{}{"removed": removed})
}
