package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
)

const defaultKeyPrefix = "corprisk:weights:"

// WeightStore persists resolved edge-weight tables keyed by structural hash
// plus configuration fingerprint. Entries have no TTL: they stay valid until
// an operator invalidates them or the underlying topology changes the key.
type WeightStore struct {
	client *redis.Client
	prefix string
	log    logging.Logger
}

func NewWeightStore(client *redis.Client, prefix string, log logging.Logger) *WeightStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &WeightStore{client: client, prefix: prefix, log: log.Named("weightstore")}
}

func (s *WeightStore) Get(ctx context.Context, key string) (map[string]float64, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "weight cache read failed")
	}
	var weights map[string]float64
	if err := json.Unmarshal(raw, &weights); err != nil {
		// a corrupt entry behaves like a miss; the resolver recomputes and
		// overwrites it
		s.log.Warn("dropping corrupt weight cache entry", logging.String("key", key), logging.Err(err))
		return nil, false, nil
	}
	return weights, true, nil
}

func (s *WeightStore) Put(ctx context.Context, key string, weights map[string]float64) error {
	raw, err := json.Marshal(weights)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "weight table marshal failed")
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "weight cache write failed")
	}
	return nil
}

// Invalidate removes one entry, or every entry under the prefix when key is
// empty. Returns the number of removed entries.
func (s *WeightStore) Invalidate(ctx context.Context, key string) (int, error) {
	if key != "" {
		n, err := s.client.Del(ctx, s.prefix+key).Result()
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeCacheError, "weight cache delete failed")
		}
		return int(n), nil
	}

	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "weight cache flush failed")
	}
	return int(n), nil
}

// Keys lists the cache keys currently stored, prefix stripped.
func (s *WeightStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k[len(s.prefix):]
	}
	return out, nil
}

func (s *WeightStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "weight cache scan failed")
	}
	return keys, nil
}
