// Package redis provides the redis-backed weight cache store and the shared
// client lifecycle.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
)

// NewClient connects and pings within a short timeout so misconfiguration
// surfaces at startup, not on the first analysis request.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "redis ping failed")
	}
	return client, nil
}
