package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ikkim/traceability-backend/config"
	"github.com/ikkim/traceability-backend/pkg/logger"
)

const connectTimeout = 5 * time.Second

// Connect dials the progress store and fails fast when it is unreachable,
// so the server can start without progress tracking instead.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: connectTimeout,
		MaxRetries:  1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Redis progress store connected", map[string]interface{}{
		"addr": addr,
		"db":   cfg.DB,
	})
	return rdb, nil
}
