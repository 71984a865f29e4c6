package cache

import (
	"context"
	"fmt"
	"time"

	"scale_backend/internal/config"
	"scale_backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis открывает клиент Redis. Пустой адрес означает, что кеш отключен:
// возвращается nil без ошибки.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("Redis address is not configured, plan cache disabled")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
	return rdb, nil
}
