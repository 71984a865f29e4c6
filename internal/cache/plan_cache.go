package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scale_backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const ActivePlansKey = "plans:active"

// ErrCacheMiss - ключа нет в кеше или кеш отключен.
var ErrCacheMiss = errors.New("cache miss")

// RedisClient - подмножество go-redis, которым пользуется кеш.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// PlanCache хранит список активных планов в Redis.
// С nil-клиентом каждый Get - промах, а Set/Invalidate ничего не делают.
type PlanCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewPlanCache(client RedisClient, ttl time.Duration) *PlanCache {
	return &PlanCache{client: client, ttl: ttl}
}

func (c *PlanCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *PlanCache) GetActivePlans(ctx context.Context) ([]models.Plan, error) {
	if !c.Enabled() {
		return nil, ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, ActivePlansKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", ActivePlansKey, err)
	}

	var plans []models.Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("decode cached plans: %w", err)
	}
	return plans, nil
}

func (c *PlanCache) SetActivePlans(ctx context.Context, plans []models.Plan) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode plans: %w", err)
	}
	if err := c.client.Set(ctx, ActivePlansKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", ActivePlansKey, err)
	}
	return nil
}

func (c *PlanCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Del(ctx, ActivePlansKey).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", ActivePlansKey, err)
	}
	return nil
}
