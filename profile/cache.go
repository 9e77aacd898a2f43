package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// VectorCache 是解析后用户向量的记忆化缓存。
//
// 约束：塔是纯函数、产物不可变，所以缓存永远不需要失效——
// 命中与未命中产出的向量逐位相同。缓存只是省一次塔推理，
// 任何缓存故障都必须退化为重新计算，绝不让请求失败。
type VectorCache interface {
	Get(ctx context.Context, userID int64) ([]float64, bool)
	Set(ctx context.Context, userID int64, vec []float64)
}

// RedisCache 是 Redis 实现的 VectorCache。向量 JSON 编码，带 TTL。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 连接 Redis 并构建缓存。
func NewRedisCache(addr string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("recserve:uservec:%d", userID)
}

// Get 实现 VectorCache 接口。任何错误都按未命中处理。
func (c *RedisCache) Get(ctx context.Context, userID int64) ([]float64, bool) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// Set 实现 VectorCache 接口。写失败静默忽略（缓存是尽力而为的）。
func (c *RedisCache) Set(ctx context.Context, userID int64, vec []float64) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(userID), data, c.ttl)
}

// Close 关闭 Redis 连接。
func (c *RedisCache) Close() error { return c.client.Close() }

var _ VectorCache = (*RedisCache)(nil)
