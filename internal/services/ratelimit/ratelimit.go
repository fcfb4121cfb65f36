// Package ratelimit provides a fixed-window per-client limiter backed
// by redis, shared across instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ragline-ai/ragline/internal/models"
)

const (
	defaultMax    = 60
	defaultWindow = 60 * time.Second
)

type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// New connects to redis and verifies the connection
func New(ctx context.Context, redisCfg models.RedisConfig, cfg models.RateLimitConfig) (*Limiter, error) {
	opts, err := redis.ParseURL(redisCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	max := cfg.Max
	if max <= 0 {
		max = defaultMax
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = defaultWindow
	}

	return &Limiter{client: client, max: max, window: window}, nil
}

// Allow increments the caller's window counter and reports whether the
// request is within the limit. Redis failures allow the request; the
// limiter protects capacity, it is not a security boundary.
func (l *Limiter) Allow(ctx context.Context, clientID string) bool {
	key := fmt.Sprintf("ratelimit:%s", clientID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		fiberlog.Warnf("rate limit check failed, allowing request: %v", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			fiberlog.Warnf("rate limit expire failed: %v", err)
		}
	}
	return count <= int64(l.max)
}

// RetryAfter returns the client-facing wait hint
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}

// Ping verifies redis connectivity for health checks
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Limiter) Close() error {
	return l.client.Close()
}
