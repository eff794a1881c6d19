// Package redis owns the optional Redis connection used by the
// active-season info cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"namemint/internal/platform/config"
)

// Client wraps *redis.Client so callers depend on this package, not on
// go-redis directly.
type Client struct {
	*redis.Client
}

// New dials Redis and verifies the connection with a ping. An empty URL
// means Redis is not configured; callers get nil and run without a cache.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}
