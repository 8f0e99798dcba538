package store

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Option is a functional option for configuring a session store.
type Option func(*config)

type config struct {
	path        string
	redisClient *redis.Client
	redisTTL    time.Duration
}

// WithPath sets the database file path for the SQLite store.
func WithPath(path string) Option {
	return func(c *config) {
		c.path = path
	}
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) Option {
	return func(c *config) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for the Redis entry.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.redisTTL = ttl
	}
}
