package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "chatwidget:" + SessionKey

// redisStore keeps the identifier in Redis, for deployments where the
// widget runs on shared terminals behind one conversation identity.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisStore(client *redis.Client, ttl time.Duration) *redisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, sessionID string) error {
	return s.client.Set(ctx, redisKey, sessionID, s.ttl).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, redisKey).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
