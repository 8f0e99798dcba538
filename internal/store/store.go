// Package store persists the widget's current session identifier so a
// restart resumes the same conversation.
package store

import (
	"context"
	"errors"
)

// SessionKey is the durable key holding the active session identifier.
const SessionKey = "chatbotSessionId"

var (
	// ErrInvalidDriver indicates an unknown store driver name
	ErrInvalidDriver = errors.New("invalid store driver")
	// ErrInvalidConfig indicates missing driver configuration
	ErrInvalidConfig = errors.New("invalid store configuration")
)

// Store holds the single durable session-identifier entry. Get returns
// an empty string, not an error, when no identifier is stored. No
// validation is performed; any string the backend round-trips is accepted.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, sessionID string) error
	Clear(ctx context.Context) error
	Close() error
}

// Driver names a session store backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
)

// New creates a Store for the given driver.
// SQLite requires WithPath; redis requires WithRedisClient.
func New(driver Driver, opts ...Option) (Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case DriverMemory:
		return newMemoryStore(), nil
	case DriverSQLite:
		if cfg.path == "" {
			return nil, ErrInvalidConfig
		}
		return newSQLiteStore(cfg.path)
	case DriverRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(cfg.redisClient, cfg.redisTTL), nil
	default:
		return nil, ErrInvalidDriver
	}
}
