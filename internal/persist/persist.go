package persist

import (
	"context"
	"errors"
	"time"

	"github.com/comigor/chatstore/internal/config"
	"github.com/comigor/chatstore/internal/session"
	"github.com/redis/go-redis/v9"
)

// Common errors for persistence operations.
var (
	ErrInvalidDriver = errors.New("invalid storage driver")
)

// Store defines the interface for session-set persistence. The full
// session set is written as one unit; partial updates are not part of
// the contract.
type Store interface {
	// Load reads the persisted session set. Corrupted or missing data
	// yields an empty set, never an error: initialization must not fail
	// because of bad storage.
	Load(ctx context.Context) ([]*session.Session, error)

	// Save persists the full session set, replacing whatever was there.
	Save(ctx context.Context, sessions []*session.Session) error

	// Close releases any resources held by the driver.
	Close() error
}

// New creates a Store for the configured driver. Supported drivers are
// "file", "sqlite", "redis" and "memory".
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "file":
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ttl := time.Duration(cfg.RedisTTLMin) * time.Minute
		return NewRedisStore(client, cfg.RedisKey, ttl), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, ErrInvalidDriver
	}
}
