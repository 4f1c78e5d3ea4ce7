package persist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comigor/chatstore/internal/logger"
	"github.com/comigor/chatstore/internal/session"
)

// RedisStore persists the serialized session array under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration // 0 = no expiry
}

// NewRedisStore creates a Redis-backed store writing to the given key.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "chatstore:sessions"
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

// Load implements Store. A missing or undecodable value yields an
// empty set.
func (s *RedisStore) Load(ctx context.Context) ([]*session.Session, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return []*session.Session{}, nil
	}
	if err != nil {
		logger.L.Warn("redis load failed; starting empty", "key", s.key, "error", err)
		return []*session.Session{}, nil
	}

	var sessions []*session.Session
	if err := json.Unmarshal([]byte(val), &sessions); err != nil {
		logger.L.Warn("corrupted redis value; starting empty", "key", s.key, "error", err)
		_ = s.client.Del(ctx, s.key).Err()
		return []*session.Session{}, nil
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	return sessions, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, sessions []*session.Session) error {
	val, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, val, s.ttl).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
