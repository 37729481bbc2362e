package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"tally/internal/domain"
)

const defaultKeyPrefix = "tally:session"

const (
	fieldUserID   = "user_id"
	fieldUsername = "username"
)

// RedisStore keeps each session as a redis hash that expires with the session.
type RedisStore struct {
	client *red.Client
	prefix string
}

// NewRedisStore constructs a redis-backed session store.
func NewRedisStore(client *red.Client, keyPrefix string) *RedisStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Save writes the session hash and its TTL atomically.
func (s *RedisStore) Save(ctx context.Context, id string, identity domain.Identity, ttl time.Duration) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		pipe.HSet(ctx, key, fieldUserID, identity.UserID, fieldUsername, identity.Username)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// Load fetches the session hash; a missing key means the session is gone.
func (s *RedisStore) Load(ctx context.Context, id string) (domain.Identity, bool, error) {
	if id == "" {
		return domain.Identity{}, false, nil
	}

	values, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("redis load session: %w", err)
	}
	userID, ok := values[fieldUserID]
	if !ok || userID == "" {
		return domain.Identity{}, false, nil
	}
	return domain.Identity{UserID: userID, Username: values[fieldUsername]}, true, nil
}

// Delete removes the session hash.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Ping verifies connectivity to redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}
