package session

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"storyart/internal/config"
	"storyart/internal/services"
)

// Source supplies raw session documents. Satisfied by Store and by test
// fakes.
type Source interface {
	GetSession(ctx context.Context, key string) ([]byte, error)
}

// Store reads session documents from the Redis session store.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewStore connects to the Redis instance described by cfg. The connection is
// lazy; failures surface on first use.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		}),
		prefix: cfg.Session.KeyPrefix,
	}
}

// NewStoreWithClient wraps an existing Redis client (used in tests).
func NewStoreWithClient(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

// GetSession returns the raw JSON document for the given session key.
// The upstream store applies a TTL to sessions, so old keys legitimately
// disappear; that case is reported as ErrNotFound with guidance.
func (s *Store) GetSession(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, services.Wrap(services.ErrValidation, "session", "get", "session key must not be empty", nil)
	}
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, services.Wrap(
				services.ErrNotFound,
				"session",
				"get",
				"session "+key+" expired or never existed; re-run the upstream step that created it",
				nil,
			)
		}
		return nil, services.Wrap(services.ErrTransient, "session", "get", "session store unavailable", err)
	}
	return raw, nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
