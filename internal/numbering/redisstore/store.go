// Package redisstore keeps sequence counters in Redis. Each scope is one key
// advanced with INCR.
package redisstore

import (
	"context"
	"errors"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/docflow/internal/numbering/domain"
)

const (
	backendName = "redis"
	keyPrefix   = "docflow:seq:"
)

type Store struct {
	client *redis.Client
	seed   domain.Seeder
}

// New returns a Redis-backed store. When seed is set, a scope missing from
// Redis starts after the value seed reports, so switching backends does not
// reissue numbers.
func New(client *redis.Client, seed domain.Seeder) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client, seed: seed}
}

func (s *Store) Backend() string { return backendName }

func Key(scope domain.Scope) string {
	return keyPrefix + strings.TrimSpace(scope.Key)
}

func (s *Store) Reserve(ctx context.Context, scope domain.Scope) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("redis client not configured")
	}
	if strings.TrimSpace(scope.Key) == "" {
		return 0, domain.ErrInvalidScope
	}
	key := Key(scope)

	if s.seed != nil {
		if err := s.seedIfMissing(ctx, scope, key); err != nil {
			return 0, err
		}
	}
	return s.client.Incr(ctx, key).Result()
}

// seedIfMissing uses SETNX, so concurrent seeders cannot overwrite a counter
// that already advanced.
func (s *Store) seedIfMissing(ctx context.Context, scope domain.Scope, key string) error {
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	current, err := s.seed.Current(ctx, scope)
	if err != nil {
		return err
	}
	if current <= 0 {
		return nil
	}
	return s.client.SetNX(ctx, key, current, 0).Err()
}
