// Package redisstore keeps client state in Redis, letting several client
// processes share one session.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/mcc-client/storage"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "mcc:state:"

var _ storage.Repo = (*Store)(nil)

// Store is a Redis-backed state repo. Keys never expire.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New creates a Store using the default key prefix.
func New(client redis.UniversalClient) *Store {
	return NewWithPrefix(client, defaultPrefix)
}

// NewWithPrefix creates a Store with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
