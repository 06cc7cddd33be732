// Package redisstore implements kvstore.Storage on top of Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-login/kvstore"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

// Store implements kvstore.Storage backed by Redis.
type Store struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

var _ kvstore.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL expires keys ttl after their last write. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithTimeout bounds every Redis round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.timeout = timeout
	}
}

// New constructs a Redis-backed store. Every key is stored under prefix.
func New(client redis.UniversalClient, prefix string, options ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  prefix,
		timeout: defaultTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Get loads the raw value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	ctx, cancel := s.context()
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kvstore.ErrNotFound
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return value, nil
}

// Set persists value under key.
func (s *Store) Set(key string, value []byte) error {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(key string) error {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
