// Package redis implements a credstore driver backed by a Redis hash. It
// suits deployments where several processes of the same principal share one
// credential pair, an optional TTL lets stale pairs age out on their own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
)

// DefaultKey is the hash key used when Options.Key is empty.
const DefaultKey = "lodestar:credentials"

// Options configures a redis-backed store.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Key is the Redis hash holding the pair.
	Key string

	// TTL, when positive, is refreshed on every write so an untouched pair
	// eventually expires.
	TTL time.Duration
}

// Store persists the credential pair in one Redis hash.
type Store struct {
	client     *redis.Client
	key        string
	ttl        time.Duration
	ownsClient bool
}

// New connects to Redis and returns a store that owns the connection.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	s := NewWithClient(client, opts.Key)
	s.ttl = opts.TTL
	s.ownsClient = true
	return s
}

// NewWithClient wraps an existing client. The caller keeps ownership of the
// client, Close will not close it.
func NewWithClient(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

func (s *Store) Get(ctx context.Context, kind credstore.Kind) (string, error) {
	if !credstore.ValidKind(kind) {
		return "", credstore.ErrInvalidKind
	}

	value, err := s.client.HGet(ctx, s.key, string(kind)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, kind credstore.Kind, value string) error {
	if !credstore.ValidKind(kind) {
		return credstore.ErrInvalidKind
	}

	if err := s.client.HSet(ctx, s.key, string(kind), value).Err(); err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			return fmt.Errorf("set credential ttl: %w", err)
		}
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

// Ping verifies the Redis connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
