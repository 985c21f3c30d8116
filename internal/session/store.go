package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/cache"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the shopper's basket slot. A second prefix lets the
// backend edit an order basket in the same session without clobbering
// the shopper's own.
const DefaultPrefix = "basket"

// BackendPrefix is the slot used while a merchant edits an order.
const BackendPrefix = "backend-basket"

// ErrLockTimeout is returned when the per-basket lock cannot be taken.
var ErrLockTimeout = errors.New("session: basket lock timeout")

const (
	basketTTL     = 14 * 24 * time.Hour
	lockTTL       = 5 * time.Second
	lockRetryWait = 50 * time.Millisecond
	lockRetries   = 40
)

// Store persists baskets per (session id, prefix) with atomic
// read-modify-write via Mutate.
type Store interface {
	Load(ctx context.Context, sessionID, prefix string) (*basket.Basket, error)
	Save(ctx context.Context, sessionID, prefix string, b *basket.Basket) error
	Delete(ctx context.Context, sessionID, prefix string) error
	Mutate(ctx context.Context, sessionID, prefix string, fn func(*basket.Basket) error) (*basket.Basket, error)
}

// RedisStore keeps serialised baskets in redis. Mutations take a
// SET NX lock per basket key so concurrent requests for the same
// session serialise their read-modify-write cycles.
type RedisStore struct {
	client         *redis.Client
	maxQuantity    int
	defaultCountry string
}

// NewRedisStore creates a redis-backed basket store.
func NewRedisStore(client *redis.Client, maxQuantity int, defaultCountry string) *RedisStore {
	return &RedisStore{
		client:         client,
		maxQuantity:    maxQuantity,
		defaultCountry: defaultCountry,
	}
}

func basketKey(sessionID, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("session:%s:%s", sessionID, prefix)
}

func lockKey(sessionID, prefix string) string {
	return basketKey(sessionID, prefix) + ":lock"
}

// Load reads the basket, returning a fresh empty one if absent.
func (s *RedisStore) Load(ctx context.Context, sessionID, prefix string) (*basket.Basket, error) {
	data, err := s.client.Get(ctx, cache.BuildKey(basketKey(sessionID, prefix))).Result()
	if err == redis.Nil {
		return basket.New(s.maxQuantity, s.defaultCountry), nil
	}
	if err != nil {
		return nil, err
	}
	return basket.Restore(data, s.maxQuantity, s.defaultCountry)
}

// Save writes the basket back with a refreshed TTL.
func (s *RedisStore) Save(ctx context.Context, sessionID, prefix string, b *basket.Basket) error {
	data, err := b.Serialize()
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cache.BuildKey(basketKey(sessionID, prefix)), data, basketTTL).Err()
}

// Delete removes the basket.
func (s *RedisStore) Delete(ctx context.Context, sessionID, prefix string) error {
	return s.client.Del(ctx, cache.BuildKey(basketKey(sessionID, prefix))).Err()
}

// Mutate loads the basket under the per-key lock, applies fn and writes
// the result back. fn returning an error aborts without writing.
func (s *RedisStore) Mutate(ctx context.Context, sessionID, prefix string, fn func(*basket.Basket) error) (*basket.Basket, error) {
	key := cache.BuildKey(lockKey(sessionID, prefix))
	if err := s.acquireLock(ctx, key); err != nil {
		return nil, err
	}
	defer s.client.Del(ctx, key)

	b, err := s.Load(ctx, sessionID, prefix)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return b, err
	}
	if err := s.Save(ctx, sessionID, prefix, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *RedisStore) acquireLock(ctx context.Context, key string) error {
	for i := 0; i < lockRetries; i++ {
		ok, err := s.client.SetNX(ctx, key, "1", lockTTL).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
	return ErrLockTimeout
}

// MemoryStore is the fallback when redis is disabled, and the store
// tests run against. Keys lock through a per-store mutex.
type MemoryStore struct {
	mu             sync.Mutex
	data           map[string]string
	maxQuantity    int
	defaultCountry string
}

// NewMemoryStore creates an in-process basket store.
func NewMemoryStore(maxQuantity int, defaultCountry string) *MemoryStore {
	return &MemoryStore{
		data:           make(map[string]string),
		maxQuantity:    maxQuantity,
		defaultCountry: defaultCountry,
	}
}

// Load reads the basket, returning a fresh empty one if absent.
func (s *MemoryStore) Load(ctx context.Context, sessionID, prefix string) (*basket.Basket, error) {
	s.mu.Lock()
	data, ok := s.data[basketKey(sessionID, prefix)]
	s.mu.Unlock()
	if !ok {
		return basket.New(s.maxQuantity, s.defaultCountry), nil
	}
	return basket.Restore(data, s.maxQuantity, s.defaultCountry)
}

// Save writes the basket back.
func (s *MemoryStore) Save(ctx context.Context, sessionID, prefix string, b *basket.Basket) error {
	data, err := b.Serialize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[basketKey(sessionID, prefix)] = data
	s.mu.Unlock()
	return nil
}

// Delete removes the basket.
func (s *MemoryStore) Delete(ctx context.Context, sessionID, prefix string) error {
	s.mu.Lock()
	delete(s.data, basketKey(sessionID, prefix))
	s.mu.Unlock()
	return nil
}

// Mutate applies fn to the stored basket under the store lock.
func (s *MemoryStore) Mutate(ctx context.Context, sessionID, prefix string, fn func(*basket.Basket) error) (*basket.Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := basketKey(sessionID, prefix)
	var b *basket.Basket
	if data, ok := s.data[key]; ok {
		restored, err := basket.Restore(data, s.maxQuantity, s.defaultCountry)
		if err != nil {
			return nil, err
		}
		b = restored
	} else {
		b = basket.New(s.maxQuantity, s.defaultCountry)
	}
	if err := fn(b); err != nil {
		return b, err
	}
	data, err := b.Serialize()
	if err != nil {
		return nil, err
	}
	s.data[key] = data
	return b, nil
}
