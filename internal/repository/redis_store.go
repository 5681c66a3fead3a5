package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DerivBot/internal/domain/repository"
	"DerivBot/pkg/cache"
	"DerivBot/pkg/logger"
)

// kvStore is the subset of cache.Service the Redis store needs.
type kvStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// RedisStore keeps documents under "doc:<name>" and offers a SETNX lock so
// several bot instances can share one learning document.
type RedisStore struct {
	kv        kvStore
	logger    *logger.Logger
	lockRetry time.Duration
}

func NewRedisStore(kv kvStore, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisStore{kv: kv, logger: log, lockRetry: 50 * time.Millisecond}
}

func docKey(name string) string { return "doc:" + name }

func (s *RedisStore) Load(ctx context.Context, name string, dest any) error {
	var raw []byte
	if err := s.kv.Get(ctx, docKey(name), &raw); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return fmt.Errorf("load %s: %w", name, repository.ErrDocumentNotFound)
		}
		return fmt.Errorf("load %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("load %s: %w: %v", name, repository.ErrCorruptDocument, err)
	}
	return nil
}

// Quarantine copies the raw value to "doc:<name>.<suffix>". The original key
// is left for the next Save to overwrite.
func (s *RedisStore) Quarantine(ctx context.Context, name, suffix string) (string, error) {
	backup := name + "." + suffix
	var raw []byte
	if err := s.kv.Get(ctx, docKey(name), &raw); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, docKey(backup), raw, 0); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", name, err)
	}
	return backup, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, docKey(name), data, 0); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Lock spins on TryLock until it wins, ttl elapses, or ctx is done.
func (s *RedisStore) Lock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	deadline := time.Now().Add(ttl)
	for {
		token, ok, err := s.kv.TryLock(ctx, name, ttl)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", name, err)
		}
		if ok {
			return func() { s.unlock(name, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s: %w", name, cache.ErrLockHeld)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", name, ctx.Err())
		case <-time.After(s.lockRetry):
		}
	}
}

func (s *RedisStore) unlock(name, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.kv.Unlock(ctx, name, token); err != nil {
		s.logger.Warn("redis unlock failed", logger.String("name", name), logger.Error(err))
	}
}
