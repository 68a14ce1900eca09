package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Backend persists sessions. Update applies fn atomically with respect to
// other updates of the same session.
type Backend interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryBackend keeps sessions in process memory
type MemoryBackend struct {
	sessions map[string]*Session
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend(logger *zap.Logger) *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Load returns a copy of the stored session
func (b *MemoryBackend) Load(_ context.Context, id string) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired() {
		delete(b.sessions, id)
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// Save stores a copy of s
func (b *MemoryBackend) Save(_ context.Context, s *Session) error {
	b.mu.Lock()
	b.sessions[s.ID] = s.clone()
	b.mu.Unlock()
	return nil
}

// Update applies fn under the backend lock
func (b *MemoryBackend) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.sessions[id]
	if !ok || current.Expired() {
		delete(b.sessions, id)
		return nil, ErrNotFound
	}

	next := current.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	b.sessions[id] = next
	return next.clone(), nil
}

// Delete removes a session
func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	delete(b.sessions, id)
	b.mu.Unlock()
	return nil
}

// Count returns the number of stored sessions
func (b *MemoryBackend) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Sweep removes expired sessions and reports how many were removed
func (b *MemoryBackend) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, s := range b.sessions {
		if now.After(s.ExpiresAt) {
			delete(b.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		b.logger.Debug("Cleaned up expired sessions", zap.Int("count", removed))
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done. onSweep, if set,
// receives the remaining session count.
func (b *MemoryBackend) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(remaining int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Sweep()
			if onSweep != nil {
				onSweep(b.Count())
			}
		case <-ctx.Done():
			return
		}
	}
}

// RedisBackend stores sessions as JSON values with a TTL matching expiry
type RedisBackend struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
}

// NewRedisBackend creates a backend whose keys are namespaced by prefix
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{
		client:     client,
		prefix:     prefix + ":session:",
		maxRetries: 5,
	}
}

func (b *RedisBackend) key(id string) string {
	return b.prefix + id
}

// Load fetches a session
func (b *RedisBackend) Load(ctx context.Context, id string) (*Session, error) {
	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeSession(data)
}

// Save stores a session until its expiry
func (b *RedisBackend) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return b.Delete(ctx, s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := b.client.Set(ctx, b.key(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Update applies fn inside an optimistic WATCH transaction, retrying when
// another writer changed the session concurrently
func (b *RedisBackend) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := b.key(id)
	var result *Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		encoded, err := json.Marshal(s)
		if err != nil {
			return err
		}
		ttl := time.Until(s.ExpiresAt)
		if ttl <= 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, ttl)
			return nil
		})
		if err == nil {
			result = s
		}
		return err
	}

	for i := 0; i < b.maxRetries; i++ {
		err := b.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("session update conflict after %d attempts", b.maxRetries)
}

// Delete removes a session
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	return b.client.Del(ctx, b.key(id)).Err()
}

func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Storage == nil {
		s.Storage = make(map[string]string)
	}
	if s.Expired() {
		return nil, ErrNotFound
	}
	return &s, nil
}
