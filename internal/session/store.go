package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Load for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Store persists sessions between requests.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// Rotate moves s to a new ID, deleting the old record. It is used on login and
// logout to avoid session fixation.
func Rotate(ctx context.Context, store Store, s *Session) error {
	old := s.ID
	s.ID = uuid.NewString()
	s.dirty = true
	if err := store.Save(ctx, s); err != nil {
		return err
	}
	if err := store.Delete(ctx, old); err != nil {
		return fmt.Errorf("delete rotated session: %w", err)
	}
	return nil
}

func decode(id string, raw []byte) (*Session, error) {
	s := &Session{ID: id, stored: true}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// RedisStore keeps sessions as JSON strings under "session:<id>".
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Redis-backed store. Every save refreshes the TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return "session:" + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decode(id, raw)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(s.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.dirty = false
	s.stored = true
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKey(id)).Err()
}

// MemoryStore is a process-local store used when Redis is unavailable and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// NewMemoryStore returns an in-process store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, id)
		return nil, ErrNotFound
	}
	return decode(id, e.raw)
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[strings.Clone(s.ID)] = memoryEntry{raw: raw, expires: m.now().Add(m.ttl)}
	s.dirty = false
	s.stored = true
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
