// Package session persists import/review sessions.  A session is exclusively
// owned by one editing browser tab; the store only has to survive server
// restarts and share state between instances, which Redis covers.  When no
// Redis is reachable the service degrades to an in-process store, the same
// way caching and rate limiting degrade elsewhere.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/utsavhq/guestsheet/internal/model"
)

// ErrNotFound reports a session that expired or was cleared.
var ErrNotFound = errors.New("session: not found")

// Store is what handlers depend on.
type Store interface {
	Create(ctx context.Context, eventID, eventName string, table model.WorkingTable) (model.ImportSession, error)
	Get(ctx context.Context, id string) (model.ImportSession, error)
	Save(ctx context.Context, sess model.ImportSession) error
	Delete(ctx context.Context, id string) error
}

func newSession(eventID, eventName string, table model.WorkingTable) model.ImportSession {
	now := time.Now().UTC()
	return model.ImportSession{
		ID:        uuid.NewString(),
		EventID:   eventID,
		EventName: eventName,
		Table:     table,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RedisStore keeps sessions as JSON values with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore builds a store over rdb.  ttl bounds how long an abandoned
// session lingers; every Save renews it.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "guestsheet:session:" + id }

func (s *RedisStore) Create(ctx context.Context, eventID, eventName string, table model.WorkingTable) (model.ImportSession, error) {
	sess := newSession(eventID, eventName, table)
	if err := s.Save(ctx, sess); err != nil {
		return model.ImportSession{}, err
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (model.ImportSession, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return model.ImportSession{}, ErrNotFound
	}
	if err != nil {
		return model.ImportSession{}, fmt.Errorf("session: redis get: %w", err)
	}
	var sess model.ImportSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return model.ImportSession{}, fmt.Errorf("session: decode: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess model.ImportSession) error {
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.rdb.SetEx(ctx, sessionKey(sess.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// MemoryStore is the single-process fallback (and the store used in tests).
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.ImportSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.ImportSession)}
}

func (s *MemoryStore) Create(ctx context.Context, eventID, eventName string, table model.WorkingTable) (model.ImportSession, error) {
	sess := newSession(eventID, eventName, table)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.ImportSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return model.ImportSession{}, ErrNotFound
	}
	// Hand back a private copy of the table so callers cannot mutate the
	// stored one without going through Save.
	sess.Table = sess.Table.Clone()
	return sess, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess model.ImportSession) error {
	sess.UpdatedAt = time.Now().UTC()
	sess.Table = sess.Table.Clone()
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
