// Package session implements cookie-backed authenticated sessions with an
// optional Redis store and a remember-me token that survives client restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL is how long an idle session survives in the store. Saving a session
// resets the clock.
const TTL = 24 * time.Hour

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Category string `json:"category"` // "success" or "warning"
	Message  string `json:"message"`
}

// Session is the server-side state bound to one client via the session cookie.
// UserID zero means anonymous.
type Session struct {
	ID     string  `json:"id"`
	UserID uint    `json:"user_id"`
	Flash  []Flash `json:"flash,omitempty"`
}

// Store persists sessions keyed by session ID.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store persisting sessions in Redis so they survive
// server restarts.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func sessionKey(id string) string {
	return "sess:" + id
}

func (s *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *redisStore) Save(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sess.ID), payload, TTL).Err()
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore returns an in-process Store used when no Redis is configured.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (s *memoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, nil
	}
	sess := entry.sess
	sess.Flash = append([]Flash(nil), entry.sess.Flash...)
	return &sess, nil
}

func (s *memoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	copied.Flash = append([]Flash(nil), sess.Flash...)
	s.entries[sess.ID] = memoryEntry{sess: copied, expiresAt: time.Now().Add(TTL)}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
