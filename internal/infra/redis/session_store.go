package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tryout-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in a local map; the engine state is owned by this process.
//   - Redis carries a liveness marker per attempt (tryout and user) so other
//     instances and operators can see which attempts are running.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *SessionStore) Put(a *app.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.ID] = a
	// best-effort liveness marker
	_ = s.client.HSet(context.Background(), s.key(a.ID), map[string]interface{}{
		"tryout":  a.TryoutID,
		"user":    a.UserID,
		"started": a.StartedAt.Unix(),
	}).Err()
	if s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(a.ID), s.markerTTL(a)).Err()
	}
}

// markerTTL keeps the marker alive for the rest of a timed attempt plus the
// configured ttl.
func (s *SessionStore) markerTTL(a *app.Attempt) time.Duration {
	ttl := s.ttl
	if remaining, ok := a.Remaining(); ok {
		ttl += time.Duration(remaining) * time.Second
	}
	return ttl
}

func (s *SessionStore) Get(attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	return a, ok
}

func (s *SessionStore) Delete(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attemptID]; !ok {
		return
	}
	delete(s.attempts, attemptID)
	_ = s.client.Del(context.Background(), s.key(attemptID)).Err()
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

func (s *SessionStore) key(attemptID string) string {
	return "tryout:attempt:" + attemptID
}
