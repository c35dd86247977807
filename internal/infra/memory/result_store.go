package memory

import (
	"context"
	"sync"

	"tryout-service/internal/domain"
)

// ResultStore keeps the newest submitted attempts per tryout, newest first.
type ResultStore struct {
	mu      sync.RWMutex
	limit   int
	records map[string][]domain.AttemptRecord
}

// NewResultStore keeps at most limit records per tryout; limit <= 0 keeps everything.
func NewResultStore(limit int) *ResultStore {
	return &ResultStore{
		limit:   limit,
		records: make(map[string][]domain.AttemptRecord),
	}
}

func (s *ResultStore) Save(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]domain.AttemptRecord{record}, s.records[record.TryoutID]...)
	if s.limit > 0 && len(list) > s.limit {
		list = list[:s.limit]
	}
	s.records[record.TryoutID] = list
	return nil
}

// List returns records of tryoutID, narrowed to userID when it is not empty.
func (s *ResultStore) List(_ context.Context, tryoutID, userID string) ([]domain.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptRecord, 0, len(s.records[tryoutID]))
	for _, r := range s.records[tryoutID] {
		if userID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}
