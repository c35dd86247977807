package memory

import (
	"context"
	"sort"
	"sync"

	"tryout-service/internal/app"
	"tryout-service/internal/domain"
)

// TryoutStore keeps authored tryouts in process. It implements app.TryoutStore and
// TryoutLoader, which makes it both the authoring backend and a catalog source.
type TryoutStore struct {
	mu        sync.RWMutex
	tryouts   map[string]domain.Tryout
	questions map[string][]domain.Question
}

// NewTryoutStore seeds the store with tryouts; their Questions become the question lists.
func NewTryoutStore(seed ...domain.Tryout) *TryoutStore {
	s := &TryoutStore{
		tryouts:   make(map[string]domain.Tryout, len(seed)),
		questions: make(map[string][]domain.Question, len(seed)),
	}
	for _, t := range seed {
		qs := make([]domain.Question, len(t.Questions))
		for i, q := range t.Questions {
			q.TryoutID = t.ID
			qs[i] = q
		}
		t.Questions = nil
		s.tryouts[t.ID] = t
		s.questions[t.ID] = qs
	}
	return s
}

func (s *TryoutStore) LoadTryout(_ context.Context, tryoutID string) (domain.Tryout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tryouts[tryoutID]
	if !ok {
		return domain.Tryout{}, domain.ErrTryoutNotFound
	}
	t.Questions = append([]domain.Question(nil), s.questions[tryoutID]...)
	t.QuestionCount = len(t.Questions)
	return t, nil
}

func (s *TryoutStore) ListTryouts(_ context.Context, filter domain.TryoutFilter) ([]domain.Tryout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tryout, 0, len(s.tryouts))
	for id, t := range s.tryouts {
		if !app.MatchesFilter(t, filter) {
			continue
		}
		t.QuestionCount = len(s.questions[id])
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *TryoutStore) GetTryout(_ context.Context, tryoutID string) (domain.Tryout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tryouts[tryoutID]
	if !ok {
		return domain.Tryout{}, domain.ErrTryoutNotFound
	}
	t.QuestionCount = len(s.questions[tryoutID])
	return t, nil
}

func (s *TryoutStore) CreateTryout(_ context.Context, t domain.Tryout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Questions = nil
	s.tryouts[t.ID] = t
	return nil
}

func (s *TryoutStore) UpdateTryout(_ context.Context, t domain.Tryout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tryouts[t.ID]; !ok {
		return domain.ErrTryoutNotFound
	}
	t.Questions = nil
	s.tryouts[t.ID] = t
	return nil
}

func (s *TryoutStore) DeleteTryout(_ context.Context, tryoutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tryouts[tryoutID]; !ok {
		return domain.ErrTryoutNotFound
	}
	delete(s.tryouts, tryoutID)
	delete(s.questions, tryoutID)
	return nil
}

func (s *TryoutStore) ListQuestions(_ context.Context, tryoutID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tryouts[tryoutID]; !ok {
		return nil, domain.ErrTryoutNotFound
	}
	return append([]domain.Question{}, s.questions[tryoutID]...), nil
}

func (s *TryoutStore) GetQuestion(_ context.Context, tryoutID, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions[tryoutID] {
		if q.ID == questionID {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *TryoutStore) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tryouts[q.TryoutID]; !ok {
		return domain.ErrTryoutNotFound
	}
	s.questions[q.TryoutID] = append(s.questions[q.TryoutID], q)
	return nil
}

func (s *TryoutStore) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs := s.questions[q.TryoutID]
	for i := range qs {
		if qs[i].ID == q.ID {
			qs[i] = q
			return nil
		}
	}
	return domain.ErrQuestionNotFound
}

func (s *TryoutStore) DeleteQuestion(_ context.Context, tryoutID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs := s.questions[tryoutID]
	for i := range qs {
		if qs[i].ID == questionID {
			s.questions[tryoutID] = append(qs[:i:i], qs[i+1:]...)
			return nil
		}
	}
	return domain.ErrQuestionNotFound
}
