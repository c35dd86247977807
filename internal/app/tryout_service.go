package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tryout-service/internal/domain"
	"tryout-service/internal/logger"
)

// TryoutStore persists authored tryouts and their questions.
type TryoutStore interface {
	ListTryouts(ctx context.Context, filter domain.TryoutFilter) ([]domain.Tryout, error)
	GetTryout(ctx context.Context, tryoutID string) (domain.Tryout, error)
	CreateTryout(ctx context.Context, t domain.Tryout) error
	UpdateTryout(ctx context.Context, t domain.Tryout) error
	DeleteTryout(ctx context.Context, tryoutID string) error

	ListQuestions(ctx context.Context, tryoutID string) ([]domain.Question, error)
	GetQuestion(ctx context.Context, tryoutID, questionID string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, tryoutID, questionID string) error
}

// CatalogInvalidator is implemented by caches that must forget a tryout after it is edited.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, tryoutID string) error
}

// Lookups are the selectable categories and difficulties offered to authors.
type Lookups struct {
	Categories   []string
	Difficulties []string
}

// DefaultLookups is used when configuration provides none.
var DefaultLookups = Lookups{
	Categories:   []string{"Programming", "Mathematics", "Science", "Language", "General Knowledge"},
	Difficulties: []string{"Beginner", "Intermediate", "Advanced"},
}

// TryoutService contains the authoring use cases.
type TryoutService struct {
	store   TryoutStore
	caches  []CatalogInvalidator
	lookups Lookups
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
}

func NewTryoutService(store TryoutStore, lookups Lookups, caches ...CatalogInvalidator) *TryoutService {
	if len(lookups.Categories) == 0 {
		lookups.Categories = DefaultLookups.Categories
	}
	if len(lookups.Difficulties) == 0 {
		lookups.Difficulties = DefaultLookups.Difficulties
	}
	return &TryoutService{
		store:   store,
		caches:  caches,
		lookups: lookups,
		log:     logger.Component("tryouts"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *TryoutService) List(ctx context.Context, filter domain.TryoutFilter) ([]domain.Tryout, error) {
	return s.store.ListTryouts(ctx, filter)
}

func (s *TryoutService) Get(ctx context.Context, tryoutID string) (domain.Tryout, error) {
	return s.store.GetTryout(ctx, tryoutID)
}

// Create validates and stores a new tryout. Questions are added separately.
func (s *TryoutService) Create(ctx context.Context, t domain.Tryout) (domain.Tryout, error) {
	if err := domain.ValidateTryout(t); err != nil {
		return domain.Tryout{}, err
	}
	t.ID = s.newID()
	t.CreatedAt = s.now().UTC()
	t.Questions = nil
	t.QuestionCount = 0
	if err := s.store.CreateTryout(ctx, t); err != nil {
		return domain.Tryout{}, err
	}
	s.log.Info().Str("tryout", t.ID).Str("title", t.Title).Msg("tryout created")
	return t, nil
}

// Update replaces the metadata of an existing tryout; questions, creation time and
// participant count are kept.
func (s *TryoutService) Update(ctx context.Context, tryoutID string, t domain.Tryout) (domain.Tryout, error) {
	if err := domain.ValidateTryout(t); err != nil {
		return domain.Tryout{}, err
	}
	current, err := s.store.GetTryout(ctx, tryoutID)
	if err != nil {
		return domain.Tryout{}, err
	}
	t.ID = tryoutID
	t.CreatedAt = current.CreatedAt
	t.Participants = current.Participants
	t.QuestionCount = current.QuestionCount
	t.Questions = nil
	if err := s.store.UpdateTryout(ctx, t); err != nil {
		return domain.Tryout{}, err
	}
	s.invalidate(ctx, tryoutID)
	return t, nil
}

func (s *TryoutService) Delete(ctx context.Context, tryoutID string) error {
	if err := s.store.DeleteTryout(ctx, tryoutID); err != nil {
		return err
	}
	s.invalidate(ctx, tryoutID)
	s.log.Info().Str("tryout", tryoutID).Msg("tryout deleted")
	return nil
}

func (s *TryoutService) ListQuestions(ctx context.Context, tryoutID string) ([]domain.Question, error) {
	if _, err := s.store.GetTryout(ctx, tryoutID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(ctx, tryoutID)
}

func (s *TryoutService) GetQuestion(ctx context.Context, tryoutID, questionID string) (domain.Question, error) {
	return s.store.GetQuestion(ctx, tryoutID, questionID)
}

// CreateQuestion validates q and appends it to the tryout.
func (s *TryoutService) CreateQuestion(ctx context.Context, tryoutID string, q domain.Question) (domain.Question, error) {
	q = normalizeQuestion(q)
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	if _, err := s.store.GetTryout(ctx, tryoutID); err != nil {
		return domain.Question{}, err
	}
	q.ID = s.newID()
	q.TryoutID = tryoutID
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, tryoutID)
	return q, nil
}

func (s *TryoutService) UpdateQuestion(ctx context.Context, tryoutID, questionID string, q domain.Question) (domain.Question, error) {
	q = normalizeQuestion(q)
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	if _, err := s.store.GetQuestion(ctx, tryoutID, questionID); err != nil {
		return domain.Question{}, err
	}
	q.ID = questionID
	q.TryoutID = tryoutID
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, tryoutID)
	return q, nil
}

func (s *TryoutService) DeleteQuestion(ctx context.Context, tryoutID, questionID string) error {
	if err := s.store.DeleteQuestion(ctx, tryoutID, questionID); err != nil {
		return err
	}
	s.invalidate(ctx, tryoutID)
	return nil
}

// Categories returns the configured categories merged with those already in use.
func (s *TryoutService) Categories(ctx context.Context) ([]string, error) {
	tryouts, err := s.store.ListTryouts(ctx, domain.TryoutFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(s.lookups.Categories))
	out := make([]string, 0, len(s.lookups.Categories))
	for _, c := range s.lookups.Categories {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	var extra []string
	for _, t := range tryouts {
		if _, ok := seen[t.Category]; !ok && t.Category != "" {
			seen[t.Category] = struct{}{}
			extra = append(extra, t.Category)
		}
	}
	sort.Strings(extra)
	return append(out, extra...), nil
}

func (s *TryoutService) Difficulties() []string {
	return append([]string(nil), s.lookups.Difficulties...)
}

func (s *TryoutService) invalidate(ctx context.Context, tryoutID string) {
	for _, c := range s.caches {
		if err := c.Invalidate(ctx, tryoutID); err != nil {
			s.log.Warn().Err(err).Str("tryout", tryoutID).Msg("invalidate catalog cache")
		}
	}
}

func normalizeQuestion(q domain.Question) domain.Question {
	q.Text = strings.TrimSpace(q.Text)
	return q
}

// MatchesFilter reports whether t passes filter. Category and difficulty match exactly;
// search is a case-insensitive substring of the title or description.
func MatchesFilter(t domain.Tryout, filter domain.TryoutFilter) bool {
	if filter.Category != "" && filter.Category != "all" && t.Category != filter.Category {
		return false
	}
	if filter.Difficulty != "" && filter.Difficulty != "all" && t.Difficulty != filter.Difficulty {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}
