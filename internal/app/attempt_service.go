package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tryout-service/internal/attempt"
	"tryout-service/internal/domain"
	"tryout-service/internal/logger"
	"tryout-service/internal/metrics"
)

// SessionRepository abstracts where live attempts are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(a *Attempt)
	Get(attemptID string) (*Attempt, bool)
	Delete(attemptID string)
	Len() int
}

// CatalogRepository loads a tryout with its questions (from cache/backing store).
type CatalogRepository interface {
	GetTryout(ctx context.Context, tryoutID string) (domain.Tryout, error)
}

// ResultRepository keeps the history of submitted attempts.
type ResultRepository interface {
	Save(ctx context.Context, record domain.AttemptRecord) error
	List(ctx context.Context, tryoutID, userID string) ([]domain.AttemptRecord, error)
}

// ExpiryPolicy decides what happens when an attempt's countdown reaches zero.
type ExpiryPolicy string

const (
	// ExpiryNone leaves the attempt open with the timer at zero; the respondent still submits.
	ExpiryNone ExpiryPolicy = "none"
	// ExpiryAutoSubmit submits the attempt on the Expired transition.
	ExpiryAutoSubmit ExpiryPolicy = "auto_submit"
)

// ParseExpiryPolicy maps a config string to a policy, defaulting to ExpiryNone.
func ParseExpiryPolicy(raw string) ExpiryPolicy {
	if ExpiryPolicy(raw) == ExpiryAutoSubmit {
		return ExpiryAutoSubmit
	}
	return ExpiryNone
}

// AttemptOptions are the service-wide attempt settings.
type AttemptOptions struct {
	// DefaultPassingScore applies to tryouts without their own threshold; nil means 70.
	DefaultPassingScore *int
	EmptyCatalog        attempt.EmptyCatalogPolicy
	Expiry              ExpiryPolicy
}

// Attempt is a live session bound to one tryout and one user. All access to the
// underlying session goes through Do so that concurrent readers never interleave.
type Attempt struct {
	ID        string
	TryoutID  string
	UserID    string
	Title     string
	StartedAt time.Time

	mu      sync.Mutex
	session *attempt.Session
}

// NewAttempt wraps an already-begun session.
func NewAttempt(id, tryoutID, userID string, session *attempt.Session) *Attempt {
	return &Attempt{
		ID:        id,
		TryoutID:  tryoutID,
		UserID:    userID,
		StartedAt: time.Now(),
		session:   session,
	}
}

// Do runs fn with exclusive access to the session.
func (a *Attempt) Do(fn func(s *attempt.Session) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.session)
}

// View returns a snapshot of the attempt.
func (a *Attempt) View() attempt.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.View()
}

// Remaining returns the seconds left on the attempt's timer; ok is false when untimed.
func (a *Attempt) Remaining() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Remaining()
}

// AttemptService contains the attempt use cases.
type AttemptService struct {
	catalogs CatalogRepository
	sessions SessionRepository
	results  ResultRepository
	opts     AttemptOptions
	passing  int
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
}

func NewAttemptService(catalogs CatalogRepository, sessions SessionRepository, results ResultRepository, opts AttemptOptions, m *metrics.Metrics) *AttemptService {
	if opts.EmptyCatalog == "" {
		opts.EmptyCatalog = attempt.EmptyByThreshold
	}
	if opts.Expiry == "" {
		opts.Expiry = ExpiryNone
	}
	passing := domain.DefaultPassingScore
	if opts.DefaultPassingScore != nil {
		passing = *opts.DefaultPassingScore
	}
	return &AttemptService{
		passing:  passing,
		catalogs: catalogs,
		sessions: sessions,
		results:  results,
		opts:     opts,
		metrics:  m,
		log:      logger.Component("attempts"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ExpiryPolicy reports the configured expiry behaviour.
func (s *AttemptService) ExpiryPolicy() ExpiryPolicy {
	return s.opts.Expiry
}

// Start loads the tryout, builds its catalog and registers a new running attempt.
func (s *AttemptService) Start(ctx context.Context, tryoutID, userID string) (*Attempt, error) {
	tryout, err := s.catalogs.GetTryout(ctx, tryoutID)
	if err != nil {
		return nil, err
	}
	catalog, err := attempt.NewCatalog(tryout.Questions)
	if err != nil {
		return nil, fmt.Errorf("tryout %s: %w", tryoutID, err)
	}

	session := attempt.NewSession(catalog, attempt.Settings{
		DurationSeconds: tryout.DurationSeconds(),
		PassingScore:    tryout.Threshold(s.passing),
		EmptyCatalog:    s.opts.EmptyCatalog,
	})
	session.Begin()

	a := NewAttempt(s.newID(), tryoutID, userID, session)
	a.Title = tryout.Title
	a.StartedAt = s.now()
	s.sessions.Put(a)

	s.metrics.AttemptStarted(tryoutID, false)
	s.metrics.SetActive(s.sessions.Len())
	s.log.Info().
		Str("attempt", a.ID).
		Str("tryout", tryoutID).
		Str("user", userID).
		Int("questions", catalog.Len()).
		Msg("attempt started")
	return a, nil
}

// ScoreSubmission grades a complete set of raw answers against a tryout without
// creating a live attempt. Nothing is recorded.
func (s *AttemptService) ScoreSubmission(ctx context.Context, tryoutID string, raw map[string]json.RawMessage) (domain.Result, error) {
	tryout, err := s.catalogs.GetTryout(ctx, tryoutID)
	if err != nil {
		return domain.Result{}, err
	}
	catalog, err := attempt.NewCatalog(tryout.Questions)
	if err != nil {
		return domain.Result{}, fmt.Errorf("tryout %s: %w", tryoutID, err)
	}
	answers, err := domain.DecodeAnswers(tryout.Questions, raw)
	if err != nil {
		return domain.Result{}, err
	}
	return attempt.Score(catalog, answers, attempt.ScoreOptions{
		PassingScore: tryout.Threshold(s.passing),
		EmptyCatalog: s.opts.EmptyCatalog,
	}), nil
}

// Get returns a live attempt.
func (s *AttemptService) Get(attemptID string) (*Attempt, error) {
	a, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return a, nil
}

// Submit scores the attempt and appends it to the result history. auto marks a
// submission triggered by timer expiry.
func (s *AttemptService) Submit(ctx context.Context, a *Attempt, auto bool) (domain.Result, error) {
	var res domain.Result
	err := a.Do(func(session *attempt.Session) error {
		var err error
		res, err = session.Submit()
		return err
	})
	if err != nil {
		return domain.Result{}, err
	}

	s.metrics.AttemptScored(a.TryoutID, res.Percentage, res.Passed, auto)
	s.log.Info().
		Str("attempt", a.ID).
		Int("earned", res.Earned).
		Int("possible", res.Possible).
		Int("percentage", res.Percentage).
		Bool("passed", res.Passed).
		Bool("auto", auto).
		Msg("attempt submitted")

	if s.results != nil {
		record := domain.AttemptRecord{
			AttemptID:     a.ID,
			TryoutID:      a.TryoutID,
			UserID:        a.UserID,
			Result:        res,
			AutoSubmitted: auto,
			SubmittedAt:   s.now(),
		}
		if err := s.results.Save(ctx, record); err != nil {
			// The result stands even if history could not be written.
			s.log.Error().Err(err).Str("attempt", a.ID).Msg("save result")
		}
	}
	return res, nil
}

// Expire applies the expiry policy to an attempt whose timer just reached zero.
// It reports whether the attempt was submitted.
func (s *AttemptService) Expire(ctx context.Context, a *Attempt) (domain.Result, bool, error) {
	if s.opts.Expiry != ExpiryAutoSubmit {
		return domain.Result{}, false, nil
	}
	res, err := s.Submit(ctx, a, true)
	if err != nil {
		return domain.Result{}, false, err
	}
	return res, true, nil
}

// Retry resets the attempt over the same catalog and restarts its timer.
func (s *AttemptService) Retry(a *Attempt) attempt.View {
	var v attempt.View
	_ = a.Do(func(session *attempt.Session) error {
		session.Retry()
		v = session.View()
		return nil
	})
	// Re-register so stores that track liveness see the restarted timer.
	s.sessions.Put(a)
	s.metrics.AttemptStarted(a.TryoutID, true)
	s.log.Debug().Str("attempt", a.ID).Int("attempt_no", v.Attempt).Msg("attempt retried")
	return v
}

// Close stops the attempt's timer and drops it from the live store.
func (s *AttemptService) Close(attemptID string) {
	a, ok := s.sessions.Get(attemptID)
	if !ok {
		return
	}
	_ = a.Do(func(session *attempt.Session) error {
		session.Close()
		return nil
	})
	s.sessions.Delete(attemptID)
	s.metrics.SetActive(s.sessions.Len())
	s.log.Debug().Str("attempt", attemptID).Msg("attempt closed")
}

// Results lists the submitted attempts of a tryout, optionally narrowed to one user.
func (s *AttemptService) Results(ctx context.Context, tryoutID, userID string) ([]domain.AttemptRecord, error) {
	if s.results == nil {
		return []domain.AttemptRecord{}, nil
	}
	return s.results.List(ctx, tryoutID, userID)
}
