package attempt

import (
	"fmt"

	"tryout-service/internal/domain"
)

// Settings are read once when a session is created.
type Settings struct {
	DurationSeconds int
	PassingScore    int
	EmptyCatalog    EmptyCatalogPolicy
}

// Session is the mutable state of one attempt over a reusable catalog.
type Session struct {
	catalog  *Catalog
	settings Settings
	ledger   *Ledger
	cursor   *Cursor
	timer    Countdown

	completed bool
	result    *domain.Result
	attempts  int
}

func NewSession(catalog *Catalog, settings Settings) *Session {
	return &Session{
		catalog:  catalog,
		settings: settings,
		ledger:   NewLedger(),
		cursor:   NewCursor(catalog.Len()),
		attempts: 1,
	}
}

// Begin starts the countdown for the current attempt.
func (s *Session) Begin() {
	s.timer.Start(s.settings.DurationSeconds)
}

func (s *Session) Catalog() *Catalog {
	return s.catalog
}

func (s *Session) Settings() Settings {
	return s.settings
}

// Answer records an answer. Unknown question ids pass through to the ledger and are
// ignored by scoring; a known question rejects an answer of the wrong kind.
func (s *Session) Answer(questionID string, a domain.Answer) error {
	if s.completed {
		return domain.ErrAttemptCompleted
	}
	if q, _, err := s.catalog.FindByID(questionID); err == nil && a.Present() {
		if a.Kind() != domain.AnswerKindFor(q.Type) {
			return fmt.Errorf("question %s expects a %s answer, got %s: %w",
				q.ID, domain.AnswerKindFor(q.Type), a.Kind(), domain.ErrInvalidAnswerType)
		}
	}
	s.ledger.Set(questionID, a)
	return nil
}

// AnswerOf returns the current answer for questionID.
func (s *Session) AnswerOf(questionID string) domain.Answer {
	return s.ledger.Get(questionID)
}

func (s *Session) Next() bool { return s.cursor.Next() }

func (s *Session) Previous() bool { return s.cursor.Previous() }

func (s *Session) JumpTo(i int) bool { return s.cursor.JumpTo(i) }

func (s *Session) ToggleFlag(questionID string) bool { return s.cursor.ToggleFlag(questionID) }

func (s *Session) IsFlagged(questionID string) bool { return s.cursor.IsFlagged(questionID) }

func (s *Session) Index() int { return s.cursor.Index() }

// Current returns the question under the cursor.
func (s *Session) Current() (domain.Question, error) {
	return s.catalog.QuestionAt(s.cursor.Index())
}

// Tick advances the countdown only. It reports whether the timer expired on this tick;
// what happens on expiry is up to the caller.
func (s *Session) Tick() bool {
	return s.timer.Tick()
}

func (s *Session) Timer() TimerState {
	return s.timer.State()
}

// Remaining returns the seconds left; ok is false for an untimed attempt.
func (s *Session) Remaining() (int, bool) {
	return s.timer.Remaining()
}

func (s *Session) Expired() bool {
	return s.timer.Expired()
}

func (s *Session) Completed() bool {
	return s.completed
}

// Submit scores a frozen snapshot of the ledger. It succeeds once per attempt.
func (s *Session) Submit() (domain.Result, error) {
	if s.completed {
		return domain.Result{}, domain.ErrAttemptCompleted
	}
	res := Score(s.catalog, s.ledger.Snapshot(), ScoreOptions{
		PassingScore: s.settings.PassingScore,
		EmptyCatalog: s.settings.EmptyCatalog,
	})
	s.timer.Stop()
	s.completed = true
	s.result = &res
	return res, nil
}

// Result returns the result of the current attempt once submitted.
func (s *Session) Result() (domain.Result, bool) {
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// Retry discards answers, flags, position, result and timer, then starts a fresh countdown.
// The catalog is reused.
func (s *Session) Retry() {
	s.ledger.Clear()
	s.cursor.Reset()
	s.timer.Reset()
	s.completed = false
	s.result = nil
	s.attempts++
	s.Begin()
}

// Attempts counts how many times the catalog has been attempted in this session.
func (s *Session) Attempts() int {
	return s.attempts
}

// Close stops the countdown; the session should not be used afterwards.
func (s *Session) Close() {
	s.timer.Stop()
}

// QuestionView is a question as shown to the respondent, without its correct answer.
type QuestionView struct {
	ID       string              `json:"id"`
	Text     string              `json:"text"`
	Type     domain.QuestionType `json:"type"`
	Points   int                 `json:"points"`
	Options  []domain.Option     `json:"options,omitempty"`
	Answer   domain.Answer       `json:"answer"`
	Flagged  bool                `json:"flagged"`
	Answered bool                `json:"answered"`
}

// View is a read-only snapshot of the session for presentation.
type View struct {
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Current   *QuestionView  `json:"current,omitempty"`
	Questions []QuestionView `json:"questions"`
	Flagged   []string       `json:"flagged"`
	Answered  int            `json:"answered"`
	Timer     string         `json:"timer"`
	Remaining *int           `json:"remaining"`
	Completed bool           `json:"completed"`
	Attempt   int            `json:"attempt"`
	Result    *domain.Result `json:"result,omitempty"`
}

func (s *Session) View() View {
	v := View{
		Index:     s.cursor.Index(),
		Total:     s.catalog.Len(),
		Questions: make([]QuestionView, 0, s.catalog.Len()),
		Flagged:   s.cursor.Flagged(),
		Timer:     s.timer.State().String(),
		Completed: s.completed,
		Attempt:   s.attempts,
	}
	if remaining, ok := s.timer.Remaining(); ok {
		v.Remaining = &remaining
	}
	for _, q := range s.catalog.questions {
		a := s.ledger.Get(q.ID)
		qv := QuestionView{
			ID:       q.ID,
			Text:     q.Text,
			Type:     q.Type,
			Points:   q.EffectivePoints(),
			Options:  q.Options,
			Answer:   a,
			Flagged:  s.cursor.IsFlagged(q.ID),
			Answered: a.Present(),
		}
		if qv.Answered {
			v.Answered++
		}
		v.Questions = append(v.Questions, qv)
	}
	if v.Index < len(v.Questions) {
		current := v.Questions[v.Index]
		v.Current = &current
	}
	if s.result != nil {
		res := *s.result
		v.Result = &res
	}
	return v
}
