package attempt

import "tryout-service/internal/domain"

// Ledger maps question ids to the respondent's current answers.
// It does not validate ids against a catalog; unknown ids are ignored when scoring.
type Ledger struct {
	answers map[string]domain.Answer
}

func NewLedger() *Ledger {
	return &Ledger{answers: make(map[string]domain.Answer)}
}

// Set upserts an answer. Setting NoAnswer removes the entry.
func (l *Ledger) Set(questionID string, answer domain.Answer) {
	if !answer.Present() {
		delete(l.answers, questionID)
		return
	}
	l.answers[questionID] = answer
}

// Get returns the answer for questionID, or NoAnswer when unanswered.
func (l *Ledger) Get(questionID string) domain.Answer {
	return l.answers[questionID]
}

func (l *Ledger) Len() int {
	return len(l.answers)
}

func (l *Ledger) Clear() {
	l.answers = make(map[string]domain.Answer)
}

// Snapshot returns a frozen copy; later Sets do not affect it.
func (l *Ledger) Snapshot() Answers {
	out := make(Answers, len(l.answers))
	for id, a := range l.answers {
		out[id] = a
	}
	return out
}

// Answers is a read-only view of a ledger, as consumed by Score.
type Answers map[string]domain.Answer

func (a Answers) Get(questionID string) domain.Answer {
	return a[questionID]
}
