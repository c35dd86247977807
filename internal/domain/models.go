package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType determines the legal shape of a question's options and correct answer.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Essay          QuestionType = "essay"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, Essay:
		return true
	}
	return false
}

// DefaultPassingScore applies when a tryout does not specify its own threshold.
const DefaultPassingScore = 70

// Option represents a possible answer for a multiple choice question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// UnmarshalJSON accepts both {"id","text"} objects and bare strings; a bare string is its own id.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Option{ID: s, Text: s}
		return nil
	}
	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = p.Text
	}
	*o = Option(p)
	return nil
}

// Question is one item of a tryout. Its Type decides what Options and CorrectAnswer may hold.
type Question struct {
	ID            string       `json:"id"`
	TryoutID      string       `json:"tryoutId,omitempty"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Points        int          `json:"points"` // defaults to 1 if not positive
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer Answer       `json:"correctAnswer"`
}

// EffectivePoints returns the question's weight, defaulting non-positive points to 1.
func (q Question) EffectivePoints() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// HasOption reports whether optionID is one of the question's options.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// UnmarshalJSON decodes correctAnswer according to the question type.
func (q *Question) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID            string          `json:"id"`
		TryoutID      string          `json:"tryoutId"`
		Text          string          `json:"text"`
		Type          QuestionType    `json:"type"`
		Points        int             `json:"points"`
		Options       []Option        `json:"options"`
		CorrectAnswer json.RawMessage `json:"correctAnswer"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	correct, err := DecodeAnswer(w.Type, w.CorrectAnswer)
	if err != nil && w.Type.Valid() {
		return fmt.Errorf("question %s correctAnswer: %w", w.ID, err)
	}
	*q = Question{
		ID:            w.ID,
		TryoutID:      w.TryoutID,
		Text:          w.Text,
		Type:          w.Type,
		Points:        w.Points,
		Options:       w.Options,
		CorrectAnswer: correct,
	}
	return nil
}

// Tryout carries the metadata of a quiz and, when loaded for an attempt, its questions.
type Tryout struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	LongDescription string     `json:"longDescription,omitempty"`
	Category        string     `json:"category"`
	Difficulty      string     `json:"difficulty"`
	Duration        int        `json:"duration"` // minutes
	PassingScore    *int       `json:"passingScore,omitempty"`
	Topics          []string   `json:"topics"`
	Creator         string     `json:"creator,omitempty"`
	Featured        bool       `json:"featured"`
	Participants    int        `json:"participants"`
	QuestionCount   int        `json:"questionCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	Questions       []Question `json:"questions,omitempty"`
}

// DurationSeconds is the attempt length; zero or less means untimed.
func (t Tryout) DurationSeconds() int {
	if t.Duration <= 0 {
		return 0
	}
	return t.Duration * 60
}

// Threshold returns the tryout's passing score or fallback when it has none.
func (t Tryout) Threshold(fallback int) int {
	if t.PassingScore == nil {
		return fallback
	}
	return *t.PassingScore
}

// TryoutFilter narrows tryout listings.
type TryoutFilter struct {
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Search     string `json:"search,omitempty"`
}

// Verdict is the per-question feedback of a scored attempt.
type Verdict int8

const (
	// Ungraded marks questions that cannot be scored automatically (essays, missing key).
	Ungraded Verdict = iota
	Incorrect
	Correct
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "ungraded"
	}
}

// MarshalJSON renders Correct as true, Incorrect as false and Ungraded as null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case Correct:
		return []byte("true"), nil
	case Incorrect:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*v = Correct
	case "false":
		*v = Incorrect
	case "null":
		*v = Ungraded
	default:
		return fmt.Errorf("invalid verdict %s", data)
	}
	return nil
}

// Result is the immutable outcome of scoring one attempt.
type Result struct {
	Earned       int                `json:"earned"`
	Possible     int                `json:"possible"`
	Percentage   int                `json:"percentage"`
	PassingScore int                `json:"passingScore"`
	Passed       bool               `json:"passed"`
	Feedback     map[string]Verdict `json:"feedback"`
}

// AttemptRecord is a submitted attempt kept in result history.
type AttemptRecord struct {
	AttemptID     string    `json:"attemptId"`
	TryoutID      string    `json:"tryoutId"`
	UserID        string    `json:"userId"`
	Result        Result    `json:"result"`
	AutoSubmitted bool      `json:"autoSubmitted"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
