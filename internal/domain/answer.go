package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnswerKind tags which variant an Answer holds.
type AnswerKind uint8

const (
	// AnswerNone is the absent answer; it is distinct from an explicitly blank Text("").
	AnswerNone AnswerKind = iota
	AnswerChoice
	AnswerBool
	AnswerText
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerChoice:
		return "choice"
	case AnswerBool:
		return "bool"
	case AnswerText:
		return "text"
	default:
		return "none"
	}
}

// Answer is a respondent's value for one question, or the correct answer of a question.
// The zero value is AnswerNone.
type Answer struct {
	kind   AnswerKind
	choice string
	flag   bool
	text   string
}

// Choice answers a multiple choice question with an option id.
func Choice(optionID string) Answer {
	return Answer{kind: AnswerChoice, choice: optionID}
}

// Bool answers a true/false question.
func Bool(v bool) Answer {
	return Answer{kind: AnswerBool, flag: v}
}

// Text answers an essay question. Text("") is a blank answer, not an absent one.
func Text(s string) Answer {
	return Answer{kind: AnswerText, text: s}
}

// NoAnswer is the unanswered sentinel.
func NoAnswer() Answer {
	return Answer{}
}

func (a Answer) Kind() AnswerKind { return a.kind }

// Present reports whether the answer holds a value.
func (a Answer) Present() bool { return a.kind != AnswerNone }

func (a Answer) Choice() (string, bool) {
	return a.choice, a.kind == AnswerChoice
}

func (a Answer) Bool() (bool, bool) {
	return a.flag, a.kind == AnswerBool
}

func (a Answer) Text() (string, bool) {
	return a.text, a.kind == AnswerText
}

// Equal compares semantic values. Different kinds are never equal.
func (a Answer) Equal(b Answer) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case AnswerChoice:
		return a.choice == b.choice
	case AnswerBool:
		return a.flag == b.flag
	case AnswerText:
		return a.text == b.text
	default:
		return true
	}
}

func (a Answer) String() string {
	switch a.kind {
	case AnswerChoice:
		return "choice(" + a.choice + ")"
	case AnswerBool:
		return fmt.Sprintf("bool(%t)", a.flag)
	case AnswerText:
		return fmt.Sprintf("text(%q)", a.text)
	default:
		return "none"
	}
}

// MarshalJSON writes option ids and text as strings, true/false as booleans and None as null.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerChoice:
		return json.Marshal(a.choice)
	case AnswerBool:
		return json.Marshal(a.flag)
	case AnswerText:
		return json.Marshal(a.text)
	default:
		return []byte("null"), nil
	}
}

// AnswerKindFor returns the kind of answer a question type accepts.
func AnswerKindFor(t QuestionType) AnswerKind {
	switch t {
	case MultipleChoice:
		return AnswerChoice
	case TrueFalse:
		return AnswerBool
	case Essay:
		return AnswerText
	default:
		return AnswerNone
	}
}

// DecodeAnswer decodes a raw JSON value for a question of type t.
// An empty raw value or null decodes to NoAnswer. A string for a true/false question,
// a boolean for a multiple choice one, and similar mismatches return ErrInvalidAnswerType.
func DecodeAnswer(t QuestionType, raw json.RawMessage) (Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NoAnswer(), nil
	}

	switch AnswerKindFor(t) {
	case AnswerChoice, AnswerText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return NoAnswer(), fmt.Errorf("%w: %s expects a string", ErrInvalidAnswerType, t)
		}
		if t == MultipleChoice {
			return Choice(s), nil
		}
		return Text(s), nil
	case AnswerBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return NoAnswer(), fmt.Errorf("%w: %s expects a boolean", ErrInvalidAnswerType, t)
		}
		return Bool(b), nil
	default:
		return NoAnswer(), fmt.Errorf("%w: unknown question type %q", ErrInvalidAnswerType, t)
	}
}

// AnswerFromValue converts a loosely typed value (as produced by YAML or JSON decoding into any).
func AnswerFromValue(t QuestionType, v any) (Answer, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return NoAnswer(), fmt.Errorf("%w: %v", ErrInvalidAnswerType, err)
	}
	return DecodeAnswer(t, raw)
}

// DecodeAnswers decodes raw answers keyed by question id, each according to its question's
// type. Ids that match no question are skipped.
func DecodeAnswers(questions []Question, raw map[string]json.RawMessage) (map[string]Answer, error) {
	out := make(map[string]Answer, len(raw))
	for _, q := range questions {
		value, ok := raw[q.ID]
		if !ok {
			continue
		}
		a, err := DecodeAnswer(q.Type, value)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if a.Present() {
			out[q.ID] = a
		}
	}
	return out, nil
}
