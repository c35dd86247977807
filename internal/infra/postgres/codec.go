package postgres

import (
	"encoding/json"
	"fmt"

	"tryout-service/internal/domain"
)

// Options and topics are stored as JSONB, the correct answer as a JSON literal in TEXT.

func encodeCorrectAnswer(a domain.Answer) (*string, error) {
	if !a.Present() {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func decodeQuestion(q domain.Question, options []byte, correct *string) (domain.Question, error) {
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.Question{}, fmt.Errorf("question %s options: %w", q.ID, err)
		}
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	if correct != nil {
		a, err := domain.DecodeAnswer(q.Type, json.RawMessage(*correct))
		if err != nil {
			return domain.Question{}, fmt.Errorf("question %s correct answer: %w", q.ID, err)
		}
		q.CorrectAnswer = a
	}
	return q, nil
}

func decodeTopics(raw []byte) ([]string, error) {
	topics := []string{}
	if len(raw) == 0 {
		return topics, nil
	}
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, nil
}
