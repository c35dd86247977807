package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a bad question id or index reference.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAnswerType is returned when an answer's shape does not match its question type.
	ErrInvalidAnswerType = errors.New("answer type does not match question type")
	// ErrConfiguration marks authoring mistakes such as too few options or non-positive points.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrTryoutNotFound indicates the tryout content could not be loaded.
	ErrTryoutNotFound = errors.New("tryout not found")
	// ErrQuestionNotFound indicates a question id is unknown to its tryout.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrAttemptNotFound is returned when an attempt id is not live.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptCompleted is returned when an attempt is mutated or submitted after submission.
	ErrAttemptCompleted = errors.New("attempt already submitted")
)

// ConfigurationError reports which field of an authored tryout or question is invalid.
type ConfigurationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration on field '%s': %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError builds a ConfigurationError for field.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}
