package domain

import (
	"fmt"
	"strings"
)

// ValidateQuestion checks that a question's options and correct answer agree with its type.
// It is applied when questions are authored, never while scoring.
func ValidateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return NewConfigurationError("text", "question text is required")
	}
	if q.Points <= 0 {
		return NewConfigurationError("points", "points must be greater than 0")
	}

	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			return NewConfigurationError("options", "multiple choice questions must have at least 2 options")
		}
		seen := make(map[string]struct{}, len(q.Options))
		for i, opt := range q.Options {
			if strings.TrimSpace(opt.ID) == "" {
				return NewConfigurationError(fmt.Sprintf("options[%d].id", i), "option id is required")
			}
			if _, dup := seen[opt.ID]; dup {
				return NewConfigurationError(fmt.Sprintf("options[%d].id", i), "option ids must be unique")
			}
			seen[opt.ID] = struct{}{}
		}
		optionID, ok := q.CorrectAnswer.Choice()
		if !ok {
			return NewConfigurationError("correctAnswer", "please select a correct answer")
		}
		if !q.HasOption(optionID) {
			return NewConfigurationError("correctAnswer", fmt.Sprintf("correct answer %q is not one of the options", optionID))
		}
	case TrueFalse:
		if len(q.Options) > 0 {
			return NewConfigurationError("options", "true/false questions do not take options")
		}
		if _, ok := q.CorrectAnswer.Bool(); !ok {
			return NewConfigurationError("correctAnswer", "true/false questions need a boolean correct answer")
		}
	case Essay:
		if len(q.Options) > 0 {
			return NewConfigurationError("options", "essay questions do not take options")
		}
		if q.CorrectAnswer.Present() {
			return NewConfigurationError("correctAnswer", "essay questions are not auto-graded")
		}
	default:
		return NewConfigurationError("type", fmt.Sprintf("unsupported question type %q", q.Type))
	}
	return nil
}

// ValidateTryout checks tryout metadata entered in the authoring form.
func ValidateTryout(t Tryout) error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return NewConfigurationError("title", "title is required")
	case strings.TrimSpace(t.Description) == "":
		return NewConfigurationError("description", "description is required")
	case t.Category == "":
		return NewConfigurationError("category", "category is required")
	case t.Difficulty == "":
		return NewConfigurationError("difficulty", "difficulty is required")
	case t.Duration <= 0:
		return NewConfigurationError("duration", "duration must be greater than 0")
	}
	if t.PassingScore != nil && (*t.PassingScore < 0 || *t.PassingScore > 100) {
		return NewConfigurationError("passingScore", "passing score must be between 0 and 100")
	}
	return nil
}
