package attempt

import (
	"fmt"

	"tryout-service/internal/domain"
)

// EmptyCatalogPolicy decides the verdict of an attempt over a catalog with no questions.
type EmptyCatalogPolicy string

const (
	// EmptyByThreshold passes only when the threshold is 0, since the percentage is 0.
	EmptyByThreshold EmptyCatalogPolicy = "threshold"
	EmptyAlwaysFail  EmptyCatalogPolicy = "fail"
	EmptyAlwaysPass  EmptyCatalogPolicy = "pass"
)

// ParseEmptyCatalogPolicy maps a config string to a policy, defaulting to EmptyByThreshold.
func ParseEmptyCatalogPolicy(raw string) EmptyCatalogPolicy {
	switch EmptyCatalogPolicy(raw) {
	case EmptyAlwaysFail:
		return EmptyAlwaysFail
	case EmptyAlwaysPass:
		return EmptyAlwaysPass
	default:
		return EmptyByThreshold
	}
}

// ScoreOptions parameterizes Score.
type ScoreOptions struct {
	PassingScore int
	EmptyCatalog EmptyCatalogPolicy
}

// Gradable reports whether q can be scored automatically: a multiple choice or
// true/false question whose correct answer is defined with the matching kind.
func Gradable(q domain.Question) bool {
	switch q.Type {
	case domain.MultipleChoice, domain.TrueFalse:
		return q.CorrectAnswer.Kind() == domain.AnswerKindFor(q.Type)
	}
	return false
}

// Grade compares one answer with the question's correct answer.
// Non-gradable questions are Ungraded whatever the answer. An absent answer is Incorrect.
// An answer of the wrong kind is Incorrect together with ErrInvalidAnswerType.
func Grade(q domain.Question, a domain.Answer) (domain.Verdict, error) {
	if !Gradable(q) {
		return domain.Ungraded, nil
	}
	if !a.Present() {
		return domain.Incorrect, nil
	}
	if a.Kind() != q.CorrectAnswer.Kind() {
		return domain.Incorrect, fmt.Errorf("question %s: got %s answer: %w", q.ID, a.Kind(), domain.ErrInvalidAnswerType)
	}
	if a.Equal(q.CorrectAnswer) {
		return domain.Correct, nil
	}
	return domain.Incorrect, nil
}

// Score grades every question of the catalog in order against the answers.
// It has no side effects; identical inputs give identical Results.
func Score(catalog *Catalog, answers Answers, opts ScoreOptions) domain.Result {
	res := domain.Result{
		PassingScore: opts.PassingScore,
		Feedback:     make(map[string]domain.Verdict, catalog.Len()),
	}

	for _, q := range catalog.questions {
		points := q.EffectivePoints()
		res.Possible += points

		// Mismatched answer kinds degrade to Incorrect here; Session.Answer rejects them earlier.
		verdict, _ := Grade(q, answers.Get(q.ID))
		res.Feedback[q.ID] = verdict
		if verdict == domain.Correct {
			res.Earned += points
		}
	}

	res.Percentage = Percentage(res.Earned, res.Possible)
	if catalog.Len() == 0 {
		switch opts.EmptyCatalog {
		case EmptyAlwaysPass:
			res.Passed = true
		case EmptyAlwaysFail:
			res.Passed = false
		default:
			res.Passed = res.Percentage >= opts.PassingScore
		}
		return res
	}
	res.Passed = res.Percentage >= opts.PassingScore
	return res
}

// Percentage returns round(100*earned/possible) with halves rounded up, or 0 when possible is 0.
func Percentage(earned, possible int) int {
	if possible <= 0 {
		return 0
	}
	return (200*earned + possible) / (2 * possible)
}
