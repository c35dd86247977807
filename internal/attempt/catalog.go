// Package attempt holds the state of one respondent's pass through a tryout:
// the question catalog, the answer ledger, the navigation cursor, the countdown
// timer and the scoring engine that turns them into a Result.
//
// Nothing in this package locks. A Session is owned by exactly one caller at a
// time; callers that share one across goroutines serialize access themselves.
package attempt

import (
	"fmt"

	"tryout-service/internal/domain"
)

// Catalog is the immutable, ordered set of questions for an attempt.
// Order is presentation order and drives cursor indices.
type Catalog struct {
	questions []domain.Question
	index     map[string]int
}

// NewCatalog copies questions into a catalog. Duplicate ids are a configuration error.
func NewCatalog(questions []domain.Question) (*Catalog, error) {
	c := &Catalog{
		questions: make([]domain.Question, len(questions)),
		index:     make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		if _, dup := c.index[q.ID]; dup {
			return nil, domain.NewConfigurationError("questions", fmt.Sprintf("duplicate question id %q", q.ID))
		}
		q.Options = append([]domain.Option(nil), q.Options...)
		c.questions[i] = q
		c.index[q.ID] = i
	}
	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.questions)
}

// QuestionAt returns the question at a presentation index.
func (c *Catalog) QuestionAt(i int) (domain.Question, error) {
	if i < 0 || i >= len(c.questions) {
		return domain.Question{}, fmt.Errorf("question index %d: %w", i, domain.ErrNotFound)
	}
	return c.questions[i], nil
}

// FindByID returns the question with id and its index.
func (c *Catalog) FindByID(id string) (domain.Question, int, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.Question{}, -1, fmt.Errorf("question %q: %w", id, domain.ErrNotFound)
	}
	return c.questions[i], i, nil
}

// Questions returns a copy of the catalog in presentation order.
func (c *Catalog) Questions() []domain.Question {
	return append([]domain.Question(nil), c.questions...)
}
