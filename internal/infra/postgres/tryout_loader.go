package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tryout-service/internal/domain"
)

// TryoutLoader loads a tryout and its ordered questions from Postgres for attempts.
type TryoutLoader struct {
	pool *pgxpool.Pool
}

func NewTryoutLoader(pool *pgxpool.Pool) *TryoutLoader {
	return &TryoutLoader{pool: pool}
}

func (l *TryoutLoader) LoadTryout(ctx context.Context, tryoutID string) (domain.Tryout, error) {
	var (
		t      domain.Tryout
		topics []byte
	)
	err := l.pool.QueryRow(ctx, `
		SELECT id, title, description, long_description, category, difficulty, duration,
		       passing_score, topics, creator, featured, participants, created_at
		FROM tryouts WHERE id=$1`, tryoutID).Scan(
		&t.ID, &t.Title, &t.Description, &t.LongDescription, &t.Category, &t.Difficulty, &t.Duration,
		&t.PassingScore, &topics, &t.Creator, &t.Featured, &t.Participants, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tryout{}, domain.ErrTryoutNotFound
	}
	if err != nil {
		return domain.Tryout{}, fmt.Errorf("load tryout: %w", err)
	}
	if t.Topics, err = decodeTopics(topics); err != nil {
		return domain.Tryout{}, fmt.Errorf("unmarshal topics: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, tryout_id, text, type, points, options, correct_answer
		FROM questions WHERE tryout_id=$1 ORDER BY position, id`, tryoutID)
	if err != nil {
		return domain.Tryout{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q       domain.Question
			qtype   string
			options []byte
			correct *string
		)
		if err := rows.Scan(&q.ID, &q.TryoutID, &q.Text, &qtype, &q.Points, &options, &correct); err != nil {
			return domain.Tryout{}, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qtype)
		q, err = decodeQuestion(q, options, correct)
		if err != nil {
			return domain.Tryout{}, err
		}
		t.Questions = append(t.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Tryout{}, fmt.Errorf("load questions: %w", err)
	}
	t.QuestionCount = len(t.Questions)
	return t, nil
}
