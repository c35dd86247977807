package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"tryout-service/internal/app"
	"tryout-service/internal/domain"
)

type tryoutRow struct {
	bun.BaseModel `bun:"table:tryouts,alias:t"`

	ID              string    `bun:"id,pk"`
	Title           string    `bun:"title,notnull"`
	Description     string    `bun:"description,notnull"`
	LongDescription string    `bun:"long_description,notnull"`
	Category        string    `bun:"category,notnull"`
	Difficulty      string    `bun:"difficulty,notnull"`
	Duration        int       `bun:"duration,notnull"`
	PassingScore    *int      `bun:"passing_score"`
	Topics          []string  `bun:"topics,type:jsonb,notnull"`
	Creator         string    `bun:"creator,notnull"`
	Featured        bool      `bun:"featured,notnull"`
	Participants    int       `bun:"participants,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	QuestionCount   int       `bun:"question_count,scanonly"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            string          `bun:"id,pk"`
	TryoutID      string          `bun:"tryout_id,notnull"`
	Position      int             `bun:"position,notnull"`
	Text          string          `bun:"text,notnull"`
	Type          string          `bun:"type,notnull"`
	Points        int             `bun:"points,notnull"`
	Options       []domain.Option `bun:"options,type:jsonb,notnull"`
	CorrectAnswer *string         `bun:"correct_answer"`
}

func toTryoutRow(t domain.Tryout) tryoutRow {
	topics := t.Topics
	if topics == nil {
		topics = []string{}
	}
	return tryoutRow{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		LongDescription: t.LongDescription,
		Category:        t.Category,
		Difficulty:      t.Difficulty,
		Duration:        t.Duration,
		PassingScore:    t.PassingScore,
		Topics:          topics,
		Creator:         t.Creator,
		Featured:        t.Featured,
		Participants:    t.Participants,
		CreatedAt:       t.CreatedAt,
	}
}

func (r tryoutRow) toDomain() domain.Tryout {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return domain.Tryout{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		LongDescription: r.LongDescription,
		Category:        r.Category,
		Difficulty:      r.Difficulty,
		Duration:        r.Duration,
		PassingScore:    r.PassingScore,
		Topics:          topics,
		Creator:         r.Creator,
		Featured:        r.Featured,
		Participants:    r.Participants,
		QuestionCount:   r.QuestionCount,
		CreatedAt:       r.CreatedAt,
	}
}

func toQuestionRow(q domain.Question) (questionRow, error) {
	correct, err := encodeCorrectAnswer(q.CorrectAnswer)
	if err != nil {
		return questionRow{}, err
	}
	options := q.Options
	if options == nil {
		options = []domain.Option{}
	}
	return questionRow{
		ID:            q.ID,
		TryoutID:      q.TryoutID,
		Text:          q.Text,
		Type:          string(q.Type),
		Points:        q.Points,
		Options:       options,
		CorrectAnswer: correct,
	}, nil
}

func (r questionRow) toDomain() (domain.Question, error) {
	q := domain.Question{
		ID:       r.ID,
		TryoutID: r.TryoutID,
		Text:     r.Text,
		Type:     domain.QuestionType(r.Type),
		Points:   r.Points,
		Options:  r.Options,
	}
	return decodeQuestion(q, nil, r.CorrectAnswer)
}

// TryoutStore is the bun-backed authoring store. It implements app.TryoutStore.
type TryoutStore struct {
	db *bun.DB
}

var _ app.TryoutStore = (*TryoutStore)(nil)

func NewTryoutStore(db *bun.DB) *TryoutStore {
	return &TryoutStore{db: db}
}

func (s *TryoutStore) ListTryouts(ctx context.Context, filter domain.TryoutFilter) ([]domain.Tryout, error) {
	var rows []tryoutRow
	q := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT count(*) FROM questions AS q WHERE q.tryout_id = t.id) AS question_count").
		OrderExpr("t.created_at DESC, t.id")
	if filter.Category != "" && filter.Category != "all" {
		q = q.Where("t.category = ?", filter.Category)
	}
	if filter.Difficulty != "" && filter.Difficulty != "all" {
		q = q.Where("t.difficulty = ?", filter.Difficulty)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("t.title ILIKE ?", pattern).WhereOr("t.description ILIKE ?", pattern)
		})
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tryouts: %w", err)
	}
	out := make([]domain.Tryout, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *TryoutStore) GetTryout(ctx context.Context, tryoutID string) (domain.Tryout, error) {
	var row tryoutRow
	err := s.db.NewSelect().
		Model(&row).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT count(*) FROM questions AS q WHERE q.tryout_id = t.id) AS question_count").
		Where("t.id = ?", tryoutID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Tryout{}, domain.ErrTryoutNotFound
	}
	if err != nil {
		return domain.Tryout{}, fmt.Errorf("get tryout: %w", err)
	}
	return row.toDomain(), nil
}

func (s *TryoutStore) CreateTryout(ctx context.Context, t domain.Tryout) error {
	row := toTryoutRow(t)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("create tryout: %w", err)
	}
	return nil
}

func (s *TryoutStore) UpdateTryout(ctx context.Context, t domain.Tryout) error {
	row := toTryoutRow(t)
	res, err := s.db.NewUpdate().
		Model(&row).
		ExcludeColumn("created_at", "participants").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update tryout: %w", err)
	}
	return requireAffected(res, domain.ErrTryoutNotFound)
}

func (s *TryoutStore) DeleteTryout(ctx context.Context, tryoutID string) error {
	res, err := s.db.NewDelete().
		Model((*tryoutRow)(nil)).
		Where("id = ?", tryoutID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete tryout: %w", err)
	}
	return requireAffected(res, domain.ErrTryoutNotFound)
}

func (s *TryoutStore) ListQuestions(ctx context.Context, tryoutID string) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("q.tryout_id = ?", tryoutID).
		OrderExpr("q.position, q.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		q, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *TryoutStore) GetQuestion(ctx context.Context, tryoutID, questionID string) (domain.Question, error) {
	var row questionRow
	err := s.db.NewSelect().
		Model(&row).
		Where("q.tryout_id = ?", tryoutID).
		Where("q.id = ?", questionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return row.toDomain()
}

// CreateQuestion appends q after the tryout's last question.
func (s *TryoutStore) CreateQuestion(ctx context.Context, q domain.Question) error {
	row, err := toQuestionRow(q)
	if err != nil {
		return fmt.Errorf("encode question: %w", err)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*tryoutRow)(nil)).Where("t.id = ?", q.TryoutID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check tryout: %w", err)
		}
		if !exists {
			return domain.ErrTryoutNotFound
		}
		var last sql.NullInt64
		err = tx.NewSelect().
			Model((*questionRow)(nil)).
			ColumnExpr("max(q.position)").
			Where("q.tryout_id = ?", q.TryoutID).
			Scan(ctx, &last)
		if err != nil {
			return fmt.Errorf("next question position: %w", err)
		}
		row.Position = int(last.Int64) + 1
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		return nil
	})
}

func (s *TryoutStore) UpdateQuestion(ctx context.Context, q domain.Question) error {
	row, err := toQuestionRow(q)
	if err != nil {
		return fmt.Errorf("encode question: %w", err)
	}
	res, err := s.db.NewUpdate().
		Model(&row).
		Column("text", "type", "points", "options", "correct_answer").
		Where("q.id = ?", q.ID).
		Where("q.tryout_id = ?", q.TryoutID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return requireAffected(res, domain.ErrQuestionNotFound)
}

func (s *TryoutStore) DeleteQuestion(ctx context.Context, tryoutID, questionID string) error {
	res, err := s.db.NewDelete().
		Model((*questionRow)(nil)).
		Where("id = ?", questionID).
		Where("tryout_id = ?", tryoutID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return requireAffected(res, domain.ErrQuestionNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
