package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"tryout-service/internal/app"
	"tryout-service/internal/domain"
)

type resultRow struct {
	bun.BaseModel `bun:"table:attempt_results,alias:r"`

	ID            int64                     `bun:"id,pk,autoincrement"`
	AttemptID     string                    `bun:"attempt_id,notnull"`
	TryoutID      string                    `bun:"tryout_id,notnull"`
	UserID        string                    `bun:"user_id,notnull"`
	Earned        int                       `bun:"earned,notnull"`
	Possible      int                       `bun:"possible,notnull"`
	Percentage    int                       `bun:"percentage,notnull"`
	PassingScore  int                       `bun:"passing_score,notnull"`
	Passed        bool                      `bun:"passed,notnull"`
	Feedback      map[string]domain.Verdict `bun:"feedback,type:jsonb,notnull"`
	AutoSubmitted bool                      `bun:"auto_submitted,notnull"`
	SubmittedAt   time.Time                 `bun:"submitted_at,notnull"`
}

func (r resultRow) toDomain() domain.AttemptRecord {
	feedback := r.Feedback
	if feedback == nil {
		feedback = map[string]domain.Verdict{}
	}
	return domain.AttemptRecord{
		AttemptID: r.AttemptID,
		TryoutID:  r.TryoutID,
		UserID:    r.UserID,
		Result: domain.Result{
			Earned:       r.Earned,
			Possible:     r.Possible,
			Percentage:   r.Percentage,
			PassingScore: r.PassingScore,
			Passed:       r.Passed,
			Feedback:     feedback,
		},
		AutoSubmitted: r.AutoSubmitted,
		SubmittedAt:   r.SubmittedAt,
	}
}

// ResultStore keeps submitted attempts in attempt_results. It implements app.ResultRepository.
type ResultStore struct {
	db    *bun.DB
	limit int
}

var _ app.ResultRepository = (*ResultStore)(nil)

// NewResultStore returns a store whose List returns at most limit records (0 means 100).
func NewResultStore(db *bun.DB, limit int) *ResultStore {
	if limit <= 0 {
		limit = 100
	}
	return &ResultStore{db: db, limit: limit}
}

func (s *ResultStore) Save(ctx context.Context, record domain.AttemptRecord) error {
	row := resultRow{
		AttemptID:     record.AttemptID,
		TryoutID:      record.TryoutID,
		UserID:        record.UserID,
		Earned:        record.Result.Earned,
		Possible:      record.Result.Possible,
		Percentage:    record.Result.Percentage,
		PassingScore:  record.Result.PassingScore,
		Passed:        record.Result.Passed,
		Feedback:      record.Result.Feedback,
		AutoSubmitted: record.AutoSubmitted,
		SubmittedAt:   record.SubmittedAt,
	}
	if row.Feedback == nil {
		row.Feedback = map[string]domain.Verdict{}
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// List returns the newest results of a tryout first, narrowed to userID when set.
func (s *ResultStore) List(ctx context.Context, tryoutID, userID string) ([]domain.AttemptRecord, error) {
	var rows []resultRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("r.tryout_id = ?", tryoutID).
		OrderExpr("r.submitted_at DESC, r.id DESC").
		Limit(s.limit)
	if userID != "" {
		q = q.Where("r.user_id = ?", userID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.AttemptRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
