package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tryout-service/internal/domain"
)

// ResultStore keeps submitted attempts as a capped JSON list per tryout, newest first.
// Stored as: LPUSH tryout:{tryoutID}:results {json}; LTRIM to limit; EXPIRE ttl
type ResultStore struct {
	client *redis.Client
	limit  int64
	ttl    time.Duration
}

// NewResultStore caps each tryout's list at limit entries; limit <= 0 keeps everything.
func NewResultStore(client *redis.Client, limit int, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, limit: int64(limit), ttl: ttl}
}

func (s *ResultStore) Save(ctx context.Context, record domain.AttemptRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal attempt record: %w", err)
	}
	key := s.key(record.TryoutID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if s.limit > 0 {
		pipe.LTrim(ctx, key, 0, s.limit-1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt record: %w", err)
	}
	return nil
}

func (s *ResultStore) List(ctx context.Context, tryoutID, userID string) ([]domain.AttemptRecord, error) {
	raw, err := s.client.LRange(ctx, s.key(tryoutID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempt records: %w", err)
	}
	out := make([]domain.AttemptRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.AttemptRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode attempt record: %w", err)
		}
		if userID == "" || rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *ResultStore) key(tryoutID string) string {
	return "tryout:" + tryoutID + ":results"
}
