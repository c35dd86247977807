package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tryout-service/internal/domain"
	"tryout-service/internal/infra/memory"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{TryoutLoader: memory.NewTryoutStore(sampleTryout())}
	repo := NewCatalogRepository(client, loader, time.Minute)

	first, err := repo.GetTryout(context.Background(), "tryout-1")
	if err != nil {
		t.Fatalf("get tryout: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if !mr.Exists("tryout:tryout-1:catalog") {
		t.Fatalf("expected catalog key to be set")
	}

	// Second call should hit cache, loader not incremented.
	second, err := repo.GetTryout(context.Background(), "tryout-1")
	if err != nil {
		t.Fatalf("get cached tryout: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}

	if len(second.Questions) != len(first.Questions) {
		t.Fatalf("expected %d questions from cache, got %d", len(first.Questions), len(second.Questions))
	}
	for i := range first.Questions {
		if !second.Questions[i].CorrectAnswer.Equal(first.Questions[i].CorrectAnswer) {
			t.Fatalf("question %s: correct answer %s did not survive the cache, got %s",
				first.Questions[i].ID, first.Questions[i].CorrectAnswer, second.Questions[i].CorrectAnswer)
		}
	}
	if second.Threshold(70) != 60 {
		t.Fatalf("expected passing score from cache, got %d", second.Threshold(70))
	}
}

func TestCatalogRepositoryInvalidateAndCorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{TryoutLoader: memory.NewTryoutStore(sampleTryout())}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	_, _ = repo.GetTryout(ctx, "tryout-1")
	if err := repo.Invalidate(ctx, "tryout-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("tryout:tryout-1:catalog") {
		t.Fatalf("expected catalog key removed")
	}

	_ = mr.Set("tryout:tryout-1:catalog", "{not json")
	if _, err := repo.GetTryout(ctx, "tryout-1"); err != nil {
		t.Fatalf("expected corrupt entry to fall back to loader: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload, loader calls=%d", loader.calls.Load())
	}
}

type countingLoader struct {
	memory.TryoutLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadTryout(ctx context.Context, tryoutID string) (domain.Tryout, error) {
	l.calls.Add(1)
	return l.TryoutLoader.LoadTryout(ctx, tryoutID)
}

func sampleTryout() domain.Tryout {
	passing := 60
	return domain.Tryout{
		ID:           "tryout-1",
		Title:        "Go basics",
		Description:  "Warm-up",
		Category:     "Programming",
		Difficulty:   "Beginner",
		Duration:     10,
		PassingScore: &passing,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "What is 2 + 2?",
				Type:          domain.MultipleChoice,
				Points:        1,
				Options:       []domain.Option{{ID: "o1", Text: "3"}, {ID: "o2", Text: "4"}},
				CorrectAnswer: domain.Choice("o2"),
			},
			{ID: "q2", Text: "Go has generics", Type: domain.TrueFalse, Points: 2, CorrectAnswer: domain.Bool(false)},
			{ID: "q3", Text: "Explain interfaces", Type: domain.Essay, Points: 1},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
