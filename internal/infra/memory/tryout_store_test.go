package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tryout-service/internal/domain"
)

func TestTryoutStoreFilters(t *testing.T) {
	other := sampleTryout()
	other.ID = "tryout-2"
	other.Title = "Algebra drills"
	other.Category = "Mathematics"
	other.Difficulty = "Advanced"
	other.CreatedAt = other.CreatedAt.Add(time.Hour)
	store := NewTryoutStore(sampleTryout(), other)
	ctx := context.Background()

	all, _ := store.ListTryouts(ctx, domain.TryoutFilter{})
	if len(all) != 2 || all[0].ID != "tryout-2" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[1].QuestionCount != 2 {
		t.Fatalf("expected question count 2, got %d", all[1].QuestionCount)
	}

	cases := []struct {
		name   string
		filter domain.TryoutFilter
		want   int
	}{
		{"category", domain.TryoutFilter{Category: "Mathematics"}, 1},
		{"all category", domain.TryoutFilter{Category: "all"}, 2},
		{"difficulty", domain.TryoutFilter{Difficulty: "Beginner"}, 1},
		{"search title", domain.TryoutFilter{Search: "ALGEBRA"}, 1},
		{"search description", domain.TryoutFilter{Search: "warm"}, 2},
		{"no match", domain.TryoutFilter{Category: "Science"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.ListTryouts(ctx, tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d tryouts, got %d", tc.want, len(got))
			}
		})
	}
}

func TestTryoutStoreQuestionLifecycle(t *testing.T) {
	store := NewTryoutStore(sampleTryout())
	ctx := context.Background()

	q := domain.Question{ID: "q3", TryoutID: "tryout-1", Text: "Explain channels", Type: domain.Essay, Points: 2}
	if err := store.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	loaded, err := store.LoadTryout(ctx, "tryout-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Questions) != 3 || loaded.Questions[2].ID != "q3" {
		t.Fatalf("expected q3 appended, got %+v", loaded.Questions)
	}

	q.Points = 5
	if err := store.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.GetQuestion(ctx, "tryout-1", "q3")
	if got.Points != 5 {
		t.Fatalf("expected updated points, got %d", got.Points)
	}

	if err := store.DeleteQuestion(ctx, "tryout-1", "q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	qs, _ := store.ListQuestions(ctx, "tryout-1")
	if len(qs) != 2 || qs[0].ID != "q2" {
		t.Fatalf("expected order preserved after delete, got %+v", qs)
	}
	if len(loaded.Questions) != 3 || loaded.Questions[0].ID != "q1" {
		t.Fatalf("loaded tryout must not alias the store")
	}

	if err := store.DeleteQuestion(ctx, "tryout-1", "q1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.CreateQuestion(ctx, domain.Question{ID: "x", TryoutID: "nope"}); !errors.Is(err, domain.ErrTryoutNotFound) {
		t.Fatalf("expected tryout not found, got %v", err)
	}
}

func TestTryoutStoreDelete(t *testing.T) {
	store := NewTryoutStore(sampleTryout())
	ctx := context.Background()
	if err := store.DeleteTryout(ctx, "tryout-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.LoadTryout(ctx, "tryout-1"); !errors.Is(err, domain.ErrTryoutNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.UpdateTryout(ctx, sampleTryout()); !errors.Is(err, domain.ErrTryoutNotFound) {
		t.Fatalf("expected update of deleted tryout to fail, got %v", err)
	}
}
