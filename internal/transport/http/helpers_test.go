package http

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tryout-service/internal/app"
	"tryout-service/internal/domain"
	"tryout-service/internal/infra/memory"
	"tryout-service/internal/metrics"
)

// testContext returns a context canceled when the test finishes
// (equivalent of testing.T.Context, which requires Go 1.24).
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

type testEnv struct {
	router   *gin.Engine
	tryouts  *app.TryoutService
	attempts *app.AttemptService
	ws       *WSHandler
	store    *memory.TryoutStore
}

func newTestEnv(t *testing.T, opts app.AttemptOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewTryoutStore(sampleTryout())
	catalogs := memory.NewCatalogRepository(store, time.Minute)
	m := metrics.New()
	attempts := app.NewAttemptService(catalogs, memory.NewSessionStore(), memory.NewResultStore(0), opts, m)
	tryouts := app.NewTryoutService(store, app.Lookups{}, catalogs)
	ws := NewWSHandler(attempts, time.Second)

	router := NewRouter(Handlers{
		Tryouts:  NewTryoutHandler(tryouts),
		Attempts: NewAttemptHandler(attempts),
		WS:       ws,
	}, m, nil)

	return &testEnv{router: router, tryouts: tryouts, attempts: attempts, ws: ws, store: store}
}

func sampleTryout() domain.Tryout {
	passing := 60
	return domain.Tryout{
		ID:           "tryout-1",
		Title:        "Go basics",
		Description:  "Warm-up",
		Category:     "Programming",
		Difficulty:   "Beginner",
		Duration:     1,
		PassingScore: &passing,
		Topics:       []string{"syntax"},
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "What is 2 + 2?",
				Type:          domain.MultipleChoice,
				Points:        1,
				Options:       []domain.Option{{ID: "o1", Text: "3"}, {ID: "o2", Text: "4"}},
				CorrectAnswer: domain.Choice("o2"),
			},
			{ID: "q2", Text: "Go has generics", Type: domain.TrueFalse, Points: 2, CorrectAnswer: domain.Bool(true)},
			{ID: "q3", Text: "Explain interfaces", Type: domain.Essay, Points: 1},
		},
	}
}
