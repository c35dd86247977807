package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryout-service/internal/app"
	"tryout-service/internal/attempt"
	"tryout-service/internal/domain"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorBody      `json:"error"`
}

func doJSON(t *testing.T, env *testEnv, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var out envelope
	if bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestListTryoutsWithFilters(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})

	w, body := doJSON(t, env, http.MethodGet, "/api/v1/tryouts?category=all&search=GO", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Tryouts []domain.Tryout `json:"tryouts"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list.Tryouts, 1)
	assert.Equal(t, "tryout-1", list.Tryouts[0].ID)

	_, body = doJSON(t, env, http.MethodGet, "/api/v1/tryouts?difficulty=Advanced", nil)
	require.NoError(t, json.Unmarshal(body.Data, &list))
	assert.Empty(t, list.Tryouts)
}

func TestTryoutCRUD(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})

	w, body := doJSON(t, env, http.MethodPost, "/api/v1/tryouts", map[string]any{
		"title":       "Algebra",
		"description": "Linear equations",
		"category":    "Mathematics",
		"difficulty":  "Intermediate",
		"duration":    30,
		"topics":      []string{"equations"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Tryout
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	w, _ = doJSON(t, env, http.MethodPut, "/api/v1/tryouts/"+created.ID, map[string]any{
		"title":        "Algebra I",
		"description":  "Linear equations",
		"category":     "Mathematics",
		"difficulty":   "Intermediate",
		"duration":     45,
		"passingScore": 80,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, body = doJSON(t, env, http.MethodGet, "/api/v1/tryouts/"+created.ID, nil)
	var got domain.Tryout
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Equal(t, "Algebra I", got.Title)
	assert.Equal(t, 45, got.Duration)
	require.NotNil(t, got.PassingScore)
	assert.Equal(t, 80, *got.PassingScore)

	w, _ = doJSON(t, env, http.MethodDelete, "/api/v1/tryouts/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = doJSON(t, env, http.MethodGet, "/api/v1/tryouts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrNotFound, body.Error.Code)
}

func TestCreateTryoutValidation(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})

	w, body := doJSON(t, env, http.MethodPost, "/api/v1/tryouts", map[string]any{
		"title":        "x",
		"description":  "y",
		"category":     "Science",
		"difficulty":   "Beginner",
		"duration":     0,
		"passingScore": 120,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrValidation, body.Error.Code)
	assert.Contains(t, body.Error.Fields, "duration")
	assert.Contains(t, body.Error.Fields, "passingScore")

	w, body = doJSON(t, env, http.MethodPost, "/api/v1/tryouts", map[string]any{
		"title":       "   ",
		"description": "y",
		"category":    "Science",
		"difficulty":  "Beginner",
		"duration":    5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "title is required", body.Error.Fields["title"])
}

func TestQuestionLifecycleInvalidatesCatalog(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})
	ctx := testContext(t)

	// Warm the catalog cache.
	a, err := env.attempts.Start(ctx, "tryout-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, a.View().Total)

	w, body := doJSON(t, env, http.MethodPost, "/api/v1/tryouts/tryout-1/questions", map[string]any{
		"text":          "Pick a colour",
		"type":          "multiple_choice",
		"options":       []string{"red", "blue"},
		"correctAnswer": "blue",
		"points":        3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q domain.Question
	require.NoError(t, json.Unmarshal(body.Data, &q))
	assert.NotEmpty(t, q.ID)

	b, err := env.attempts.Start(ctx, "tryout-1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 4, b.View().Total, "a new attempt sees the added question")

	w, _ = doJSON(t, env, http.MethodPut, "/api/v1/tryouts/tryout-1/questions/"+q.ID, map[string]any{
		"text":          "Is the sky blue?",
		"type":          "true_false",
		"correctAnswer": true,
		"points":        1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, body = doJSON(t, env, http.MethodGet, "/api/v1/tryouts/tryout-1/questions", nil)
	var questions []json.RawMessage
	require.NoError(t, json.Unmarshal(body.Data, &questions))
	assert.Len(t, questions, 4)

	w, _ = doJSON(t, env, http.MethodDelete, "/api/v1/tryouts/tryout-1/questions/"+q.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = doJSON(t, env, http.MethodGet, "/api/v1/tryouts/tryout-1/questions/"+q.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateQuestionRejectsBadAnswerKey(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})

	w, body := doJSON(t, env, http.MethodPost, "/api/v1/tryouts/tryout-1/questions", map[string]any{
		"text":          "Pick",
		"type":          "multiple_choice",
		"options":       []string{"a", "b"},
		"correctAnswer": "c",
		"points":        1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Fields, "correctAnswer")

	w, body = doJSON(t, env, http.MethodPost, "/api/v1/tryouts/tryout-1/questions", map[string]any{
		"text":          "Sure?",
		"type":          "true_false",
		"correctAnswer": "yes",
		"points":        1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Fields, "correctAnswer")

	w, _ = doJSON(t, env, http.MethodPost, "/api/v1/tryouts/tryout-1/questions", map[string]any{
		"text":   "Huh",
		"type":   "matching",
		"points": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, env, http.MethodPost, "/api/v1/tryouts/missing/questions", map[string]any{
		"text":          "Sure?",
		"type":          "true_false",
		"correctAnswer": true,
		"points":        1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScoreEndpoint(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})

	w, body := doJSON(t, env, http.MethodPost, "/api/v1/tryouts/tryout-1/score", map[string]any{
		"answers": map[string]any{"q1": "o2", "q2": true, "q3": "because"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res domain.Result
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, 3, res.Earned)
	assert.Equal(t, 75, res.Percentage)
	assert.True(t, res.Passed)
	assert.Equal(t, domain.Ungraded, res.Feedback["q3"])

	w, body = doJSON(t, env, http.MethodPost, "/api/v1/tryouts/tryout-1/score", map[string]any{
		"answers": map[string]any{"q2": "true"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrInvalidAnswerType, body.Error.Code)

	w, _ = doJSON(t, env, http.MethodPost, "/api/v1/tryouts/missing/score", map[string]any{"answers": map[string]any{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttemptSnapshotAndResults(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})
	ctx := testContext(t)

	a, err := env.attempts.Start(ctx, "tryout-1", "u1")
	require.NoError(t, err)
	require.NoError(t, a.Do(func(s *attempt.Session) error {
		return s.Answer("q2", domain.Bool(true))
	}))

	w, body := doJSON(t, env, http.MethodGet, "/api/v1/attempts/"+a.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		AttemptID string     `json:"attemptId"`
		State     stateProbe `json:"state"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	assert.Equal(t, a.ID, snap.AttemptID)
	assert.Equal(t, 1, snap.State.Answered)

	_, err = env.attempts.Submit(ctx, a, false)
	require.NoError(t, err)

	_, body = doJSON(t, env, http.MethodGet, "/api/v1/tryouts/tryout-1/results?userId=u1", nil)
	var records []domain.AttemptRecord
	require.NoError(t, json.Unmarshal(body.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, 50, records[0].Result.Percentage)

	_, body = doJSON(t, env, http.MethodGet, "/api/v1/tryouts/tryout-1/results?userId=someone-else", nil)
	require.NoError(t, json.Unmarshal(body.Data, &records))
	assert.Empty(t, records)

	w, _ = doJSON(t, env, http.MethodGet, "/api/v1/attempts/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLookups(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})

	_, body := doJSON(t, env, http.MethodGet, "/api/v1/categories", nil)
	var categories []string
	require.NoError(t, json.Unmarshal(body.Data, &categories))
	assert.Equal(t, app.DefaultLookups.Categories, categories)

	_, body = doJSON(t, env, http.MethodGet, "/api/v1/difficulties", nil)
	var difficulties []string
	require.NoError(t, json.Unmarshal(body.Data, &difficulties))
	assert.Equal(t, app.DefaultLookups.Difficulties, difficulties)
}
