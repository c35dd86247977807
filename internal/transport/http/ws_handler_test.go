package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryout-service/internal/app"
	"tryout-service/internal/attempt"
)

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialWS(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	if expect != "" {
		require.Equal(t, expect, msg.Type, "payload: %s", msg.Payload)
	}
	return msg
}

func sendWS(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

type stateProbe struct {
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Answered  int      `json:"answered"`
	Flagged   []string `json:"flagged"`
	Remaining *int     `json:"remaining"`
	Completed bool     `json:"completed"`
	Attempt   int      `json:"attempt"`
}

func decodeState(t *testing.T, raw json.RawMessage) stateProbe {
	t.Helper()
	var v stateProbe
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func withFakeTicker(env *testEnv) *fakeTicker {
	fake := &fakeTicker{ch: make(chan time.Time)}
	env.ws.newTicker = func(time.Duration) attempt.TickSource { return fake }
	return fake
}

func TestWebSocketAttemptFlow(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})
	withFakeTicker(env)
	conn := dialWS(t, env, "tryoutId=tryout-1&userId=u1")

	var started struct {
		AttemptID string          `json:"attemptId"`
		Title     string          `json:"title"`
		State     json.RawMessage `json:"state"`
	}
	require.NoError(t, json.Unmarshal(readNext(t, conn, "started").Payload, &started))
	assert.Equal(t, "Go basics", started.Title)
	assert.NotEmpty(t, started.AttemptID)
	v := decodeState(t, started.State)
	assert.Equal(t, 3, v.Total)
	require.NotNil(t, v.Remaining)
	assert.Equal(t, 60, *v.Remaining)

	sendWS(t, conn, "answer", map[string]any{"questionId": "q1", "value": "o2"})
	v = decodeState(t, readNext(t, conn, "state").Payload)
	assert.Equal(t, 1, v.Answered)

	sendWS(t, conn, "answer", map[string]any{"questionId": "q2", "value": "yes"})
	readNext(t, conn, "error")

	sendWS(t, conn, "answer", map[string]any{"questionId": "missing", "value": "o1"})
	readNext(t, conn, "error")

	sendWS(t, conn, "next", nil)
	assert.Equal(t, 1, decodeState(t, readNext(t, conn, "state").Payload).Index)

	sendWS(t, conn, "jump", map[string]any{"index": 9})
	assert.Equal(t, 1, decodeState(t, readNext(t, conn, "state").Payload).Index, "out of range jump is ignored")

	sendWS(t, conn, "flag", map[string]any{"questionId": "q3"})
	assert.Equal(t, []string{"q3"}, decodeState(t, readNext(t, conn, "state").Payload).Flagged)

	sendWS(t, conn, "previous", nil)
	assert.Equal(t, 0, decodeState(t, readNext(t, conn, "state").Payload).Index)

	sendWS(t, conn, "submit", nil)
	var result struct {
		Result struct {
			Earned     int              `json:"earned"`
			Possible   int              `json:"possible"`
			Percentage int              `json:"percentage"`
			Passed     bool             `json:"passed"`
			Feedback   map[string]*bool `json:"feedback"`
		} `json:"result"`
		AutoSubmitted bool `json:"autoSubmitted"`
	}
	require.NoError(t, json.Unmarshal(readNext(t, conn, "result").Payload, &result))
	assert.Equal(t, 1, result.Result.Earned)
	assert.Equal(t, 4, result.Result.Possible)
	assert.Equal(t, 25, result.Result.Percentage)
	assert.False(t, result.Result.Passed)
	assert.False(t, result.AutoSubmitted)
	require.NotNil(t, result.Result.Feedback["q1"])
	assert.True(t, *result.Result.Feedback["q1"])
	assert.Nil(t, result.Result.Feedback["q3"])

	sendWS(t, conn, "submit", nil)
	readNext(t, conn, "error")

	sendWS(t, conn, "retry", nil)
	require.NoError(t, json.Unmarshal(readNext(t, conn, "started").Payload, &started))
	v = decodeState(t, started.State)
	assert.Equal(t, 2, v.Attempt)
	assert.Zero(t, v.Answered)
	assert.False(t, v.Completed)

	sendWS(t, conn, "dance", nil)
	readNext(t, conn, "error")
}

func TestWebSocketAutoSubmitOnExpiry(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{Expiry: app.ExpiryAutoSubmit})
	fake := withFakeTicker(env)

	conn := dialWS(t, env, "tryoutId=tryout-1&userId=u1")
	readNext(t, conn, "started")

	sendWS(t, conn, "answer", map[string]any{"questionId": "q2", "value": true})
	readNext(t, conn, "state")

	for remaining := 59; remaining >= 0; remaining-- {
		fake.ch <- time.Now()
		var tick tickPayload
		require.NoError(t, json.Unmarshal(readNext(t, conn, "tick").Payload, &tick))
		require.Equal(t, remaining, tick.Remaining)
	}
	readNext(t, conn, "expired")

	var result struct {
		Result struct {
			Earned     int  `json:"earned"`
			Percentage int  `json:"percentage"`
			Passed     bool `json:"passed"`
		} `json:"result"`
		AutoSubmitted bool `json:"autoSubmitted"`
	}
	require.NoError(t, json.Unmarshal(readNext(t, conn, "result").Payload, &result))
	assert.True(t, result.AutoSubmitted)
	assert.Equal(t, 2, result.Result.Earned)
	assert.Equal(t, 50, result.Result.Percentage)

	// The stopped timer no longer ticks; the next message is the reply to flag.
	fake.ch <- time.Now()
	sendWS(t, conn, "flag", map[string]any{"questionId": "q1"})
	readNext(t, conn, "state")

	records, err := env.attempts.Results(testContext(t), "tryout-1", "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].AutoSubmitted)
}

func TestWebSocketExpiryWithoutPolicyKeepsAttemptOpen(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})
	fake := withFakeTicker(env)

	conn := dialWS(t, env, "tryoutId=tryout-1&userId=u1")
	readNext(t, conn, "started")

	for i := 0; i < 60; i++ {
		fake.ch <- time.Now()
		readNext(t, conn, "tick")
	}
	v := decodeState(t, readNext(t, conn, "expired").Payload)
	assert.False(t, v.Completed)

	sendWS(t, conn, "answer", map[string]any{"questionId": "q1", "value": "o2"})
	assert.Equal(t, 1, decodeState(t, readNext(t, conn, "state").Payload).Answered)

	sendWS(t, conn, "submit", nil)
	readNext(t, conn, "result")
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?tryoutId=tryout-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebSocketUnknownTryout(t *testing.T) {
	env := newTestEnv(t, app.AttemptOptions{})
	conn := dialWS(t, env, "tryoutId=missing&userId=u1")
	var p errorPayload
	require.NoError(t, json.Unmarshal(readNext(t, conn, "error").Payload, &p))
	assert.Contains(t, p.Message, "not found")
}
