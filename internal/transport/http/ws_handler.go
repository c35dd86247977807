package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tryout-service/internal/app"
	"tryout-service/internal/attempt"
	"tryout-service/internal/domain"
	"tryout-service/internal/logger"
)

// WSHandler runs one live attempt per websocket connection.
type WSHandler struct {
	service   *app.AttemptService
	upgrader  websocket.Upgrader
	interval  time.Duration
	newTicker func(time.Duration) attempt.TickSource
	log       zerolog.Logger
}

func NewWSHandler(service *app.AttemptService, tickInterval time.Duration) *WSHandler {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval:  tickInterval,
		newTicker: attempt.NewTicker,
		log:       logger.Component("ws"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string          `json:"questionId"`
	Value      json.RawMessage `json:"value"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type flagPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type startedPayload struct {
	AttemptID string       `json:"attemptId"`
	TryoutID  string       `json:"tryoutId"`
	Title     string       `json:"title"`
	State     attempt.View `json:"state"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type resultPayload struct {
	Result        domain.Result `json:"result"`
	AutoSubmitted bool          `json:"autoSubmitted"`
	State         attempt.View  `json:"state"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts an attempt of ?tryoutId= for ?userId= and
// serves navigation, answers and submission until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tryoutID := r.URL.Query().Get("tryoutId")
	userID := r.URL.Query().Get("userId")
	if tryoutID == "" || userID == "" {
		http.Error(w, "missing tryoutId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	a, err := h.service.Start(ctx, tryoutID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Close(a.ID)

	ticker := h.newTicker(h.interval)
	defer ticker.Stop()

	inbound := make(chan inboundMessage)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	// The loop below is the only writer to conn.
	if !h.send(conn, "started", startedPayload{AttemptID: a.ID, TryoutID: a.TryoutID, Title: a.Title, State: a.View()}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case <-ticker.C():
			if !h.tick(ctx, conn, a) {
				return
			}
		case msg := <-inbound:
			if !h.handle(ctx, conn, a, msg) {
				return
			}
		}
	}
}

// tick advances the countdown of a running attempt and applies the expiry policy
// on the Expired transition.
func (h *WSHandler) tick(ctx context.Context, conn *websocket.Conn, a *app.Attempt) bool {
	var (
		running   bool
		expired   bool
		remaining int
	)
	_ = a.Do(func(s *attempt.Session) error {
		if s.Timer() != attempt.TimerRunning {
			return nil
		}
		running = true
		expired = s.Tick()
		remaining, _ = s.Remaining()
		return nil
	})
	if !running {
		return true
	}
	if !h.send(conn, "tick", tickPayload{Remaining: remaining}) {
		return false
	}
	if !expired {
		return true
	}
	if !h.send(conn, "expired", a.View()) {
		return false
	}
	res, submitted, err := h.service.Expire(ctx, a)
	if err != nil {
		return h.sendError(conn, err)
	}
	if submitted {
		return h.send(conn, "result", resultPayload{Result: res, AutoSubmitted: true, State: a.View()})
	}
	return true
}

func (h *WSHandler) handle(ctx context.Context, conn *websocket.Conn, a *app.Attempt, msg inboundMessage) bool {
	switch msg.Type {
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return h.sendError(conn, errInvalidPayload("answer"))
		}
		err := a.Do(func(s *attempt.Session) error {
			q, _, err := s.Catalog().FindByID(p.QuestionID)
			if err != nil {
				return err
			}
			answer, err := domain.DecodeAnswer(q.Type, p.Value)
			if err != nil {
				return err
			}
			return s.Answer(q.ID, answer)
		})
		if err != nil {
			return h.sendError(conn, err)
		}
	case "next":
		_ = a.Do(func(s *attempt.Session) error { s.Next(); return nil })
	case "previous":
		_ = a.Do(func(s *attempt.Session) error { s.Previous(); return nil })
	case "jump":
		var p jumpPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return h.sendError(conn, errInvalidPayload("jump"))
		}
		_ = a.Do(func(s *attempt.Session) error { s.JumpTo(p.Index); return nil })
	case "flag":
		var p flagPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.QuestionID == "" {
			return h.sendError(conn, errInvalidPayload("flag"))
		}
		_ = a.Do(func(s *attempt.Session) error { s.ToggleFlag(p.QuestionID); return nil })
	case "submit":
		res, err := h.service.Submit(ctx, a, false)
		if err != nil {
			return h.sendError(conn, err)
		}
		return h.send(conn, "result", resultPayload{Result: res, State: a.View()})
	case "retry":
		v := h.service.Retry(a)
		return h.send(conn, "started", startedPayload{AttemptID: a.ID, TryoutID: a.TryoutID, Title: a.Title, State: v})
	default:
		return h.sendError(conn, errUnsupported(msg.Type))
	}
	return h.send(conn, "state", a.View())
}

func (h *WSHandler) send(conn *websocket.Conn, typ string, payload any) bool {
	if err := conn.WriteJSON(outboundMessage[any]{Type: typ, Payload: payload}); err != nil {
		h.log.Debug().Err(err).Str("type", typ).Msg("ws write failed")
		return false
	}
	return true
}

func (h *WSHandler) sendError(conn *websocket.Conn, err error) bool {
	return h.send(conn, "error", errorPayload{Message: err.Error()})
}

func errInvalidPayload(typ string) error {
	return fmt.Errorf("invalid %s payload", typ)
}

func errUnsupported(typ string) error {
	return fmt.Errorf("unsupported message type %q", typ)
}
