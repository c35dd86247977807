package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tryout-service/internal/app"
	"tryout-service/internal/attempt"
)

// AttemptHandler exposes live attempt snapshots, stateless scoring and result history.
type AttemptHandler struct {
	service *app.AttemptService
}

func NewAttemptHandler(service *app.AttemptService) *AttemptHandler {
	return &AttemptHandler{service: service}
}

type attemptResponse struct {
	AttemptID string       `json:"attemptId"`
	TryoutID  string       `json:"tryoutId"`
	UserID    string       `json:"userId"`
	Title     string       `json:"title"`
	StartedAt time.Time    `json:"startedAt"`
	State     attempt.View `json:"state"`
}

func newAttemptResponse(a *app.Attempt) attemptResponse {
	return attemptResponse{
		AttemptID: a.ID,
		TryoutID:  a.TryoutID,
		UserID:    a.UserID,
		Title:     a.Title,
		StartedAt: a.StartedAt,
		State:     a.View(),
	}
}

// Get handles GET /attempts/:id
func (h *AttemptHandler) Get(c *gin.Context) {
	a, err := h.service.Get(c.Param("id"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, newAttemptResponse(a))
}

type scoreRequest struct {
	Answers map[string]json.RawMessage `json:"answers" binding:"required"`
}

// Score handles POST /tryouts/:id/score
func (h *AttemptHandler) Score(c *gin.Context) {
	var req scoreRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.service.ScoreSubmission(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, res)
}

// Results handles GET /tryouts/:id/results?userId=
func (h *AttemptHandler) Results(c *gin.Context) {
	records, err := h.service.Results(c.Request.Context(), c.Param("id"), c.Query("userId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, records)
}
