package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"tryout-service/internal/app"
	"tryout-service/internal/domain"
)

// TryoutHandler serves tryout and question authoring.
type TryoutHandler struct {
	service *app.TryoutService
}

func NewTryoutHandler(service *app.TryoutService) *TryoutHandler {
	return &TryoutHandler{service: service}
}

type tryoutRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description" binding:"required"`
	LongDescription string   `json:"longDescription"`
	Category        string   `json:"category" binding:"required"`
	Difficulty      string   `json:"difficulty" binding:"required"`
	Duration        int      `json:"duration" binding:"required,gt=0"`
	PassingScore    *int     `json:"passingScore" binding:"omitempty,min=0,max=100"`
	Topics          []string `json:"topics"`
	Creator         string   `json:"creator"`
	Featured        bool     `json:"featured"`
}

func (r tryoutRequest) toDomain() domain.Tryout {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return domain.Tryout{
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
	}
}

type questionRequest struct {
	Text          string              `json:"text" binding:"required"`
	Type          domain.QuestionType `json:"type" binding:"required,oneof=multiple_choice true_false essay"`
	Options       []domain.Option     `json:"options"`
	CorrectAnswer json.RawMessage     `json:"correctAnswer"`
	Points        int                 `json:"points" binding:"required,gt=0"`
}

func (r questionRequest) toDomain() (domain.Question, error) {
	correct, err := domain.DecodeAnswer(r.Type, r.CorrectAnswer)
	if err != nil {
		return domain.Question{}, domain.NewConfigurationError("correctAnswer", err.Error())
	}
	return domain.Question{
		Text:          r.Text,
		Type:          r.Type,
		Points:        r.Points,
		Options:       r.Options,
		CorrectAnswer: correct,
	}, nil
}

// List handles GET /tryouts?category=&difficulty=&search=
func (h *TryoutHandler) List(c *gin.Context) {
	filter := domain.TryoutFilter{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
		Search:     c.Query("search"),
	}
	tryouts, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"tryouts": tryouts})
}

func (h *TryoutHandler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, t)
}

func (h *TryoutHandler) Create(c *gin.Context) {
	var req tryoutRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.service.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusCreated, t)
}

func (h *TryoutHandler) Update(c *gin.Context) {
	var req tryoutRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.service.Update(c.Request.Context(), c.Param("id"), req.toDomain())
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, t)
}

func (h *TryoutHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TryoutHandler) ListQuestions(c *gin.Context) {
	qs, err := h.service.ListQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, qs)
}

func (h *TryoutHandler) GetQuestion(c *gin.Context) {
	q, err := h.service.GetQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, q)
}

func (h *TryoutHandler) CreateQuestion(c *gin.Context) {
	var req questionRequest
	if !bind(c, &req) {
		return
	}
	q, err := req.toDomain()
	if err != nil {
		failWithError(c, err)
		return
	}
	q, err = h.service.CreateQuestion(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusCreated, q)
}

func (h *TryoutHandler) UpdateQuestion(c *gin.Context) {
	var req questionRequest
	if !bind(c, &req) {
		return
	}
	q, err := req.toDomain()
	if err != nil {
		failWithError(c, err)
		return
	}
	q, err = h.service.UpdateQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId"), q)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, q)
}

func (h *TryoutHandler) DeleteQuestion(c *gin.Context) {
	if err := h.service.DeleteQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId")); err != nil {
		failWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TryoutHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, categories)
}

func (h *TryoutHandler) Difficulties(c *gin.Context) {
	success(c, http.StatusOK, h.service.Difficulties())
}
