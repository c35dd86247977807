package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tryout-service/internal/domain"
)

// ErrCode identifies an API error class.
type ErrCode string

const (
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload    ErrCode = "INVALID_PAYLOAD"
	ErrInvalidAnswerType ErrCode = "INVALID_ANSWER_TYPE"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrConflict          ErrCode = "CONFLICT"
	ErrInternal          ErrCode = "INTERNAL_ERROR"
)

// Response is the API envelope.
type Response struct {
	Data  interface{} `json:"data"`
	Error *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Data: data})
}

func fail(c *gin.Context, status int, code ErrCode, message string, fields map[string]string) {
	c.JSON(status, Response{Error: &ErrorBody{Code: code, Message: message, Fields: fields}})
}

// failWithError maps domain errors to status codes.
func failWithError(c *gin.Context, err error) {
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		fail(c, http.StatusBadRequest, ErrValidation, err.Error(), map[string]string{cfgErr.Field: cfgErr.Message})
	case errors.Is(err, domain.ErrInvalidAnswerType):
		fail(c, http.StatusBadRequest, ErrInvalidAnswerType, err.Error(), nil)
	case errors.Is(err, domain.ErrTryoutNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, ErrNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrAttemptCompleted):
		fail(c, http.StatusConflict, ErrConflict, err.Error(), nil)
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrInternal, "internal server error", nil)
	}
}
