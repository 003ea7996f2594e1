package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ApiError is an error with a known HTTP status. Message may hold format verbs
// filled in by New.
type ApiError struct {
	Status    int    `json:"-"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

var (
	ErrBadRequest = ApiError{Status: http.StatusBadRequest, ErrorCode: "BAD_REQUEST", Message: "%s"}
	ErrNotFound   = ApiError{Status: http.StatusNotFound, ErrorCode: "NOT_FOUND", Message: "%s not found"}
)

func (e ApiError) New(messages ...string) ApiError {
	args := make([]any, len(messages))
	for i, msg := range messages {
		args[i] = msg
	}

	message := fmt.Sprintf(e.Message, args...)
	return ApiError{
		Status:    e.Status,
		ErrorCode: e.ErrorCode,
		Message:   message,
	}
}

func (e ApiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// SendError writes err as JSON. Not-found errors use a "message" body, every
// other error an "error" body. Unknown errors are a 500 carrying err.Error().
func SendError(c *gin.Context, err error) {
	var apiErr ApiError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		if status == http.StatusNotFound {
			c.JSON(status, gin.H{"message": apiErr.Message})
			return
		}
		c.JSON(status, gin.H{"error": apiErr.Message})
		return
	}

	zerolog.Ctx(c.Request.Context()).Error().Stack().Err(err).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
