package handlers

import (
	"errors"
	"net/http"

	domain "training-enrollment/internal/domain/enrollment"
	"training-enrollment/internal/infrastructure/database"
	"training-enrollment/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
	// MissingTopics is set on prerequisite failures
	MissingTopics []string `json:"missing_topics,omitempty"`
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrInvalidArgument:
		return http.StatusBadRequest
	case domain.ErrConflict, domain.ErrCapacityExceeded:
		return http.StatusConflict
	case domain.ErrInvalidState, domain.ErrPrerequisitesNotMet:
		return http.StatusUnprocessableEntity
	case domain.ErrForbidden:
		return http.StatusForbidden
	case domain.ErrInfrastructure:
		if database.IsTransient(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)

	resp := APIResponse{
		Success: false,
		Message: message,
		Errors:  err.Error(),
	}

	var prereqErr *domain.PrerequisitesNotMetError
	if errors.As(err, &prereqErr) {
		resp.MissingTopics = prereqErr.Missing
	}

	if status >= http.StatusInternalServerError {
		logger.Error("%s: %v", message, err)
		resp.Errors = "internal error"
		if status == http.StatusServiceUnavailable {
			resp.Errors = "storage temporarily unavailable, retry later"
		}
	}

	_ = c.Error(err)
	c.JSON(status, resp)
}

func respondBadRequest(c *gin.Context, message string, errs interface{}) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Message: message,
		Errors:  errs,
	})
}

// retryTransient runs fn once more when the first attempt failed on a
// transient storage error
func retryTransient[T any](op string, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err != nil && database.IsTransient(err) {
		logger.Warn("Retrying %s after transient error: %v", op, err)
		result, err = fn()
	}
	return result, err
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondBadRequest(c, "Invalid "+name, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
