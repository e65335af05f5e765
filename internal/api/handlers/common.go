package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/service"
)

// Stable machine-readable error codes per operation.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeConflict         = "CONFLICT"
)

// APIError is the structured error object carried by failed responses.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// respond writes a success envelope.
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// fail writes a failure envelope.
func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Success: false, Error: &APIError{Code: code, Message: message}})
}

// handleServiceError maps service-layer errors to HTTP statuses and stable
// error codes. failedCode is the operation-specific fallback for
// unexpected failures.
func handleServiceError(c *gin.Context, err error, failedCode string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, CodeTemplateNotFound, "Template not found")
		return
	case errors.Is(err, service.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return
	case errors.Is(err, service.ErrForbidden):
		fail(c, http.StatusForbidden, CodeForbidden, "You do not own this template")
		return
	}

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		fail(c, http.StatusBadRequest, CodeValidationError, validationErr.Message)
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		fail(c, http.StatusConflict, CodeConflict, conflictErr.Message)
		return
	}

	slog.Error("unhandled service error", "error", err)
	fail(c, http.StatusInternalServerError, failedCode, "Internal server error")
}

// principalID returns the authenticated user's ID, or nil for anonymous
// requests.
func principalID(c *gin.Context) *uuid.UUID {
	if user := auth.CurrentUser(c); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// parseTemplateID parses the :id path parameter, failing the request with
// a 404 when it is not a valid UUID.
func parseTemplateID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, CodeTemplateNotFound, "Template not found")
		return uuid.Nil, false
	}
	return id, true
}
