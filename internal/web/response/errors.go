package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/request"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse carries per-field messages
type ValidationErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Fields  map[string][]string `json:"fields"`
}

// HTTPError is an error with the status it should be rendered with
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    map[string]interface{}
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       errorCodeFromStatus(statusCode),
	}
}

// WithCode sets a custom error code
func (e *HTTPError) WithCode(code string) *HTTPError {
	e.Code = code
	return e
}

// WithDetails adds details to the error
func (e *HTTPError) WithDetails(details map[string]interface{}) *HTTPError {
	e.Details = details
	return e
}

// Wrap records the cause for logging
func (e *HTTPError) Wrap(err error) *HTTPError {
	e.Err = err
	return e
}

// Render writes the error as a response
func (e *HTTPError) Render(w http.ResponseWriter) {
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int((e.RetryAfter+time.Second-1)/time.Second)))
	}
	code := e.Code
	if code == "" {
		code = errorCodeFromStatus(e.StatusCode)
	}
	JSON(w, e.StatusCode, &ErrorResponse{
		Error:   "error",
		Message: e.Message,
		Code:    code,
		Details: e.Details,
	})
}

// FromError classifies err. Errors that are not recognised become a 500
// whose message does not leak the cause.
func FromError(err error) *HTTPError {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, request.ErrInvalidBody):
		return NewHTTPError(http.StatusBadRequest, err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "Resource not found").Wrap(err)
	case errors.Is(err, domain.ErrConflict):
		return NewHTTPError(http.StatusConflict, "Resource already exists").Wrap(err)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, "Authentication required").Wrap(err)
	case errors.Is(err, domain.ErrInvalidToken):
		return NewHTTPError(http.StatusBadRequest, err.Error()).WithCode("invalid_token").Wrap(err)
	case errors.Is(err, domain.ErrNoCredits):
		return NewHTTPError(http.StatusPaymentRequired, err.Error()).WithCode("no_credits").Wrap(err)
	case errors.Is(err, domain.ErrResumeLimitReached):
		return NewHTTPError(http.StatusPaymentRequired, err.Error()).WithCode("resume_limit_reached").Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewHTTPError(http.StatusGatewayTimeout, "Request timed out").Wrap(err)
	}
	return NewHTTPError(http.StatusInternalServerError, "Internal server error").Wrap(err)
}

// RenderError renders err with the status FromError assigns it. Validation
// errors get a 422 with per-field messages.
func RenderError(w http.ResponseWriter, err error) {
	if verrs, ok := validation.As(err); ok {
		RenderValidationError(w, verrs)
		return
	}
	FromError(err).Render(w)
}

// RenderValidationError renders validation errors
func RenderValidationError(w http.ResponseWriter, verrs *validation.Errors) {
	JSON(w, http.StatusUnprocessableEntity, &ValidationErrorResponse{
		Error:   "validation_failed",
		Message: "The request contains invalid data",
		Code:    "validation_error",
		Fields:  verrs.Fields,
	})
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	NewHTTPError(http.StatusBadRequest, message).Render(w)
}

// RenderUnauthorized renders a 401 Unauthorized error
func RenderUnauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	NewHTTPError(http.StatusUnauthorized, message).Render(w)
}

// RenderForbidden renders a 403 Forbidden error
func RenderForbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Access denied"
	}
	NewHTTPError(http.StatusForbidden, message).Render(w)
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	NewHTTPError(http.StatusNotFound, message).Render(w)
}

// RenderMethodNotAllowed renders a 405 Method Not Allowed error
func RenderMethodNotAllowed(w http.ResponseWriter) {
	NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed").Render(w)
}

// RenderTooManyRequests renders a 429 with a Retry-After header
func RenderTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	e := NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
	e.RetryAfter = retryAfter
	if retryAfter <= 0 {
		w.Header().Set("Retry-After", "0")
	}
	e.Render(w)
}

// RenderInternalError renders a 500 without exposing err
func RenderInternalError(w http.ResponseWriter) {
	NewHTTPError(http.StatusInternalServerError, "Internal server error").Render(w)
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusPaymentRequired:
		return "payment_required"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with status 200
func OK(w http.ResponseWriter, v interface{}) {
	JSON(w, http.StatusOK, v)
}

// Created writes v with status 201
func Created(w http.ResponseWriter, v interface{}) {
	JSON(w, http.StatusCreated, v)
}

// Accepted writes v with status 202
func Accepted(w http.ResponseWriter, v interface{}) {
	JSON(w, http.StatusAccepted, v)
}

// NoContent writes an empty 204
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
