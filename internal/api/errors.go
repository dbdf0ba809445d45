package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork     = errors.New("network failure")
	ErrTimeout     = errors.New("request timed out")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrStatus      = errors.New("unexpected status")
	ErrDecode      = errors.New("malformed response")
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code    int
	Message string // "message" field of the error body, if any
	Path    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned %d for %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("API returned %d for %s", e.Code, e.Path)
}

// Unwrap maps the status code onto the sentinel errors
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrStatus
	}
}

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Invalid data provided",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Access denied",
	http.StatusNotFound:            "Player not found",
	http.StatusTooManyRequests:     "Too many requests. Try again in a few seconds",
	http.StatusInternalServerError: "Internal server error",
	http.StatusBadGateway:          "Server unavailable",
	http.StatusServiceUnavailable:  "Service temporarily unavailable",
}

// UserMessage turns an API error into the text shown in an error notification
func UserMessage(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		if se.Message != "" {
			return se.Message
		}
		if msg, ok := statusMessages[se.Code]; ok {
			return msg
		}
		return se.Error()
	case errors.Is(err, ErrTimeout):
		return "The request timed out. Try again"
	case errors.Is(err, ErrNetwork):
		return "Connection error. Check your internet connection or whether the server is running"
	default:
		return "An unexpected error occurred"
	}
}

// StatusCode returns the HTTP status behind err, or 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
