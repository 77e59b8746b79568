package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized matches 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates the API could not be reached at all.
	ErrUnavailable = errors.New("api unavailable")
)

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// errorBody is the server's error shape. message is a string or, for
// validation failures, a list of strings.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func parseErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return strings.TrimSpace(string(body))
	}
	var single string
	if err := json.Unmarshal(eb.Message, &single); err == nil && single != "" {
		return single
	}
	var many []string
	if err := json.Unmarshal(eb.Message, &many); err == nil && len(many) > 0 {
		return strings.Join(many, "; ")
	}
	return eb.Error
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	default:
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return fmt.Sprintf("HTTP_%d", apiErr.StatusCode)
		}
		return "UNKNOWN"
	}
}
