package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches a 401 answer from the backend.
	ErrUnauthorized = errors.New("backend: unauthorized")

	// ErrNotFound matches a 404 answer from the backend.
	ErrNotFound = errors.New("backend: not found")

	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("backend: malformed response")
)

// StatusError is returned for non-2xx backend answers.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is match status sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}
