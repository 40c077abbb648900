package backend

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrNotFound     = errors.New("backend: not found")
	// ErrNetwork covers timeouts and transport failures alike.
	ErrNetwork = errors.New("backend: network error")
)

// APIError is a non-2xx answer that is neither 401 nor 404, or a 2xx envelope
// with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Message turns err into the single line shown to the user.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrNotFound):
		return "The requested record does not exist."
	case errors.Is(err, ErrNetwork):
		return "The server is not responding. Please try again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "Something went wrong. Please try again."
	}
}
