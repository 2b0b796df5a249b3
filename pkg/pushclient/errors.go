package pushclient

import (
	"errors"
	"fmt"
)

var (
	ErrMissingBaseURL = errors.New("missing base url")
	ErrInvalidID      = errors.New("id must be a positive integer")
	ErrMissingEvent   = errors.New("missing required event name")
)

// Error is a non-2xx answer from the push API.
type Error struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("push api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("push api: status %d: %s", e.StatusCode, e.Message)
}
