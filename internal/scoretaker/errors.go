package scoretaker

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrRequest       = errors.New("request failed")
	ErrMismatch      = errors.New("server result does not match local scoring")
)

// APIError is a non-2xx response from the results API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap lets callers test for ErrRequest.
func (e *APIError) Unwrap() error { return ErrRequest }
