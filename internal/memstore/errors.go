package memstore

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates the store rejected the configured token.
var ErrUnauthorized = errors.New("memory store rejected credentials")

// ErrRateLimited indicates the store's rate limit was exceeded.
var ErrRateLimited = errors.New("memory store rate limit exceeded")

// ServerError represents a 5xx response from the store.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("memory store server error: HTTP %d", e.StatusCode)
}
