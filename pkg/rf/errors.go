package rf

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Stable failure categories for remote node-graph calls.
var (
	// ErrAuth means the service rejected the supplied credentials.
	ErrAuth = errors.New("redforester: authentication rejected")
	// ErrNotFound means a referenced remote object no longer exists or is
	// not accessible to the current user.
	ErrNotFound = errors.New("redforester: not found")
	// ErrUnavailable covers network failures, timeouts and server errors.
	ErrUnavailable = errors.New("redforester: service unavailable")
)

// apiError carries the HTTP status behind a categorized failure.
type apiError struct {
	category error
	status   int
	detail   string
}

func (e *apiError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("%v (status %d)", e.category, e.status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.category, e.status, e.detail)
}

func (e *apiError) Unwrap() error {
	return e.category
}

func statusError(status int, detail string) error {
	switch {
	case status == 401 || status == 403:
		return &apiError{category: ErrAuth, status: status, detail: detail}
	case status == 404:
		return &apiError{category: ErrNotFound, status: status, detail: detail}
	default:
		return &apiError{category: ErrUnavailable, status: status, detail: detail}
	}
}

// transportError folds timeouts and connection failures into ErrUnavailable.
func transportError(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: request timed out", ErrUnavailable)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
