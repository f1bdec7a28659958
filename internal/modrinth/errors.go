package modrinth

import (
	"errors"
	"fmt"
)

// NotFoundError indicates the slug does not exist on the catalog.
// Never retried.
type NotFoundError struct {
	Slug string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project not found: %s", e.Slug)
}

// RateLimitError indicates the catalog rejected the request for quota
// reasons. RetryAfter is the server-requested wait in seconds (0 if the
// server did not say).
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfter)
	}
	return "rate limit exceeded"
}

// APIError covers unexpected statuses and malformed response bodies.
// Retryable reports whether the failure is transient (5xx, network);
// 4xx and decode failures are final.
type APIError struct {
	Status    int
	Message   string
	Retryable bool
	Cause     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("catalog request failed: %s (HTTP %d)", e.Message, e.Status)
	}
	return "catalog request failed: " + e.Message
}

func (e *APIError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is a missing-project error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRetryable reports whether err could succeed on a later attempt.
// Used by callers that implement their own retry scope on top of the
// client's built-in policy.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}
