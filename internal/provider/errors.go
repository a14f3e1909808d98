package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/openai/openai-go"
)

// Kind classifies a provider failure so callers can decide whether a retry
// or a credit charge makes sense.
type Kind string

const (
	// KindUnauthenticated means the credential to the external service is
	// missing or invalid. Fatal, do not retry.
	KindUnauthenticated Kind = "unauthenticated"
	// KindRateLimited means the service asked us to back off.
	KindRateLimited Kind = "rate_limited"
	// KindInvalidInput means the request itself was malformed.
	KindInvalidInput Kind = "invalid_input"
	// KindUnavailable means a transient failure, safe to retry with backoff.
	KindUnavailable Kind = "unavailable"
	// KindUnknown is anything we could not classify. Retry policy as
	// KindUnavailable, but logged distinctly.
	KindUnknown Kind = "unknown"
)

// Error wraps a provider failure with its classification
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindUnknown if err did not
// come out of a provider adapter.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

// classify maps an error from the openai client to a Kind
func classify(err error) *Error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return &Error{Kind: KindUnauthenticated, Err: err}
		case apierr.StatusCode == 429:
			return &Error{Kind: KindRateLimited, Err: err}
		case apierr.StatusCode == 400 || apierr.StatusCode == 404 || apierr.StatusCode == 422:
			return &Error{Kind: KindInvalidInput, Err: err}
		case apierr.StatusCode >= 500:
			return &Error{Kind: KindUnavailable, Err: err}
		}
		return &Error{Kind: KindUnknown, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnavailable, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindUnavailable, Err: err}
	}

	return &Error{Kind: KindUnknown, Err: err}
}
