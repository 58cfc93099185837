// Package llm provides the model API client and prompt rendering used by the
// review pipeline.
package llm

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed classification of everything that can go wrong when
// talking to the model API. The orchestrator's retry dispatch is a pure
// switch over this value.
type ErrorKind int

const (
	// KindFatal covers auth failures, malformed requests, and missing
	// credentials. Never retried.
	KindFatal ErrorKind = iota
	// KindRateLimited is an HTTP 429 response. Retried on its own schedule.
	KindRateLimited
	// KindServerError covers HTTP 500/502/503 and transport-level failures,
	// including request timeouts. Retried on the generic schedule.
	KindServerError
	// KindParseFailure means the response body could not be turned into JSON
	// even after recovery. Retried on the generic schedule.
	KindParseFailure
	// KindValidationFailure means the response parsed but failed schema
	// validation. Retried on the generic schedule.
	KindValidationFailure
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindParseFailure:
		return "parse_failure"
	case KindValidationFailure:
		return "validation_failure"
	default:
		return "fatal"
	}
}

// Retryable reports whether an error of this kind may be retried at all.
func (k ErrorKind) Retryable() bool {
	return k != KindFatal
}

// ClassifiedError wraps an underlying failure with its retry classification
// and, for HTTP failures, the status code that produced it.
type ClassifiedError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *ClassifiedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("model API %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("model API %s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// NewClassifiedError builds a ClassifiedError without an HTTP status.
func NewClassifiedError(kind ErrorKind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Err: err}
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy. Any 4xx
// other than 429 is fatal: the request itself is wrong and retrying cannot
// help.
func ClassifyStatus(status int, body string) *ClassifiedError {
	err := fmt.Errorf("unexpected response: %s", body)
	switch {
	case status == 429:
		return &ClassifiedError{Kind: KindRateLimited, Status: status, Err: err}
	case status == 500 || status == 502 || status == 503:
		return &ClassifiedError{Kind: KindServerError, Status: status, Err: err}
	default:
		return &ClassifiedError{Kind: KindFatal, Status: status, Err: err}
	}
}

// KindOf extracts the classification from err. Unclassified errors (network
// failures, timeouts, cancelled contexts) are treated as transient server
// errors so they fall under the generic retry schedule.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindServerError
}
