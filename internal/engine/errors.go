package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream is the class of every failure caused by the engine itself:
	// transport errors, 5xx answers, undecodable bodies.
	ErrUpstream = errors.New("search engine failed")
	// ErrTimeout is returned when a call does not finish within the
	// configured timeout.
	ErrTimeout = errors.New("search engine timed out")
	// ErrNotFound is returned when the engine answers 404.
	ErrNotFound = errors.New("listing not found")
	// ErrBadRequest is returned when the engine rejects the parameters (400/422).
	ErrBadRequest = errors.New("search engine rejected the request")
	// ErrUnavailable is returned without calling the engine while the
	// circuit breaker is open.
	ErrUnavailable = fmt.Errorf("%w: circuit open", ErrUpstream)
)

// StatusError carries the engine's answer for a failed call.
type StatusError struct {
	Op     string // e.g. "hybrid_search"
	Status int    // HTTP status, 0 for transport failures
	Detail string // engine message or transport error text
	class  error
}

func (e *StatusError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.class, e.Detail)
	}
	return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.class, e.Status, e.Detail)
}

// Unwrap exposes the error class (ErrUpstream, ErrBadRequest, ErrNotFound).
func (e *StatusError) Unwrap() error { return e.class }

// Detail returns the upstream detail carried by err, or err.Error() when err
// is not a StatusError.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Detail
	}
	return err.Error()
}
