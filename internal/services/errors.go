// Package services defines the business logic for identities, favorites,
// search history, and discovery. This file centralizes the service-level
// error taxonomy so that every method reports failures in one of a small set
// of classes, and handlers can map each class to one HTTP status.
//
// Concrete errors wrap exactly one class:
//
//	errors.Is(ErrEmailTaken, ErrConflict) // true
//
// Translation into user-facing messages and status codes is performed at the
// handler layer.
package services

import (
	"errors"
	"fmt"
)

// Error classes.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a request that collides with existing state.
	ErrConflict = errors.New("conflict")

	// ErrAuth marks bad credentials, bad tokens, and revoked sessions.
	ErrAuth = errors.New("unauthorized")

	// ErrNotFound marks a missing identity or resource.
	ErrNotFound = errors.New("not found")

	// ErrUpstream marks a failing search engine.
	ErrUpstream = errors.New("search engine unavailable")

	// ErrTimeout marks a search engine call that ran out of time.
	ErrTimeout = errors.New("search engine timed out")

	// ErrPersistence marks a store failure the caller cannot fix.
	ErrPersistence = errors.New("persistence failure")
)

// Identity errors.
var (
	// ErrEmailTaken is returned by Register for an email already in use.
	ErrEmailTaken = classed(ErrConflict, "email already registered")

	// ErrUserNotFound is returned by Login for an unknown email.
	ErrUserNotFound = classed(ErrNotFound, "user not found")

	// ErrInvalidCredentials is returned by Login on a password mismatch.
	ErrInvalidCredentials = classed(ErrAuth, "invalid credentials")

	// ErrInvalidToken covers malformed, tampered, and expired tokens.
	ErrInvalidToken = classed(ErrAuth, "invalid or expired token")

	// ErrTokenRevoked is returned for a token that was logged out.
	ErrTokenRevoked = classed(ErrAuth, "token has been revoked")

	// ErrIdentityGone is returned for a valid token whose user no longer exists.
	ErrIdentityGone = classed(ErrAuth, "identity no longer exists")
)

// Favorites errors.
var (
	// ErrAlreadyFavorite is returned by Add when the pair already exists.
	ErrAlreadyFavorite = classed(ErrConflict, "property already in favorites")

	// ErrPropertyNotFound is returned when the engine has no such listing.
	ErrPropertyNotFound = classed(ErrNotFound, "property not found")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Unwrap makes every ValidationError match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// classedError is a concrete error whose message stands alone and whose
// class is reachable through errors.Is.
type classedError struct {
	class error
	msg   string
}

func classed(class error, msg string) error { return &classedError{class: class, msg: msg} }

func (e *classedError) Error() string { return e.msg }
func (e *classedError) Unwrap() error { return e.class }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
