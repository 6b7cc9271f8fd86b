// Package apperrors defines the error taxonomy shared by every domain package
// and its mapping onto HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound: unknown phone number, business, call or other reference.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized: missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden: authenticated but not allowed (wrong role or owner).
	ErrForbidden = errors.New("forbidden")
	// ErrValidation: malformed or invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: uniqueness or state conflict (one business per owner, pending invite, ...).
	ErrConflict = errors.New("conflict")
	// ErrUpstream: telephony or voice-agent provider call failed.
	ErrUpstream = errors.New("upstream provider error")
)

// Validation wraps a message as ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflict wraps a message as ErrConflict.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFound wraps a resource name as ErrNotFound.
func NotFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// Upstream wraps a provider failure as ErrUpstream, keeping the cause in the chain.
func Upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}

// HTTPStatus maps an error onto the status code returned to the frontend.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show to API clients.
// Internal errors are never echoed.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
