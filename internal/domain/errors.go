package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDirective signals a query directive whose body could not be parsed.
	// The parser never returns it; it is used to tag notices.
	ErrMalformedDirective = errors.New("malformed directive")
	// ErrAuthenticationRequired signals an action that needs an authenticated role.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrBackendUnavailable signals a failing or timed out index backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrInternalInconsistency signals a session build that ended without a result.
	ErrInternalInconsistency = errors.New("internal inconsistency")
	// ErrSessionNotFound signals an unknown or evicted search session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotReady signals an operation that needs a finished session.
	ErrSessionNotReady = errors.New("session not ready")
	// ErrInvalidParameter signals an unusable request parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// DirectiveError describes a directive that was dropped from a query.
type DirectiveError struct {
	Directive string
	Reason    string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrMalformedDirective.Error(), e.Directive, e.Reason)
}

func (e *DirectiveError) Unwrap() error { return ErrMalformedDirective }

// NewDirectiveError creates a malformed directive error.
func NewDirectiveError(directive, reason string) error {
	return &DirectiveError{Directive: directive, Reason: reason}
}
