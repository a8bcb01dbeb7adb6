package errors

import (
	"errors"
	"fmt"
)

// Common error types for the BFF
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session reference")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrMissingRefreshToken = errors.New("no refresh token")

	// Sign-in errors
	ErrInvalidState = errors.New("invalid sign-in state")
)

// Kind classifies failures of the session subsystem so callers can map them to a
// small set of user-facing outcomes.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnauthenticated means no usable credential exists; the user must log in.
	KindUnauthenticated
	// KindRefreshAccessToken means the identity provider refused or failed a refresh.
	KindRefreshAccessToken
	// KindUpstreamUnavailable means the backend could not be reached or failed.
	KindUpstreamUnavailable
	// KindInvalidCredentials means the backend rejected a sign-in attempt.
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindRefreshAccessToken:
		return "RefreshAccessTokenError"
	case KindUpstreamUnavailable:
		return "UpstreamUnavailable"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	default:
		return "Unknown"
	}
}

// IsAuthFatal reports whether the kind requires an interactive re-login.
func (k Kind) IsAuthFatal() bool {
	return k == KindUnauthenticated || k == KindRefreshAccessToken
}

// Error is a classified error carrying a Kind and optional detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
