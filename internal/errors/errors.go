package errors

import (
	"errors"
	"fmt"
)

// Common error types for the docshare client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("forbidden")

	// Token errors
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionReplaced means the session changed while a refresh was in flight.
	ErrSessionReplaced = errors.New("session replaced during refresh")

	// Request errors
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrServer            = errors.New("server error")
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed response")

	// General errors
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

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

// New is errors.New, re-exported so callers only import this package
func New(text string) error {
	return errors.New(text)
}

// Join is errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}
