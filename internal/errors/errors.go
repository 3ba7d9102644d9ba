package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal session client
var (
	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// Token errors
	ErrTokenExpired = errors.New("token expired")

	// Remote authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailUnconfirmed   = errors.New("email not confirmed")

	// Remote service errors
	ErrTransientService  = errors.New("service unavailable")
	ErrMalformedResponse = errors.New("malformed response")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
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

// IsUnauthorized reports whether err should invalidate the current session
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
