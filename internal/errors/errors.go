package errors

import (
	"errors"
	"fmt"
)

// Common error types for the login service
var (
	// Storage errors
	ErrNotFound = errors.New("not found")
	ErrCorrupt  = errors.New("corrupt value")

	// Flow errors
	ErrFlowNotFound       = errors.New("flow not found")
	ErrNoAuthMethods      = errors.New("No supported authentication methods available")
	ErrNoSelectedAccount  = errors.New("no account selected")
	ErrRedirectNotAllowed = errors.New("redirect_uri not allowed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
