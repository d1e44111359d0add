// Package cli provides shared error types for the calsync commands,
// mapped to semantic exit codes by the root command.
package cli

import "fmt"

// AuthRequiredError indicates no usable credential exists and the user
// needs to log in.
type AuthRequiredError struct{}

// Error returns a user-friendly message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return `Authentication required.

To authenticate, run:
  calsync auth login

To check current authentication status:
  calsync auth status`
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthFailedError indicates the authorization flow itself failed.
type AuthFailedError struct {
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Authentication failed: %v

To retry authentication, run:
  calsync auth login`, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}
