package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Graph error codes that indicate the presented credential itself was
// rejected, as opposed to a network or request-shape problem.
const (
	codeInvalidAuthenticationToken = "InvalidAuthenticationToken"
	codeAuthenticationError        = "AuthenticationError"
)

// APIError is a non-success response from the Graph API, parsed from its
// OData error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	// ChallengeError is the error parameter of the response's Bearer
	// challenge, when one was attached. Graph sets it to "invalid_token"
	// for expired or revoked credentials.
	ChallengeError string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph API error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError reports whether the error means the bearer token was
// rejected server-side.
func (e *APIError) AuthenticationError() bool {
	switch e.Code {
	case codeInvalidAuthenticationToken, codeAuthenticationError:
		return true
	}
	if e.ChallengeError == "invalid_token" {
		return true
	}
	return e.StatusCode == http.StatusUnauthorized
}

// IsAuthError reports whether err is an authentication-class Graph API
// rejection. Network failures, malformed requests, and unrelated service
// errors are not authentication-class.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.AuthenticationError()
}
