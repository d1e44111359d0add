package oauth

import (
	"errors"
	"fmt"
)

// Provider error codes returned by the token endpoint during device-code
// polling, per RFC 8628 and the Azure AD v2.0 documentation.
const (
	errorCodeAuthorizationPending  = "authorization_pending"
	errorCodeSlowDown              = "slow_down"
	errorCodeAuthorizationDeclined = "authorization_declined"
	errorCodeExpiredToken          = "expired_token"
	errorCodeAccessDenied          = "access_denied"
)

// ProviderErrorCode is the tagged classification of a token-endpoint error
// response. Dispatch in the polling loop happens on these values, never on
// raw strings, so an unrecognized code can not silently fall through.
type ProviderErrorCode int

const (
	// ProviderErrorUnknown is any code this package does not recognize.
	ProviderErrorUnknown ProviderErrorCode = iota

	// ProviderErrorAuthorizationPending means the user has not completed
	// authorization yet. The poll loop continues unchanged.
	ProviderErrorAuthorizationPending

	// ProviderErrorSlowDown means the provider wants a wider polling
	// interval. The poll loop widens the interval permanently.
	ProviderErrorSlowDown

	// ProviderErrorDeclined means the user rejected the authorization.
	ProviderErrorDeclined

	// ProviderErrorExpired means the device code itself expired.
	ProviderErrorExpired
)

// String returns the canonical wire form of the error code.
func (c ProviderErrorCode) String() string {
	switch c {
	case ProviderErrorAuthorizationPending:
		return errorCodeAuthorizationPending
	case ProviderErrorSlowDown:
		return errorCodeSlowDown
	case ProviderErrorDeclined:
		return errorCodeAuthorizationDeclined
	case ProviderErrorExpired:
		return errorCodeExpiredToken
	default:
		return "unknown"
	}
}

// classifyProviderError maps a wire error code to its tagged classification.
func classifyProviderError(code string) ProviderErrorCode {
	switch code {
	case errorCodeAuthorizationPending:
		return ProviderErrorAuthorizationPending
	case errorCodeSlowDown:
		return ProviderErrorSlowDown
	case errorCodeAuthorizationDeclined, errorCodeAccessDenied:
		return ProviderErrorDeclined
	case errorCodeExpiredToken:
		return ProviderErrorExpired
	default:
		return ProviderErrorUnknown
	}
}

// Terminal device-flow outcomes that carry no payload beyond their identity.
var (
	// ErrAuthorizationDeclined means the user rejected the authorization
	// request at the verification URI.
	ErrAuthorizationDeclined = errors.New("authorization declined by user")

	// ErrDeviceCodeExpired means the device code expired before the user
	// completed authorization.
	ErrDeviceCodeExpired = errors.New("device code expired before authorization")

	// ErrAuthorizationTimeout means the session deadline passed without a
	// terminal response from the provider.
	ErrAuthorizationTimeout = errors.New("authorization timed out")
)

// DeviceCodeRequestError is a non-success response from the device
// authorization endpoint. It is fatal; the flow is not retried internally.
type DeviceCodeRequestError struct {
	Status int
	Body   string
}

func (e *DeviceCodeRequestError) Error() string {
	return fmt.Sprintf("device code request failed with status %d: %s", e.Status, e.Body)
}

// TokenExchangeError is an unrecognized or unparseable failure from the
// token endpoint during polling. It carries the raw provider code and body
// for diagnosis.
type TokenExchangeError struct {
	Code string
	Body string
}

func (e *TokenExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token exchange failed with %q: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("token exchange failed: %s", e.Body)
}

// RefreshError is a failed refresh-token exchange. Callers are expected to
// fall back to a full device-code authorization rather than propagate it.
type RefreshError struct {
	Reason error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Reason)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *RefreshError) Unwrap() error {
	return e.Reason
}

// CorruptCredentialError means the persisted credential record did not
// parse. Callers treat it exactly like an absent credential.
type CorruptCredentialError struct {
	Path   string
	Reason error
}

func (e *CorruptCredentialError) Error() string {
	return fmt.Sprintf("stored credential at %s is corrupt: %v", e.Path, e.Reason)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *CorruptCredentialError) Unwrap() error {
	return e.Reason
}
