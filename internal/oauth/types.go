package oauth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Credential is the single cached unit of authentication state. It is
// created by the device-code flow or by a refresh, persisted wholesale by
// the TokenStore, and read back on every client request.
type Credential struct {
	// AccessToken is the bearer token presented to the Graph API.
	AccessToken string `json:"access_token"`

	// RefreshToken allows obtaining a new access token without user
	// interaction. Only present when the offline_access scope was granted.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresAt is the absolute expiry of the access token, derived from
	// the provider-reported lifetime at issuance time.
	ExpiresAt time.Time `json:"expires_at"`

	// Scope is the space-separated scope string granted by the provider.
	Scope string `json:"scope,omitempty"`
}

// credentialExpiryBuffer is the margin applied when checking credential
// validity. It accounts for clock skew, network latency, and long-running
// operations.
const credentialExpiryBuffer = 60 * time.Second

// Valid reports whether the credential can still be used at the given time,
// applying the expiry buffer.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	if c.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(credentialExpiryBuffer).Before(c.ExpiresAt)
}

// ClientIdentity is the immutable client configuration for the identity
// provider. It is supplied by the caller and never mutated by this package.
type ClientIdentity struct {
	ClientID     string
	ClientSecret string

	// Tenant is the Azure AD tenant, or "common" for multi-tenant apps.
	Tenant string

	// Scopes are the OAuth scopes requested during authorization.
	Scopes []string
}

// Endpoint returns the provider endpoints for the identity's tenant.
func (id ClientIdentity) Endpoint() oauth2.Endpoint {
	tenant := id.Tenant
	if tenant == "" {
		tenant = "common"
	}
	return microsoft.AzureADEndpoint(tenant)
}

// ScopeString returns the scopes as the space-separated form the token
// endpoints expect.
func (id ClientIdentity) ScopeString() string {
	return strings.Join(id.Scopes, " ")
}

// DeviceAuthorization is the ephemeral state of one device-code session.
// It is created by Begin, mutated only by the polling loop (the interval
// may only increase), and discarded on any terminal outcome.
type DeviceAuthorization struct {
	// DeviceCode is the opaque provider-issued code. Never shown to the user.
	DeviceCode string

	// UserCode is the short code the user enters at the verification URI.
	UserCode string

	// VerificationURI is where the user completes authorization.
	VerificationURI string

	// Interval is the minimum wait between token-endpoint polls.
	Interval time.Duration

	// ExpiresAt is the deadline for the whole session.
	ExpiresAt time.Time

	// Attempts counts token-endpoint polls made so far.
	Attempts int
}
