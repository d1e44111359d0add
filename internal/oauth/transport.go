package oauth

import (
	"net/http"
	"time"
)

// bearerTransport decorates outbound requests with the credential's bearer
// token. It is a pure request decoration: the original request is cloned,
// never mutated.
type bearerTransport struct {
	cred *Credential
	base http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	clone := req.Clone(req.Context())
	tokenType := t.cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	clone.Header.Set("Authorization", tokenType+" "+t.cred.AccessToken)
	return base.RoundTrip(clone)
}

// AuthenticatedClient is the capability handed to downstream API callers:
// an HTTP client whose requests carry the resolved bearer credential.
// Callers never see the credential, session, or storage internals.
type AuthenticatedClient struct {
	httpClient *http.Client
}

// NewAuthenticatedClient wraps a credential in a bearer-decorating client.
// base may be nil to use http.DefaultTransport; timeout <= 0 selects the
// default of 30 seconds.
func NewAuthenticatedClient(cred *Credential, base http.RoundTripper, timeout time.Duration) *AuthenticatedClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AuthenticatedClient{
		httpClient: &http.Client{
			Transport: &bearerTransport{cred: cred, base: base},
			Timeout:   timeout,
		},
	}
}

// HTTPClient returns the underlying bearer-authenticated HTTP client.
func (c *AuthenticatedClient) HTTPClient() *http.Client {
	return c.httpClient
}
