package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new access token. Every failure
// surfaces as *RefreshError so callers can fall back to a full device-code
// authorization.
type Refresher struct {
	identity   ClientIdentity
	endpoint   oauth2.Endpoint
	httpClient *http.Client
	clock      Clock
}

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	// Identity is the OAuth client identity. Required.
	Identity ClientIdentity

	// Endpoint overrides the provider endpoints. Defaults to the Azure AD
	// endpoints for the identity's tenant.
	Endpoint oauth2.Endpoint

	// HTTPClient is the client used for provider requests. Defaults to a
	// client with a 30 second timeout.
	HTTPClient *http.Client

	// Clock supplies time. Defaults to the system clock.
	Clock Clock
}

// NewRefresher creates a refresher for the given configuration.
func NewRefresher(cfg RefresherConfig) *Refresher {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = cfg.Identity.Endpoint()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Refresher{
		identity:   cfg.Identity,
		endpoint:   endpoint,
		httpClient: httpClient,
		clock:      clock,
	}
}

// Refresh exchanges the credential's refresh token for a new credential.
func (r *Refresher) Refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, &RefreshError{Reason: fmt.Errorf("no refresh token available")}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", r.identity.ClientID)
	form.Set("client_secret", r.identity.ClientSecret)
	form.Set("refresh_token", cred.RefreshToken)

	resp, body, err := postForm(ctx, r.httpClient, r.endpoint.TokenURL, form)
	if err != nil {
		return nil, &RefreshError{Reason: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var provErr providerError
		if err := json.Unmarshal(body, &provErr); err == nil && provErr.Error != "" {
			return nil, &RefreshError{Reason: fmt.Errorf("%s: %s", provErr.Error, provErr.ErrorDescription)}
		}
		return nil, &RefreshError{Reason: fmt.Errorf("refresh request failed with status %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return nil, &RefreshError{Reason: fmt.Errorf("malformed refresh response")}
	}

	next := &Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresAt:    r.clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Scope:        tr.Scope,
	}
	// Azure may omit the refresh token on rotation; keep the old one.
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}

	slog.Info("credential refreshed", "expires_at", next.ExpiresAt)
	return next, nil
}
