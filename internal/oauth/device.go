package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// defaultPollInterval is used when the provider omits "interval",
	// per RFC 8628.
	defaultPollInterval = 5 * time.Second

	// slowDownStep is added to the polling interval on every slow_down
	// response. The widening is permanent for the session.
	slowDownStep = 5 * time.Second

	// deviceCodeGrantType is the grant_type for device-code token requests.
	deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// DeviceCodeFlow drives the device-authorization grant: it requests a
// device code, then polls the token endpoint until the user authorizes,
// declines, or the session expires.
type DeviceCodeFlow struct {
	identity   ClientIdentity
	endpoint   oauth2.Endpoint
	httpClient *http.Client
	clock      Clock
}

// DeviceFlowConfig configures a DeviceCodeFlow.
type DeviceFlowConfig struct {
	// Identity is the OAuth client identity. Required.
	Identity ClientIdentity

	// Endpoint overrides the provider endpoints. Defaults to the Azure AD
	// endpoints for the identity's tenant.
	Endpoint oauth2.Endpoint

	// HTTPClient is the client used for provider requests. Defaults to a
	// client with a 30 second timeout.
	HTTPClient *http.Client

	// Clock supplies time and sleep. Defaults to the system clock.
	Clock Clock
}

// NewDeviceCodeFlow creates a device-code flow for the given configuration.
func NewDeviceCodeFlow(cfg DeviceFlowConfig) *DeviceCodeFlow {
	endpoint := cfg.Endpoint
	if endpoint.DeviceAuthURL == "" {
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
	return &DeviceCodeFlow{
		identity:   cfg.Identity,
		endpoint:   endpoint,
		httpClient: httpClient,
		clock:      clock,
	}
}

// deviceCodeResponse is the wire shape of the device authorization response.
type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
	Message         string `json:"message"`
}

// tokenResponse is the wire shape of a successful token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// providerError is the wire shape of a token endpoint error response.
type providerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Begin requests a device code from the provider. The returned session's
// UserCode and VerificationURI must be shown to the user; this is the only
// point in the flow requiring human interaction.
func (f *DeviceCodeFlow) Begin(ctx context.Context) (*DeviceAuthorization, error) {
	form := url.Values{}
	form.Set("client_id", f.identity.ClientID)
	form.Set("scope", f.identity.ScopeString())

	resp, body, err := postForm(ctx, f.httpClient, f.endpoint.DeviceAuthURL, form)
	if err != nil {
		return nil, fmt.Errorf("device code request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DeviceCodeRequestError{Status: resp.StatusCode, Body: string(body)}
	}

	var dc deviceCodeResponse
	if err := json.Unmarshal(body, &dc); err != nil {
		return nil, fmt.Errorf("failed to decode device code response: %w", err)
	}
	if dc.DeviceCode == "" || dc.UserCode == "" {
		return nil, &DeviceCodeRequestError{Status: resp.StatusCode, Body: string(body)}
	}

	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}

	session := &DeviceAuthorization{
		DeviceCode:      dc.DeviceCode,
		UserCode:        dc.UserCode,
		VerificationURI: dc.VerificationURI,
		Interval:        interval,
		ExpiresAt:       f.clock.Now().Add(time.Duration(dc.ExpiresIn) * time.Second),
	}

	slog.Info("device authorization started",
		"verification_uri", session.VerificationURI,
		"expires_at", session.ExpiresAt,
		"interval", session.Interval,
	)
	return session, nil
}

// Poll repeatedly exchanges the device code at the token endpoint until the
// user authorizes, a terminal provider error occurs, or the session deadline
// passes. One full polling interval always elapses before each exchange; the
// interval only ever widens, and only on an explicit slow_down from the
// provider.
func (f *DeviceCodeFlow) Poll(ctx context.Context, session *DeviceAuthorization) (*Credential, error) {
	for {
		if f.clock.Now().After(session.ExpiresAt) {
			return nil, ErrAuthorizationTimeout
		}
		f.clock.Sleep(session.Interval)
		if f.clock.Now().After(session.ExpiresAt) {
			return nil, ErrAuthorizationTimeout
		}

		session.Attempts++
		cred, provErr, err := f.exchange(ctx, session)
		if err != nil {
			return nil, err
		}
		if cred != nil {
			slog.Info("device authorization complete",
				"attempts", session.Attempts,
				"expires_at", cred.ExpiresAt,
			)
			return cred, nil
		}

		switch classifyProviderError(provErr.Error) {
		case ProviderErrorAuthorizationPending:
			continue
		case ProviderErrorSlowDown:
			session.Interval += slowDownStep
			slog.Debug("provider requested slower polling", "interval", session.Interval)
			continue
		case ProviderErrorDeclined:
			return nil, ErrAuthorizationDeclined
		case ProviderErrorExpired:
			return nil, ErrDeviceCodeExpired
		default:
			return nil, &TokenExchangeError{Code: provErr.Error, Body: provErr.ErrorDescription}
		}
	}
}

// exchange performs one device-code token request. It returns a credential
// on success, the parsed provider error on a recognized error response, or
// an error for anything that should abort the poll loop.
func (f *DeviceCodeFlow) exchange(ctx context.Context, session *DeviceAuthorization) (*Credential, *providerError, error) {
	form := url.Values{}
	form.Set("grant_type", deviceCodeGrantType)
	form.Set("client_id", f.identity.ClientID)
	form.Set("device_code", session.DeviceCode)

	resp, body, err := postForm(ctx, f.httpClient, f.endpoint.TokenURL, form)
	if err != nil {
		return nil, nil, fmt.Errorf("token request failed: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		cred, err := f.parseTokenResponse(body)
		if err != nil {
			return nil, nil, err
		}
		return cred, nil, nil
	}

	var provErr providerError
	if err := json.Unmarshal(body, &provErr); err != nil || provErr.Error == "" {
		return nil, nil, &TokenExchangeError{Body: string(body)}
	}
	return nil, &provErr, nil
}

// parseTokenResponse converts a successful token endpoint body into a
// credential, deriving the absolute expiry from the reported lifetime.
func (f *DeviceCodeFlow) parseTokenResponse(body []byte) (*Credential, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &TokenExchangeError{Body: string(body)}
	}
	if tr.AccessToken == "" {
		return nil, &TokenExchangeError{Body: string(body)}
	}
	return &Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresAt:    f.clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Scope:        tr.Scope,
	}, nil
}

// postForm sends a form-encoded POST and returns the response with its body
// fully read.
func postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}
