package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// NotifyFunc surfaces the verification URI and user code to the user. It is
// invoked once per device-code authorization, before polling starts.
type NotifyFunc func(session *DeviceAuthorization)

// CredentialProvider answers "give me a currently valid bearer client". It
// consults the token store, refreshes an expired credential when possible,
// and falls back to a full device-code authorization otherwise. It performs
// no retrying of its own; that is the SessionGuard's job.
type CredentialProvider struct {
	store     *TokenStore
	flow      *DeviceCodeFlow
	refresher *Refresher
	clock     Clock
	notify    NotifyFunc

	// baseTransport underlies issued clients. Overridable in tests.
	baseTransport  http.RoundTripper
	requestTimeout time.Duration
}

// ProviderConfig configures a CredentialProvider.
type ProviderConfig struct {
	// Store persists the credential. Required.
	Store *TokenStore

	// Flow performs device-code authorization. Required.
	Flow *DeviceCodeFlow

	// Refresher exchanges refresh tokens. Required.
	Refresher *Refresher

	// Notify displays the verification URI and user code. Required for
	// interactive use; a nil value makes device authorization fail.
	Notify NotifyFunc

	// Clock supplies time. Defaults to the system clock.
	Clock Clock

	// BaseTransport underlies issued clients. Defaults to
	// http.DefaultTransport.
	BaseTransport http.RoundTripper

	// RequestTimeout applies to requests made with issued clients.
	RequestTimeout time.Duration
}

// NewCredentialProvider creates a provider from the configuration.
func NewCredentialProvider(cfg ProviderConfig) (*CredentialProvider, error) {
	if cfg.Store == nil || cfg.Flow == nil || cfg.Refresher == nil {
		return nil, fmt.Errorf("store, flow, and refresher are required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &CredentialProvider{
		store:          cfg.Store,
		flow:           cfg.Flow,
		refresher:      cfg.Refresher,
		clock:          clock,
		notify:         cfg.Notify,
		baseTransport:  cfg.BaseTransport,
		requestTimeout: cfg.RequestTimeout,
	}, nil
}

// Client resolves a currently valid credential and wraps it in an
// authenticated HTTP client.
//
// Resolution order: a stored unexpired credential is reused as-is; an
// expired one goes through a refresh; an absent or corrupt record, or a
// failed refresh, triggers a full device-code authorization. Every newly
// issued credential is persisted before the client is returned.
func (p *CredentialProvider) Client(ctx context.Context) (*AuthenticatedClient, error) {
	cred, err := p.store.Load()
	if err != nil {
		var corrupt *CorruptCredentialError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		// A corrupt record is treated exactly like an absent one.
		slog.Warn("stored credential is corrupt, re-authorizing", "path", p.store.Path())
		cred = nil
	}

	if cred.Valid(p.clock.Now()) {
		return p.wrap(cred), nil
	}

	if cred != nil && cred.RefreshToken != "" {
		next, err := p.refresher.Refresh(ctx, cred)
		if err == nil {
			if err := p.store.Save(next); err != nil {
				return nil, err
			}
			return p.wrap(next), nil
		}
		var refreshErr *RefreshError
		if !errors.As(err, &refreshErr) {
			return nil, err
		}
		slog.Warn("token refresh failed, falling back to device authorization", "error", err.Error())
	}

	cred, err = p.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(cred); err != nil {
		return nil, err
	}
	return p.wrap(cred), nil
}

// authorize runs one full device-code authorization.
func (p *CredentialProvider) authorize(ctx context.Context) (*Credential, error) {
	session, err := p.flow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if p.notify == nil {
		return nil, fmt.Errorf("device authorization requires user interaction but no notify callback is configured")
	}
	p.notify(session)
	return p.flow.Poll(ctx, session)
}

// WrapCredential returns an authenticated client over an already resolved
// credential, without consulting the store or triggering authorization.
// Used by verification flows that must not re-authorize as a side effect.
func (p *CredentialProvider) WrapCredential(cred *Credential) *AuthenticatedClient {
	return p.wrap(cred)
}

func (p *CredentialProvider) wrap(cred *Credential) *AuthenticatedClient {
	return NewAuthenticatedClient(cred, p.baseTransport, p.requestTimeout)
}
