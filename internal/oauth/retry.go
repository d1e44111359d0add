package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// defaultGuardAttempts bounds re-authorization attempts after
	// server-side token rejection.
	defaultGuardAttempts = 3

	// defaultGuardBackoff is the fixed wait between attempts.
	defaultGuardBackoff = 2 * time.Second
)

// ProbeFunc validates that a client's credential is accepted server-side,
// typically with a lightweight identity request. It returns nil when the
// credential works.
type ProbeFunc func(ctx context.Context, client *AuthenticatedClient) error

// SessionGuard wraps credential resolution with a bounded self-healing
// retry. A locally unexpired token can still be rejected server-side
// (revocation, tenant policy change); the guard detects this with a probe
// call, discards the cached credential, and forces the provider through
// re-authorization. Non-authentication errors are never retried.
type SessionGuard struct {
	provider    *CredentialProvider
	store       *TokenStore
	probe       ProbeFunc
	isAuthError func(error) bool
	maxAttempts int
	backoff     time.Duration
	clock       Clock
}

// GuardConfig configures a SessionGuard.
type GuardConfig struct {
	// Provider resolves credentials. Required.
	Provider *CredentialProvider

	// Store is cleared when the probe reports an authentication-class
	// rejection. Required.
	Store *TokenStore

	// Probe performs the trial authenticated request. Required.
	Probe ProbeFunc

	// IsAuthError classifies probe errors; only errors it accepts trigger
	// cache invalidation and retry. Required.
	IsAuthError func(error) bool

	// MaxAttempts bounds the retry loop. Defaults to 3.
	MaxAttempts int

	// Backoff is the fixed wait between attempts. Defaults to 2s.
	Backoff time.Duration

	// Clock supplies the backoff sleep. Defaults to the system clock.
	Clock Clock
}

// NewSessionGuard creates a guard from the configuration.
func NewSessionGuard(cfg GuardConfig) (*SessionGuard, error) {
	if cfg.Provider == nil || cfg.Store == nil || cfg.Probe == nil || cfg.IsAuthError == nil {
		return nil, fmt.Errorf("provider, store, probe, and auth-error classifier are required")
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultGuardAttempts
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultGuardBackoff
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &SessionGuard{
		provider:    cfg.Provider,
		store:       cfg.Store,
		probe:       cfg.Probe,
		isAuthError: cfg.IsAuthError,
		maxAttempts: attempts,
		backoff:     backoff,
		clock:       clock,
	}, nil
}

// ClientWithRetry resolves an authenticated client and verifies it with the
// probe. On an authentication-class probe failure it clears the stored
// credential, waits the fixed backoff, and retries the whole sequence up to
// the attempt ceiling. Any other error propagates immediately.
func (g *SessionGuard) ClientWithRetry(ctx context.Context) (*AuthenticatedClient, error) {
	var client *AuthenticatedClient

	err := retryBounded(g.clock, g.maxAttempts, g.backoff, g.isAuthError, func() error {
		c, err := g.provider.Client(ctx)
		if err != nil {
			return err
		}
		if err := g.probe(ctx, c); err != nil {
			if g.isAuthError(err) {
				slog.Warn("credential rejected server-side, clearing cache", "error", err.Error())
				if clearErr := g.store.Clear(); clearErr != nil {
					return clearErr
				}
			}
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// retryBounded runs op up to maxAttempts times, sleeping the fixed backoff
// between attempts. Only errors accepted by retryable are retried; anything
// else propagates immediately. Exhaustion returns the last error.
func retryBounded(clock Clock, maxAttempts int, backoff time.Duration, retryable func(error) bool, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		if attempt < maxAttempts {
			clock.Sleep(backoff)
		}
	}
	return lastErr
}
