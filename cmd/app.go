package cmd

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"

	"calsync/internal/config"
	"calsync/internal/graph"
	"calsync/internal/oauth"
)

// session bundles the wired credential components for one command
// invocation.
type session struct {
	cfg      *config.Config
	store    *oauth.TokenStore
	provider *oauth.CredentialProvider
	guard    *oauth.SessionGuard

	// user is captured by the guard's probe on success.
	user *graph.User
}

// newSession loads configuration and wires the credential lifecycle:
// token store, device-code flow, refresher, provider, and session guard.
func newSession(notify oauth.NotifyFunc) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := oauth.NewTokenStore(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	identity := cfg.Identity()
	if notify == nil {
		notify = printDeviceCodePrompt
	}

	provider, err := oauth.NewCredentialProvider(oauth.ProviderConfig{
		Store:     store,
		Flow:      oauth.NewDeviceCodeFlow(oauth.DeviceFlowConfig{Identity: identity}),
		Refresher: oauth.NewRefresher(oauth.RefresherConfig{Identity: identity}),
		Notify:    notify,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, store: store, provider: provider}

	s.guard, err = oauth.NewSessionGuard(oauth.GuardConfig{
		Provider:    provider,
		Store:       store,
		Probe:       s.probe,
		IsAuthError: graph.IsAuthError,
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// probe validates the credential server-side with the lightweight /me call
// and captures the identity for display.
func (s *session) probe(ctx context.Context, client *oauth.AuthenticatedClient) error {
	user, err := graph.NewClient(client, "").Me(ctx)
	if err != nil {
		return err
	}
	s.user = user
	return nil
}

// graphClient resolves a verified authenticated client and wraps it for
// Graph API calls.
func (s *session) graphClient(ctx context.Context) (*graph.Client, error) {
	client, err := s.guard.ClientWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	return graph.NewClient(client, ""), nil
}

// printDeviceCodePrompt is the default device-code notification: the one
// legitimate user-facing interruption of the flow.
func printDeviceCodePrompt(session *oauth.DeviceAuthorization) {
	fmt.Printf("\nVisit %s and enter this code: %s\n\n",
		text.Bold.Sprint(session.VerificationURI),
		text.FgCyan.Sprint(session.UserCode),
	)
}
