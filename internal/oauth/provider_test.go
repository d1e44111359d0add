package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// providerStub fakes the identity provider for full orchestration tests.
// Device-code polls and refresh exchanges share the token endpoint and are
// told apart by grant type, as with the real provider.
type providerStub struct {
	deviceCalls  int
	pollCalls    int
	refreshCalls int

	refreshFails bool
}

func (s *providerStub) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/devicecode", func(w http.ResponseWriter, r *http.Request) {
		s.deviceCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dev-code",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://example.com/device",
			"expires_in":       900,
			"interval":         5,
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.PostFormValue("grant_type") {
		case "refresh_token":
			s.refreshCalls++
			if s.refreshFails {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "refreshed-access-token",
				"refresh_token": "refreshed-refresh-token",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		case deviceCodeGrantType:
			s.pollCalls++
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "device-access-token",
				"refresh_token": "device-refresh-token",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": "unsupported_grant_type"})
		}
	})
	return httptest.NewServer(mux)
}

type providerFixture struct {
	stub     *providerStub
	store    *TokenStore
	provider *CredentialProvider
	clock    *fakeClock
	notified int
}

func newProviderFixture(t *testing.T) (*providerFixture, func()) {
	t.Helper()

	stub := &providerStub{}
	srv := stub.server()

	clock := newFakeClock()
	identity := ClientIdentity{ClientID: "client-id", ClientSecret: "client-secret"}
	endpoint := oauth2.Endpoint{
		DeviceAuthURL: srv.URL + "/devicecode",
		TokenURL:      srv.URL + "/token",
	}

	fx := &providerFixture{stub: stub, store: newTestStore(t), clock: clock}

	provider, err := NewCredentialProvider(ProviderConfig{
		Store: fx.store,
		Flow: NewDeviceCodeFlow(DeviceFlowConfig{
			Identity: identity, Endpoint: endpoint, HTTPClient: srv.Client(), Clock: clock,
		}),
		Refresher: NewRefresher(RefresherConfig{
			Identity: identity, Endpoint: endpoint, HTTPClient: srv.Client(), Clock: clock,
		}),
		Notify: func(*DeviceAuthorization) { fx.notified++ },
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	fx.provider = provider

	return fx, srv.Close
}

func TestProvider_ValidCredentialIssuesNoRequests(t *testing.T) {
	fx, done := newProviderFixture(t)
	defer done()

	stored := testCredential(fx.clock.Now().Add(time.Hour))
	if err := fx.store.Save(stored); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	client, err := fx.provider.Client(context.Background())
	if err != nil {
		t.Fatalf("Client failed: %v", err)
	}
	if client == nil {
		t.Fatal("expected a client")
	}

	if fx.stub.deviceCalls != 0 || fx.stub.pollCalls != 0 || fx.stub.refreshCalls != 0 {
		t.Errorf("expected no provider requests for a valid credential, got device=%d poll=%d refresh=%d",
			fx.stub.deviceCalls, fx.stub.pollCalls, fx.stub.refreshCalls)
	}
}

func TestProvider_ExpiredCredentialIsRefreshedOnceAndPersisted(t *testing.T) {
	fx, done := newProviderFixture(t)
	defer done()

	expired := testCredential(fx.clock.Now().Add(-time.Hour))
	if err := fx.store.Save(expired); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := fx.provider.Client(context.Background()); err != nil {
		t.Fatalf("Client failed: %v", err)
	}

	if fx.stub.refreshCalls != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", fx.stub.refreshCalls)
	}
	if fx.stub.deviceCalls != 0 {
		t.Errorf("expected no device-code flow, got %d calls", fx.stub.deviceCalls)
	}

	persisted, err := fx.store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if persisted.AccessToken != "refreshed-access-token" {
		t.Errorf("expected refreshed credential to be persisted, got %q", persisted.AccessToken)
	}
}

func TestProvider_FailedRefreshFallsBackToDeviceFlow(t *testing.T) {
	fx, done := newProviderFixture(t)
	defer done()
	fx.stub.refreshFails = true

	expired := testCredential(fx.clock.Now().Add(-time.Hour))
	if err := fx.store.Save(expired); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := fx.provider.Client(context.Background()); err != nil {
		t.Fatalf("Client failed: %v", err)
	}

	if fx.stub.refreshCalls != 1 {
		t.Errorf("expected 1 refresh attempt, got %d", fx.stub.refreshCalls)
	}
	if fx.stub.deviceCalls != 1 {
		t.Errorf("expected exactly 1 device-code flow, got %d", fx.stub.deviceCalls)
	}
	if fx.notified != 1 {
		t.Errorf("expected the user to be prompted once, got %d", fx.notified)
	}

	persisted, err := fx.store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if persisted.AccessToken != "device-access-token" {
		t.Errorf("expected device-flow credential to be persisted, got %q", persisted.AccessToken)
	}
}

func TestProvider_AbsentCredentialRunsDeviceFlow(t *testing.T) {
	fx, done := newProviderFixture(t)
	defer done()

	if _, err := fx.provider.Client(context.Background()); err != nil {
		t.Fatalf("Client failed: %v", err)
	}

	if fx.stub.deviceCalls != 1 {
		t.Errorf("expected 1 device-code flow, got %d", fx.stub.deviceCalls)
	}
	if fx.stub.refreshCalls != 0 {
		t.Errorf("expected no refresh attempt without a stored credential, got %d", fx.stub.refreshCalls)
	}
}

func TestProvider_CorruptRecordTreatedAsAbsent(t *testing.T) {
	fx, done := newProviderFixture(t)
	defer done()

	if err := writeRaw(fx.store, []byte("{broken")); err != nil {
		t.Fatalf("failed to plant corrupt record: %v", err)
	}

	if _, err := fx.provider.Client(context.Background()); err != nil {
		t.Fatalf("Client failed: %v", err)
	}
	if fx.stub.deviceCalls != 1 {
		t.Errorf("expected corrupt record to trigger the device flow, got %d calls", fx.stub.deviceCalls)
	}
}

func TestProvider_ExpiredWithoutRefreshTokenRunsDeviceFlow(t *testing.T) {
	fx, done := newProviderFixture(t)
	defer done()

	expired := &Credential{
		AccessToken: "stale",
		TokenType:   "Bearer",
		ExpiresAt:   fx.clock.Now().Add(-time.Hour),
	}
	if err := fx.store.Save(expired); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := fx.provider.Client(context.Background()); err != nil {
		t.Fatalf("Client failed: %v", err)
	}
	if fx.stub.refreshCalls != 0 {
		t.Errorf("expected no refresh attempt without a refresh token, got %d", fx.stub.refreshCalls)
	}
	if fx.stub.deviceCalls != 1 {
		t.Errorf("expected 1 device-code flow, got %d", fx.stub.deviceCalls)
	}
}

func TestProvider_DeviceFlowErrorsPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized_client"})
	}))
	defer srv.Close()

	clock := newFakeClock()
	identity := ClientIdentity{ClientID: "client-id"}
	endpoint := oauth2.Endpoint{DeviceAuthURL: srv.URL + "/devicecode", TokenURL: srv.URL + "/token"}

	provider, err := NewCredentialProvider(ProviderConfig{
		Store: newTestStore(t),
		Flow: NewDeviceCodeFlow(DeviceFlowConfig{
			Identity: identity, Endpoint: endpoint, HTTPClient: srv.Client(), Clock: clock,
		}),
		Refresher: NewRefresher(RefresherConfig{
			Identity: identity, Endpoint: endpoint, HTTPClient: srv.Client(), Clock: clock,
		}),
		Notify: func(*DeviceAuthorization) {},
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, err = provider.Client(context.Background())
	var reqErr *DeviceCodeRequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected DeviceCodeRequestError to propagate unchanged, got %v", err)
	}
}

// writeRaw plants raw bytes at the store's path, bypassing Save.
func writeRaw(store *TokenStore, data []byte) error {
	return os.WriteFile(store.Path(), data, 0600)
}
