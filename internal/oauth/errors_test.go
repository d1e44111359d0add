package oauth

import (
	"errors"
	"fmt"
	"testing"
)

func TestRefreshError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("invalid_grant")
	err := &RefreshError{Reason: cause}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be reachable through the chain")
	}
}

func TestCorruptCredentialError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := &CorruptCredentialError{Path: "/tmp/token.json", Reason: cause}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be reachable through the chain")
	}
}

func TestProviderErrorCode_String(t *testing.T) {
	cases := map[ProviderErrorCode]string{
		ProviderErrorAuthorizationPending: "authorization_pending",
		ProviderErrorSlowDown:             "slow_down",
		ProviderErrorDeclined:             "authorization_declined",
		ProviderErrorExpired:              "expired_token",
		ProviderErrorUnknown:              "unknown",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("code %d: expected %q, got %q", code, want, got)
		}
	}
}

func TestTokenExchangeError_Message(t *testing.T) {
	withCode := &TokenExchangeError{Code: "bad_verification_code", Body: `{"error":"bad_verification_code"}`}
	if got := withCode.Error(); got == "" || got[:len("token exchange failed with")] != "token exchange failed with" {
		t.Errorf("unexpected message %q", got)
	}

	withoutCode := &TokenExchangeError{Body: "garbage"}
	if got := withoutCode.Error(); got != "token exchange failed: garbage" {
		t.Errorf("unexpected message %q", got)
	}
}
