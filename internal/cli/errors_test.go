package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAuthRequiredError(t *testing.T) {
	err := &AuthRequiredError{}

	if !strings.Contains(err.Error(), "calsync auth login") {
		t.Errorf("expected login guidance in %q", err.Error())
	}

	wrapped := fmt.Errorf("command failed: %w", err)
	if !errors.Is(wrapped, &AuthRequiredError{}) {
		t.Error("expected errors.Is to match through wrapping")
	}
}

func TestAuthFailedError(t *testing.T) {
	cause := errors.New("authorization declined by user")
	err := &AuthFailedError{Reason: cause}

	if !strings.Contains(err.Error(), "authorization declined by user") {
		t.Errorf("expected the cause in %q", err.Error())
	}
	if !strings.Contains(err.Error(), "calsync auth login") {
		t.Errorf("expected retry guidance in %q", err.Error())
	}

	wrapped := fmt.Errorf("command failed: %w", err)
	if !errors.Is(wrapped, &AuthFailedError{}) {
		t.Error("expected errors.Is to match through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be reachable through the chain")
	}
}
