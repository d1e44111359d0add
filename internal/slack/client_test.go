package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetStatus(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users.profile.set" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("failed to parse request body: %v", err)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewClient("xoxp-token", srv.URL)
	expiration := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	if err := client.SetStatus(context.Background(), "Home or Other Office", ":here:", expiration); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	if gotAuth != "Bearer xoxp-token" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
	prof, ok := gotBody["profile"].(map[string]any)
	if !ok {
		t.Fatalf("expected a profile object, got %v", gotBody)
	}
	if prof["status_text"] != "Home or Other Office" || prof["status_emoji"] != ":here:" {
		t.Errorf("unexpected profile %v", prof)
	}
	if int64(prof["status_expiration"].(float64)) != expiration.Unix() {
		t.Errorf("unexpected expiration %v", prof["status_expiration"])
	}
}

func TestSetStatus_ZeroExpiration(t *testing.T) {
	var gotBody profileSetRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewClient("xoxp-token", srv.URL)
	if err := client.SetStatus(context.Background(), "text", ":emoji:", time.Time{}); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if gotBody.Profile.StatusExpiration != 0 {
		t.Errorf("expected no expiration, got %d", gotBody.Profile.StatusExpiration)
	}
}

func TestSetStatus_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "invalid_auth"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-token", srv.URL)
	err := client.SetStatus(context.Background(), "text", ":emoji:", time.Time{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "invalid_auth" {
		t.Errorf("unexpected code %q", apiErr.Code)
	}
}

func TestSetStatus_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway</html>"))
	}))
	defer srv.Close()

	client := NewClient("xoxp-token", srv.URL)
	if err := client.SetStatus(context.Background(), "text", ":emoji:", time.Time{}); err == nil {
		t.Fatal("expected an error")
	}
}
