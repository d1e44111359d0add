// Package slack sets the user's Slack status via the Web API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Slack Web API endpoint.
const DefaultBaseURL = "https://slack.com/api"

// Client calls the Slack Web API with a user token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Slack client. baseURL may be empty to use the
// production endpoint.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a Slack API-level failure ({"ok":false,...}).
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack API error: %s", e.Code)
}

// profileSetRequest is the users.profile.set payload.
type profileSetRequest struct {
	Profile profile `json:"profile"`
}

type profile struct {
	StatusText       string `json:"status_text"`
	StatusEmoji      string `json:"status_emoji"`
	StatusExpiration int64  `json:"status_expiration"`
}

// apiResponse is the common Slack response envelope.
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// SetStatus sets the user's status text and emoji until the expiration
// time. A zero expiration leaves the status in place indefinitely.
func (c *Client) SetStatus(ctx context.Context, text, emoji string, expiration time.Time) error {
	payload := profileSetRequest{
		Profile: profile{
			StatusText:  text,
			StatusEmoji: emoji,
		},
	}
	if !expiration.IsZero() {
		payload.Profile.StatusExpiration = expiration.Unix()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal profile payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users.profile.set", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode slack response: %w", err)
	}
	if !envelope.OK {
		return &APIError{Code: envelope.Error}
	}
	return nil
}
