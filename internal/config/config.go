// Package config loads the tool configuration from the environment.
//
// A .env file in the working directory is applied first when present, then
// the process environment. Core components receive an immutable
// ClientIdentity value; nothing below this package reads the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"calsync/internal/oauth"
)

// defaultTokenFile is the token cache location relative to the home
// directory.
const defaultTokenFile = ".config/calsync/token.json"

// Config is the resolved tool configuration.
type Config struct {
	// ClientID is the Azure AD application (client) ID.
	ClientID string `env:"MSGRAPH_CLIENT_ID"`

	// ClientSecret is the confidential client secret, used for the
	// refresh-token grant.
	ClientSecret string `env:"MSGRAPH_CLIENT_SECRET"`

	// Tenant is the Azure AD tenant ID, or "common".
	Tenant string `env:"MSGRAPH_TENANT_ID" envDefault:"common"`

	// Scopes is the space-separated OAuth scope string.
	Scopes string `env:"MSGRAPH_SCOPES" envDefault:"offline_access Calendars.Read"`

	// TokenFile is the credential cache path. Defaults to
	// ~/.config/calsync/token.json.
	TokenFile string `env:"CALSYNC_TOKEN_FILE"`

	// RulesFile is an optional YAML status-rules override.
	RulesFile string `env:"CALSYNC_RULES_FILE"`

	// SlackToken is the Slack user token for users.profile.set.
	SlackToken string `env:"SLACK_API_TOKEN"`
}

// Load reads the configuration from .env (best effort) and the process
// environment.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("MSGRAPH_CLIENT_ID is not set")
	}

	if cfg.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.TokenFile = filepath.Join(home, defaultTokenFile)
	}

	return cfg, nil
}

// Identity returns the immutable OAuth client identity.
func (c *Config) Identity() oauth.ClientIdentity {
	return oauth.ClientIdentity{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Tenant:       c.Tenant,
		Scopes:       strings.Fields(c.Scopes),
	}
}
