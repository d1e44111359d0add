package oauth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// TokenStore persists a single credential record as a JSON file.
//
// SECURITY: This store handles a sensitive OAuth credential. The file is
// created with 0600 permissions, the containing directory with 0700, and
// token values are never logged (only expiry and refresh-token presence).
//
// The store is not safe against concurrent processes writing the same path.
// Within one process, writes are atomic at full-record granularity: a save
// can never leave a record mixing fields from two issuances.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store backed by the given file path. The parent
// directory is created on demand.
func NewTokenStore(path string) (*TokenStore, error) {
	if path == "" {
		return nil, fmt.Errorf("token store path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token storage directory: %w", err)
	}
	return &TokenStore{path: path}, nil
}

// Path returns the location of the persisted record.
func (s *TokenStore) Path() string { return s.path }

// Load reads the persisted credential. It returns (nil, nil) when no record
// exists and *CorruptCredentialError when the bytes do not parse as a
// credential; callers treat both as "absent".
func (s *TokenStore) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, &CorruptCredentialError{Path: s.path, Reason: err}
	}
	if cred.AccessToken == "" {
		return nil, &CorruptCredentialError{Path: s.path, Reason: fmt.Errorf("record has no access token")}
	}

	return &cred, nil
}

// Save overwrites the persisted record wholesale. The credential is written
// to a temporary file in the same directory and renamed into place so a
// partial write can not surface as a valid record.
func (s *TokenStore) Save(cred *Credential) error {
	if cred == nil || cred.AccessToken == "" {
		return fmt.Errorf("refusing to save empty credential")
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to restrict credential file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}

	slog.Info("credential stored",
		"path", s.path,
		"expires_at", cred.ExpiresAt,
		"has_refresh_token", cred.RefreshToken != "",
	)
	return nil
}

// Clear removes the persisted record. Clearing an absent record is not an
// error.
func (s *TokenStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}

	slog.Info("credential cleared", "path", s.path)
	return nil
}
