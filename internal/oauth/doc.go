// Package oauth implements the credential lifecycle for the Microsoft
// identity platform's device-authorization grant.
//
// The package is organized around a small set of collaborating components:
//
//   - TokenStore persists a single credential record as a JSON file.
//   - DeviceCodeFlow drives device-code issuance and bounded polling with
//     provider-driven backoff.
//   - Refresher exchanges a refresh token for a new access token.
//   - CredentialProvider orchestrates the three to produce an
//     AuthenticatedClient holding a currently valid bearer token.
//   - SessionGuard wraps the provider with a bounded retry that recovers
//     from server-side token invalidation by clearing the cache and
//     re-authorizing.
//
// Time is injected through the Clock interface so the polling and backoff
// behavior is testable without real waiting. The flow is synchronous and
// single-process; the stored credential file carries no cross-process
// locking.
package oauth
