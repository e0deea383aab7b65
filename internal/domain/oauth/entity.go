package oauth

import (
	"time"

	"github.com/google/uuid"
)

// Client represents a registered OAuth client application.
// Clients can be confidential (with secret) or public (PKCE-only).
// Records are created by the platform's admin tooling; this core only
// reads them and toggles Active.
type Client struct {
	ID           uuid.UUID
	ClientID     string // Public client identifier
	SecretHash   string // PHC-formatted Argon2id hash, empty for public clients
	Name         string // Human-readable name
	RedirectURIs []string
	Scopes       []string // Allowed scopes for this client
	Public       bool     // True if client authenticates without a secret
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRedirectURI checks if the given URI is registered, by exact string
// match. Prefix or wildcard matching is deliberately not supported.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// HasScope checks if the client is allowed to request the given scope.
func (c *Client) HasScope(scope string) bool {
	for _, allowed := range c.Scopes {
		if allowed == scope {
			return true
		}
	}
	return false
}

// AuthorizationCode is a single-use credential exchanged for tokens.
// Only the SHA-256 hash of the code value is ever persisted; the cleartext
// exists in the redirect at issuance and in the token request that redeems
// it. Used transitions false to true exactly once and is never reset.
type AuthorizationCode struct {
	ID                  uuid.UUID
	CodeHash            string
	ClientID            string
	UserID              string
	RedirectURI         string
	Scope               string
	CodeChallenge       string // PKCE: stored challenge, empty when not used
	CodeChallengeMethod string // PKCE: S256 or plain
	Used                bool
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// NewAuthorizationCode creates an authorization code record for a hashed
// code value.
func NewAuthorizationCode(
	codeHash, clientID, userID, redirectURI, scope string,
	codeChallenge, codeChallengeMethod string,
	ttl time.Duration,
) *AuthorizationCode {
	now := time.Now().UTC()
	return &AuthorizationCode{
		ID:                  uuid.New(),
		CodeHash:            codeHash,
		ClientID:            clientID,
		UserID:              userID,
		RedirectURI:         redirectURI,
		Scope:               scope,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}
}

// IsExpired checks if the authorization code has expired.
func (ac *AuthorizationCode) IsExpired() bool {
	return time.Now().UTC().After(ac.ExpiresAt)
}

// PendingAuthorization bridges the gap between an authorize request and the
// resource owner's login. One is created on every authorize call, consumed
// exactly once when the code is issued, and never reused.
type PendingAuthorization struct {
	ID                  uuid.UUID
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// NewPendingAuthorization creates a pending authorization record.
func NewPendingAuthorization(
	clientID, redirectURI, scope, state string,
	codeChallenge, codeChallengeMethod string,
	ttl time.Duration,
) *PendingAuthorization {
	now := time.Now().UTC()
	return &PendingAuthorization{
		ID:                  uuid.New(),
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scope:               scope,
		State:               state,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}
}

// IsExpired checks if the pending authorization has expired.
func (p *PendingAuthorization) IsExpired() bool {
	return time.Now().UTC().After(p.ExpiresAt)
}
