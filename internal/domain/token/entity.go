package token

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is a short-lived opaque bearer credential. Only the SHA-256
// hash of the value handed to the client is persisted.
type AccessToken struct {
	ID        uuid.UUID
	TokenHash string
	ClientID  string
	UserID    string
	Scope     string
	Revoked   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshToken is a long-lived opaque credential bound to the access token
// it was issued alongside and to the issuing client.
type RefreshToken struct {
	ID            uuid.UUID
	TokenHash     string
	AccessTokenID uuid.UUID
	ClientID      string
	UserID        string
	Scope         string
	Revoked       bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// NewAccessToken creates an access token record for a hashed opaque value.
func NewAccessToken(tokenHash, clientID, userID, scope string, ttl time.Duration) *AccessToken {
	now := time.Now().UTC()
	return &AccessToken{
		ID:        uuid.New(),
		TokenHash: tokenHash,
		ClientID:  clientID,
		UserID:    userID,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// NewRefreshToken creates a refresh token record issued alongside the given
// access token.
func NewRefreshToken(tokenHash string, access *AccessToken, ttl time.Duration) *RefreshToken {
	now := time.Now().UTC()
	return &RefreshToken{
		ID:            uuid.New(),
		TokenHash:     tokenHash,
		AccessTokenID: access.ID,
		ClientID:      access.ClientID,
		UserID:        access.UserID,
		Scope:         access.Scope,
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
	}
}

// IsExpired checks if the access token has expired.
func (t *AccessToken) IsExpired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

// IsValid reports whether the token is neither revoked nor expired.
func (t *AccessToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}

// IsExpired checks if the refresh token has expired.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

// IsValid reports whether the token is neither revoked nor expired.
func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}
