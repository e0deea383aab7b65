package oauth

import (
	"context"

	"github.com/google/uuid"
)

// ClientRepository defines the interface for OAuth client persistence.
type ClientRepository interface {
	// Create persists a new OAuth client.
	Create(ctx context.Context, client *Client) error

	// GetByClientID retrieves a client by public client_id.
	GetByClientID(ctx context.Context, clientID string) (*Client, error)

	// SetActive toggles the active flag. The only mutation this core
	// performs on client records.
	SetActive(ctx context.Context, clientID string, active bool) error

	// List retrieves all clients with pagination.
	List(ctx context.Context, limit, offset int) ([]*Client, error)
}

// ConsumedCode is what a successful redemption returns.
type ConsumedCode struct {
	ClientID            string
	UserID              string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizationCodeRepository defines the interface for authorization code
// storage.
type AuthorizationCodeRepository interface {
	// Create persists a new authorization code (hash only).
	Create(ctx context.Context, code *AuthorizationCode) error

	// Consume atomically marks the code used and returns its bound data.
	// The transition used=false to used=true must happen exactly once even
	// under concurrent redemption; every losing or invalid attempt returns
	// errors.ErrInvalidGrant. Expiry is checked as part of the same
	// conditional update.
	Consume(ctx context.Context, codeHash string) (*ConsumedCode, error)
}

// PendingAuthorizationRepository stores the authorize-to-login bridge
// records. They expire on their own and are consumed at most once.
type PendingAuthorizationRepository interface {
	// Store saves a pending authorization with automatic expiration.
	Store(ctx context.Context, pending *PendingAuthorization) error

	// Consume retrieves and removes a pending authorization in one step.
	// Returns errors.ErrPendingNotFound for unknown, expired, or already
	// consumed records.
	Consume(ctx context.Context, id uuid.UUID) (*PendingAuthorization, error)
}
