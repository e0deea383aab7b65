package token

import "context"

// Repository defines the interface for opaque token persistence. The store
// is the sole synchronization point: revocation must be atomic per token
// and rotation must consume the old refresh token and insert the new pair
// within a single transaction.
type Repository interface {
	// StorePair persists an access token and its paired refresh token
	// atomically.
	StorePair(ctx context.Context, access *AccessToken, refresh *RefreshToken) error

	// GetAccessByHash retrieves an access token by hash. Returns
	// errors.ErrTokenInvalid when no record exists.
	GetAccessByHash(ctx context.Context, tokenHash string) (*AccessToken, error)

	// GetRefreshByHash retrieves a refresh token by hash. Returns
	// errors.ErrTokenInvalid when no record exists.
	GetRefreshByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Rotate atomically revokes the refresh token identified by
	// oldRefreshHash (only if still unrevoked and unexpired) and stores the
	// replacement pair. Returns errors.ErrInvalidGrant when the old token
	// cannot be consumed; in that case nothing is persisted.
	Rotate(ctx context.Context, oldRefreshHash string, access *AccessToken, refresh *RefreshToken) error

	// RevokeAccessByHash marks an access token revoked. Revoking an
	// already-revoked or unknown token is a no-op success.
	RevokeAccessByHash(ctx context.Context, tokenHash string) (bool, error)

	// RevokeRefreshByHash marks a refresh token revoked. Same idempotency
	// contract as RevokeAccessByHash.
	RevokeRefreshByHash(ctx context.Context, tokenHash string) (bool, error)
}
