package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/paiecashplay/oauth-core/internal/domain/token"
	apperrors "github.com/paiecashplay/oauth-core/pkg/errors"
)

// TokenRepository implements token.Repository using PostgreSQL.
type TokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new PostgreSQL token repository.
func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

const insertAccessQuery = `
	INSERT INTO access_tokens (id, token_hash, client_id, user_id, scope, revoked, issued_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, false, $6, $7)
`

const insertRefreshQuery = `
	INSERT INTO refresh_tokens (id, token_hash, access_token_id, client_id, user_id, scope, revoked, issued_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)
`

// StorePair persists an access token and its paired refresh token in one
// transaction.
func (r *TokenRepository) StorePair(ctx context.Context, access *token.AccessToken, refresh *token.RefreshToken) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	defer tx.Rollback(ctx)

	if err := insertPair(ctx, tx, access, refresh); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

// Rotate revokes the presented refresh token and stores the replacement
// pair inside a single transaction. The conditional UPDATE makes the old
// token single-use under concurrent refresh attempts, and a crash between
// revoke and insert rolls both back.
func (r *TokenRepository) Rotate(ctx context.Context, oldRefreshHash string, access *token.AccessToken, refresh *token.RefreshToken) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	defer tx.Rollback(ctx)

	revoke := `
		UPDATE refresh_tokens
		SET revoked = true
		WHERE token_hash = $1 AND revoked = false AND expires_at > $2
	`
	result, err := tx.Exec(ctx, revoke, oldRefreshHash, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrInvalidGrant
	}

	if err := insertPair(ctx, tx, access, refresh); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func insertPair(ctx context.Context, tx pgx.Tx, access *token.AccessToken, refresh *token.RefreshToken) error {
	_, err := tx.Exec(ctx, insertAccessQuery,
		access.ID,
		access.TokenHash,
		access.ClientID,
		access.UserID,
		access.Scope,
		access.IssuedAt,
		access.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to store access token")
	}

	_, err = tx.Exec(ctx, insertRefreshQuery,
		refresh.ID,
		refresh.TokenHash,
		refresh.AccessTokenID,
		refresh.ClientID,
		refresh.UserID,
		refresh.Scope,
		refresh.IssuedAt,
		refresh.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to store refresh token")
	}

	return nil
}

// GetAccessByHash retrieves an access token by its hash.
func (r *TokenRepository) GetAccessByHash(ctx context.Context, tokenHash string) (*token.AccessToken, error) {
	query := `
		SELECT id, token_hash, client_id, user_id, scope, revoked, issued_at, expires_at
		FROM access_tokens
		WHERE token_hash = $1
	`

	t := &token.AccessToken{}
	err := r.db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.TokenHash,
		&t.ClientID,
		&t.UserID,
		&t.Scope,
		&t.Revoked,
		&t.IssuedAt,
		&t.ExpiresAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	return t, nil
}

// GetRefreshByHash retrieves a refresh token by its hash.
func (r *TokenRepository) GetRefreshByHash(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	query := `
		SELECT id, token_hash, access_token_id, client_id, user_id, scope, revoked, issued_at, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	t := &token.RefreshToken{}
	err := r.db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.TokenHash,
		&t.AccessTokenID,
		&t.ClientID,
		&t.UserID,
		&t.Scope,
		&t.Revoked,
		&t.IssuedAt,
		&t.ExpiresAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	return t, nil
}

// RevokeAccessByHash marks an access token revoked. Zero affected rows is
// not an error: revocation is idempotent and must not reveal whether the
// token ever existed.
func (r *TokenRepository) RevokeAccessByHash(ctx context.Context, tokenHash string) (bool, error) {
	query := `UPDATE access_tokens SET revoked = true WHERE token_hash = $1 AND revoked = false`

	result, err := r.db.Pool.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	return result.RowsAffected() > 0, nil
}

// RevokeRefreshByHash marks a refresh token revoked, with the same
// idempotency contract as RevokeAccessByHash.
func (r *TokenRepository) RevokeRefreshByHash(ctx context.Context, tokenHash string) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1 AND revoked = false`

	result, err := r.db.Pool.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	return result.RowsAffected() > 0, nil
}

// DeleteExpired removes tokens past their expiry. Validation enforces
// expiry on read; this is housekeeping only.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	refreshResult, err := r.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired refresh tokens")
	}

	accessResult, err := r.db.Pool.Exec(ctx, `DELETE FROM access_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return refreshResult.RowsAffected(), apperrors.Wrap(err, "failed to delete expired access tokens")
	}

	return refreshResult.RowsAffected() + accessResult.RowsAffected(), nil
}
