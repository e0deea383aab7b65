package postgres

import (
	"context"
	"time"

	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	apperrors "github.com/paiecashplay/oauth-core/pkg/errors"
)

// AuthorizationCodeRepository implements oauth.AuthorizationCodeRepository
// using PostgreSQL.
type AuthorizationCodeRepository struct {
	db *DB
}

// NewAuthorizationCodeRepository creates a new PostgreSQL authorization code repository.
func NewAuthorizationCodeRepository(db *DB) *AuthorizationCodeRepository {
	return &AuthorizationCodeRepository{db: db}
}

// Create persists a new authorization code.
func (r *AuthorizationCodeRepository) Create(ctx context.Context, code *oauth.AuthorizationCode) error {
	query := `
		INSERT INTO authorization_codes (id, code_hash, client_id, user_id, redirect_uri, scope, code_challenge, code_challenge_method, used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		code.ID,
		code.CodeHash,
		code.ClientID,
		code.UserID,
		code.RedirectURI,
		code.Scope,
		code.CodeChallenge,
		code.CodeChallengeMethod,
		code.ExpiresAt,
		code.CreatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return apperrors.Wrap(err, "authorization code collision")
		}
		return apperrors.Wrap(err, "failed to create authorization code")
	}

	return nil
}

// Consume atomically flips used=false to used=true and returns the bound
// data. The conditional UPDATE is the whole concurrency story: of N racing
// redemptions exactly one sees an affected row, everyone else gets
// ErrInvalidGrant. Unknown, already-used, and expired codes are
// indistinguishable to the caller.
func (r *AuthorizationCodeRepository) Consume(ctx context.Context, codeHash string) (*oauth.ConsumedCode, error) {
	query := `
		UPDATE authorization_codes
		SET used = true
		WHERE code_hash = $1 AND used = false AND expires_at > $2
		RETURNING client_id, user_id, redirect_uri, scope, code_challenge, code_challenge_method
	`

	consumed := &oauth.ConsumedCode{}
	err := r.db.Pool.QueryRow(ctx, query, codeHash, time.Now().UTC()).Scan(
		&consumed.ClientID,
		&consumed.UserID,
		&consumed.RedirectURI,
		&consumed.Scope,
		&consumed.CodeChallenge,
		&consumed.CodeChallengeMethod,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrInvalidGrant
		}
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	return consumed, nil
}

// DeleteExpired removes codes past their expiry. Expiry is enforced at
// consumption time; this is housekeeping only.
func (r *AuthorizationCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM authorization_codes WHERE expires_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired codes")
	}

	return result.RowsAffected(), nil
}
