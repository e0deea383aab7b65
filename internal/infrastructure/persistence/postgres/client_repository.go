package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	apperrors "github.com/paiecashplay/oauth-core/pkg/errors"
)

// ClientRepository implements oauth.ClientRepository using PostgreSQL.
type ClientRepository struct {
	db *DB
}

// NewClientRepository creates a new PostgreSQL client repository.
func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create persists a new OAuth client.
func (r *ClientRepository) Create(ctx context.Context, client *oauth.Client) error {
	query := `
		INSERT INTO oauth_clients (id, client_id, secret_hash, name, redirect_uris, scopes, public, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		client.ID,
		client.ClientID,
		client.SecretHash,
		client.Name,
		client.RedirectURIs,
		client.Scopes,
		client.Public,
		client.Active,
		client.CreatedAt,
		client.UpdatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return apperrors.Wrap(err, "client already exists")
		}
		return apperrors.Wrap(err, "failed to create client")
	}

	return nil
}

// GetByClientID retrieves a client by public client_id.
func (r *ClientRepository) GetByClientID(ctx context.Context, clientID string) (*oauth.Client, error) {
	query := `
		SELECT id, client_id, secret_hash, name, redirect_uris, scopes, public, active, created_at, updated_at
		FROM oauth_clients
		WHERE client_id = $1
	`

	return r.scanClient(r.db.Pool.QueryRow(ctx, query, clientID))
}

// SetActive toggles the active flag on a client.
func (r *ClientRepository) SetActive(ctx context.Context, clientID string, active bool) error {
	query := `UPDATE oauth_clients SET active = $2, updated_at = now() WHERE client_id = $1`

	result, err := r.db.Pool.Exec(ctx, query, clientID, active)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client")
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrClientNotFound
	}

	return nil
}

// List retrieves all clients with pagination.
func (r *ClientRepository) List(ctx context.Context, limit, offset int) ([]*oauth.Client, error) {
	query := `
		SELECT id, client_id, secret_hash, name, redirect_uris, scopes, public, active, created_at, updated_at
		FROM oauth_clients
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list clients")
	}
	defer rows.Close()

	var clients []*oauth.Client
	for rows.Next() {
		c := &oauth.Client{}
		err := rows.Scan(
			&c.ID,
			&c.ClientID,
			&c.SecretHash,
			&c.Name,
			&c.RedirectURIs,
			&c.Scopes,
			&c.Public,
			&c.Active,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan client")
		}
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating clients")
	}

	return clients, nil
}

// scanClient scans a single client from a row.
func (r *ClientRepository) scanClient(row pgx.Row) (*oauth.Client, error) {
	c := &oauth.Client{}

	err := row.Scan(
		&c.ID,
		&c.ClientID,
		&c.SecretHash,
		&c.Name,
		&c.RedirectURIs,
		&c.Scopes,
		&c.Public,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan client")
	}

	return c, nil
}
