package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	apperrors "github.com/paiecashplay/oauth-core/pkg/errors"
)

const pendingAuthPrefix = "pending_auth:"

// PendingAuthorizationRepository stores authorize-to-login bridge records
// in Redis with auto-expiry.
type PendingAuthorizationRepository struct {
	client *Client
}

func NewPendingAuthorizationRepository(client *Client) *PendingAuthorizationRepository {
	return &PendingAuthorizationRepository{client: client}
}

type pendingAuthData struct {
	ID                  string    `json:"id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope"`
	State               string    `json:"state"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	ExpiresAt           time.Time `json:"expires_at"`
	CreatedAt           time.Time `json:"created_at"`
}

// Store saves the pending authorization with TTL. Uses SetNX to prevent
// collisions.
func (r *PendingAuthorizationRepository) Store(ctx context.Context, pending *oauth.PendingAuthorization) error {
	key := pendingAuthPrefix + pending.ID.String()

	data := pendingAuthData{
		ID:                  pending.ID.String(),
		ClientID:            pending.ClientID,
		RedirectURI:         pending.RedirectURI,
		Scope:               pending.Scope,
		State:               pending.State,
		CodeChallenge:       pending.CodeChallenge,
		CodeChallengeMethod: pending.CodeChallengeMethod,
		ExpiresAt:           pending.ExpiresAt,
		CreatedAt:           pending.CreatedAt,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal pending authorization")
	}

	ttl := time.Until(pending.ExpiresAt)
	if ttl <= 0 {
		return apperrors.ErrPendingNotFound
	}

	success, err := r.client.SetNX(ctx, key, jsonData, ttl)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	if !success {
		return apperrors.Wrap(apperrors.ErrInternal, "pending authorization id collision")
	}

	return nil
}

// Consume retrieves and removes the record atomically (GETDEL), so a
// pending authorization can only ever complete once.
func (r *PendingAuthorizationRepository) Consume(ctx context.Context, id uuid.UUID) (*oauth.PendingAuthorization, error) {
	key := pendingAuthPrefix + id.String()

	jsonData, err := r.client.GetDel(ctx, key)
	if err != nil {
		if IsNil(err) {
			return nil, apperrors.ErrPendingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	var data pendingAuthData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal pending authorization")
	}

	// Double-check expiry in case the Redis TTL drifted
	if time.Now().UTC().After(data.ExpiresAt) {
		return nil, apperrors.ErrPendingNotFound
	}

	pendingID, err := uuid.Parse(data.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, "invalid id in pending authorization")
	}

	return &oauth.PendingAuthorization{
		ID:                  pendingID,
		ClientID:            data.ClientID,
		RedirectURI:         data.RedirectURI,
		Scope:               data.Scope,
		State:               data.State,
		CodeChallenge:       data.CodeChallenge,
		CodeChallengeMethod: data.CodeChallengeMethod,
		ExpiresAt:           data.ExpiresAt,
		CreatedAt:           data.CreatedAt,
	}, nil
}
