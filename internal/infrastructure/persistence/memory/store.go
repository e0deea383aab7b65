// Package memory provides in-memory repository implementations with the
// same atomicity contracts as the PostgreSQL ones. Used by tests and by
// the dev-mode server.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/internal/domain/token"
	apperrors "github.com/paiecashplay/oauth-core/pkg/errors"
)

// ClientRepository is an in-memory oauth.ClientRepository.
type ClientRepository struct {
	mu      sync.RWMutex
	clients map[string]*oauth.Client // keyed by client_id
}

func NewClientRepository() *ClientRepository {
	return &ClientRepository{clients: make(map[string]*oauth.Client)}
}

func (r *ClientRepository) Create(_ context.Context, client *oauth.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[client.ClientID]; exists {
		return apperrors.Wrap(apperrors.ErrInternal, "client already exists")
	}
	c := *client
	r.clients[client.ClientID] = &c
	return nil
}

func (r *ClientRepository) GetByClientID(_ context.Context, clientID string) (*oauth.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil, apperrors.ErrClientNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *ClientRepository) SetActive(_ context.Context, clientID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return apperrors.ErrClientNotFound
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ClientRepository) List(_ context.Context, limit, offset int) ([]*oauth.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*oauth.Client, 0, len(r.clients))
	for _, c := range r.clients {
		copied := *c
		all = append(all, &copied)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// AuthorizationCodeRepository is an in-memory
// oauth.AuthorizationCodeRepository. Consume holds the write lock for the
// whole check-and-mark step, the same exactly-once guarantee the SQL
// conditional UPDATE gives.
type AuthorizationCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*oauth.AuthorizationCode // keyed by code hash
}

func NewAuthorizationCodeRepository() *AuthorizationCodeRepository {
	return &AuthorizationCodeRepository{codes: make(map[string]*oauth.AuthorizationCode)}
}

func (r *AuthorizationCodeRepository) Create(_ context.Context, code *oauth.AuthorizationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[code.CodeHash]; exists {
		return apperrors.Wrap(apperrors.ErrInternal, "authorization code collision")
	}
	c := *code
	r.codes[code.CodeHash] = &c
	return nil
}

func (r *AuthorizationCodeRepository) Consume(_ context.Context, codeHash string) (*oauth.ConsumedCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[codeHash]
	if !ok || c.Used || c.IsExpired() {
		return nil, apperrors.ErrInvalidGrant
	}
	c.Used = true

	return &oauth.ConsumedCode{
		ClientID:            c.ClientID,
		UserID:              c.UserID,
		RedirectURI:         c.RedirectURI,
		Scope:               c.Scope,
		CodeChallenge:       c.CodeChallenge,
		CodeChallengeMethod: c.CodeChallengeMethod,
	}, nil
}

// PendingAuthorizationRepository is an in-memory
// oauth.PendingAuthorizationRepository.
type PendingAuthorizationRepository struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*oauth.PendingAuthorization
}

func NewPendingAuthorizationRepository() *PendingAuthorizationRepository {
	return &PendingAuthorizationRepository{pending: make(map[uuid.UUID]*oauth.PendingAuthorization)}
}

func (r *PendingAuthorizationRepository) Store(_ context.Context, pending *oauth.PendingAuthorization) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[pending.ID]; exists {
		return apperrors.Wrap(apperrors.ErrInternal, "pending authorization id collision")
	}
	p := *pending
	r.pending[pending.ID] = &p
	return nil
}

func (r *PendingAuthorizationRepository) Consume(_ context.Context, id uuid.UUID) (*oauth.PendingAuthorization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if !ok {
		return nil, apperrors.ErrPendingNotFound
	}
	delete(r.pending, id)
	if p.IsExpired() {
		return nil, apperrors.ErrPendingNotFound
	}
	return p, nil
}

// TokenRepository is an in-memory token.Repository.
type TokenRepository struct {
	mu      sync.Mutex
	access  map[string]*token.AccessToken  // keyed by token hash
	refresh map[string]*token.RefreshToken // keyed by token hash
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		access:  make(map[string]*token.AccessToken),
		refresh: make(map[string]*token.RefreshToken),
	}
}

func (r *TokenRepository) StorePair(_ context.Context, access *token.AccessToken, refresh *token.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.storePairLocked(access, refresh)
	return nil
}

func (r *TokenRepository) storePairLocked(access *token.AccessToken, refresh *token.RefreshToken) {
	a := *access
	rt := *refresh
	r.access[access.TokenHash] = &a
	r.refresh[refresh.TokenHash] = &rt
}

func (r *TokenRepository) Rotate(_ context.Context, oldRefreshHash string, access *token.AccessToken, refresh *token.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.refresh[oldRefreshHash]
	if !ok || old.Revoked || old.IsExpired() {
		return apperrors.ErrInvalidGrant
	}
	old.Revoked = true
	r.storePairLocked(access, refresh)
	return nil
}

func (r *TokenRepository) GetAccessByHash(_ context.Context, tokenHash string) (*token.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.access[tokenHash]
	if !ok {
		return nil, apperrors.ErrTokenInvalid
	}
	copied := *t
	return &copied, nil
}

func (r *TokenRepository) GetRefreshByHash(_ context.Context, tokenHash string) (*token.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.refresh[tokenHash]
	if !ok {
		return nil, apperrors.ErrTokenInvalid
	}
	copied := *t
	return &copied, nil
}

func (r *TokenRepository) RevokeAccessByHash(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.access[tokenHash]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (r *TokenRepository) RevokeRefreshByHash(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.refresh[tokenHash]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}
