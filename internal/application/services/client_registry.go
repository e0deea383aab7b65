package services

import (
	"context"
	"net/url"

	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/crypto"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

// ClientRegistry resolves and validates registered OAuth clients.
type ClientRegistry struct {
	clientRepo oauth.ClientRepository
	hasher     *crypto.Argon2Hasher
}

// NewClientRegistry creates a new client registry.
func NewClientRegistry(clientRepo oauth.ClientRepository, hasher *crypto.Argon2Hasher) *ClientRegistry {
	return &ClientRegistry{
		clientRepo: clientRepo,
		hasher:     hasher,
	}
}

// Resolve looks up a client by its public identifier.
func (r *ClientRegistry) Resolve(ctx context.Context, clientID string) (*oauth.Client, error) {
	return r.clientRepo.GetByClientID(ctx, clientID)
}

// Validate authenticates a client. Confidential clients must present a
// secret matching their stored hash; public clients are accepted without
// one. Unknown, inactive, and badly-authenticated clients all come back as
// ErrInvalidClient.
func (r *ClientRegistry) Validate(ctx context.Context, clientID, clientSecret string) (*oauth.Client, error) {
	client, err := r.clientRepo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, errors.ErrClientNotFound) {
			return nil, errors.ErrInvalidClient
		}
		return nil, err
	}

	if !client.Active {
		return nil, errors.ErrInvalidClient
	}

	if client.Public {
		// A public client never holds a secret; presenting one is a
		// misconfigured integration, not an authentication.
		if clientSecret != "" {
			return nil, errors.ErrInvalidClient
		}
		return client, nil
	}

	if clientSecret == "" {
		return nil, errors.ErrInvalidClient
	}

	valid, err := r.hasher.Verify(clientSecret, client.SecretHash)
	if err != nil || !valid {
		return nil, errors.ErrInvalidClient
	}

	return client, nil
}

// ValidateRedirectURI checks the URI against the registered set by exact
// string match after canonical parsing. Prefix and wildcard matching are
// the classic open-redirect bug class and are not supported.
func (r *ClientRegistry) ValidateRedirectURI(client *oauth.Client, uri string) bool {
	parsed, err := url.Parse(uri)
	if err != nil || !parsed.IsAbs() {
		return false
	}
	return client.HasRedirectURI(uri)
}
