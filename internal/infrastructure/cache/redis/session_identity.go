package redis

import (
	"context"
	"encoding/json"

	"github.com/paiecashplay/oauth-core/internal/domain/identity"
	apperrors "github.com/paiecashplay/oauth-core/pkg/errors"
)

const browserSessionPrefix = "browser_session:"

// SessionIdentityProvider resolves resource owners from the platform's
// browser sessions. The login surface writes these keys; this core only
// reads them.
type SessionIdentityProvider struct {
	client *Client
}

func NewSessionIdentityProvider(client *Client) *SessionIdentityProvider {
	return &SessionIdentityProvider{client: client}
}

type browserSessionData struct {
	UserID string `json:"user_id"`
}

// ResolveUserID returns the authenticated user id for a session token, or
// identity.ErrUnauthenticated.
func (p *SessionIdentityProvider) ResolveUserID(ctx context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", identity.ErrUnauthenticated
	}

	jsonData, err := p.client.Get(ctx, browserSessionPrefix+sessionToken)
	if err != nil {
		if IsNil(err) {
			return "", identity.ErrUnauthenticated
		}
		return "", apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	var data browserSessionData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return "", apperrors.Wrap(err, "failed to unmarshal browser session")
	}

	if data.UserID == "" {
		return "", identity.ErrUnauthenticated
	}

	return data.UserID, nil
}
