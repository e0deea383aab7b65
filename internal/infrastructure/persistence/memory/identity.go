package memory

import (
	"context"
	"sync"

	"github.com/paiecashplay/oauth-core/internal/domain/identity"
)

// IdentityProvider is an in-memory identity.Provider keyed by session
// token.
type IdentityProvider struct {
	mu       sync.RWMutex
	sessions map[string]string // session token -> user id
}

func NewIdentityProvider() *IdentityProvider {
	return &IdentityProvider{sessions: make(map[string]string)}
}

// AddSession registers a session token for a user.
func (p *IdentityProvider) AddSession(sessionToken, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sessionToken] = userID
}

func (p *IdentityProvider) ResolveUserID(_ context.Context, sessionToken string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	userID, ok := p.sessions[sessionToken]
	if !ok {
		return "", identity.ErrUnauthenticated
	}
	return userID, nil
}
