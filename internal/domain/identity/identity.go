package identity

import (
	"context"
	"errors"
)

// ErrUnauthenticated signals that no resource owner is authenticated for
// the presented session token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Provider resolves the resource owner behind a browser session. The login
// and signup surfaces that establish sessions live elsewhere in the
// platform; this core only asks "who is this".
type Provider interface {
	// ResolveUserID returns the authenticated user id for a session token,
	// or ErrUnauthenticated.
	ResolveUserID(ctx context.Context, sessionToken string) (string, error)
}
