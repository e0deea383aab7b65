package services

import (
	"strings"

	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

// ScopeValidator checks requested scopes against the global vocabulary and
// a client's allowed set.
type ScopeValidator struct {
	known        map[string]struct{}
	defaultScope string
}

// NewScopeValidator creates a validator over the global recognized-scope
// vocabulary.
func NewScopeValidator(vocabulary []string, defaultScope string) *ScopeValidator {
	known := make(map[string]struct{}, len(vocabulary))
	for _, s := range vocabulary {
		known[s] = struct{}{}
	}
	return &ScopeValidator{
		known:        known,
		defaultScope: defaultScope,
	}
}

// Validate splits the requested scope on whitespace and rejects any token
// outside either the global vocabulary or the client's allowed scopes.
// An empty request gets the configured default set, which is still checked
// against the client.
func (v *ScopeValidator) Validate(client *oauth.Client, requested string) ([]string, error) {
	if strings.TrimSpace(requested) == "" {
		requested = v.defaultScope
	}

	scopes := strings.Fields(requested)
	granted := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))

	for _, s := range scopes {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}

		if _, ok := v.known[s]; !ok {
			return nil, errors.ErrInvalidScope
		}
		if !client.HasScope(s) {
			return nil, errors.ErrInvalidScope
		}
		granted = append(granted, s)
	}

	return granted, nil
}
