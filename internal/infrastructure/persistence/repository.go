package persistence

import (
	"github.com/paiecashplay/oauth-core/internal/domain/identity"
	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/internal/domain/token"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/cache/redis"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/persistence/postgres"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Client   oauth.ClientRepository
	AuthCode oauth.AuthorizationCodeRepository
	Pending  oauth.PendingAuthorizationRepository
	Token    token.Repository
	Identity identity.Provider
}

// NewRepositories creates all repository implementations.
func NewRepositories(db *postgres.DB, redisClient *redis.Client) *Repositories {
	return &Repositories{
		Client:   postgres.NewClientRepository(db),
		AuthCode: postgres.NewAuthorizationCodeRepository(db),
		Pending:  redis.NewPendingAuthorizationRepository(redisClient),
		Token:    postgres.NewTokenRepository(db),
		Identity: redis.NewSessionIdentityProvider(redisClient),
	}
}
