package application

import (
	"github.com/paiecashplay/oauth-core/config"
	"github.com/paiecashplay/oauth-core/internal/application/services"
	"github.com/paiecashplay/oauth-core/internal/audit"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/crypto"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/persistence"
)

// Services holds all application services.
type Services struct {
	Registry *services.ClientRegistry
	Scopes   *services.ScopeValidator
	Tokens   *services.TokenService
	Flow     *services.FlowService
}

// Dependencies holds shared dependencies for services.
type Dependencies struct {
	Hasher   *crypto.Argon2Hasher
	TokenGen *crypto.TokenGenerator
	Sink     audit.Sink
}

// NewDependencies creates shared dependencies from config.
func NewDependencies(cfg *config.Config, sink audit.Sink) *Dependencies {
	return &Dependencies{
		Hasher: crypto.NewArgon2Hasher(
			cfg.Security.Argon2Memory,
			cfg.Security.Argon2Iterations,
			cfg.Security.Argon2Parallelism,
			cfg.Security.Argon2SaltLength,
			cfg.Security.Argon2KeyLength,
		),
		TokenGen: crypto.NewTokenGenerator(),
		Sink:     sink,
	}
}

// NewServices creates all application services.
func NewServices(repos *persistence.Repositories, deps *Dependencies, cfg *config.Config) *Services {
	registry := services.NewClientRegistry(repos.Client, deps.Hasher)
	scopes := services.NewScopeValidator(cfg.OAuth.Scopes, cfg.OAuth.DefaultScope)
	tokens := services.NewTokenService(repos.Token, deps.TokenGen, &cfg.OAuth)

	flow := services.NewFlowService(
		registry,
		scopes,
		repos.AuthCode,
		repos.Pending,
		tokens,
		deps.TokenGen,
		deps.Sink,
		&cfg.OAuth,
	)

	return &Services{
		Registry: registry,
		Scopes:   scopes,
		Tokens:   tokens,
		Flow:     flow,
	}
}
