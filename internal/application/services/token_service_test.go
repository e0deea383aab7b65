package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiecashplay/oauth-core/config"
	"github.com/paiecashplay/oauth-core/internal/application/services"
	"github.com/paiecashplay/oauth-core/internal/domain/token"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/crypto"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/persistence/memory"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

func testOAuthConfig() *config.OAuthConfig {
	return &config.OAuthConfig{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		AuthCodeTTL:     10 * time.Minute,
		PendingAuthTTL:  10 * time.Minute,
		Scopes:          []string{"openid", "profile", "email", "offline_access"},
		DefaultScope:    "openid profile email",
	}
}

func newTokenService() (*services.TokenService, *memory.TokenRepository, *crypto.TokenGenerator) {
	repo := memory.NewTokenRepository()
	gen := crypto.NewTokenGenerator()
	return services.NewTokenService(repo, gen, testOAuthConfig()), repo, gen
}

func TestTokenServiceMintAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, repo, gen := newTokenService()

	repoClients := memory.NewClientRepository()
	hasher := newTestHasher()
	client := seedClient(t, repoClients, hasher, "web-app", "s3cret", false)

	resp, err := svc.Mint(ctx, client, "user-42", "openid profile")
	require.NoError(t, err)

	t.Run("response carries cleartext pair", func(t *testing.T) {
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
		assert.Equal(t, "openid profile", resp.Scope)
	})

	t.Run("store holds hashes, not cleartext", func(t *testing.T) {
		_, err := repo.GetAccessByHash(ctx, resp.AccessToken)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)

		stored, err := repo.GetAccessByHash(ctx, gen.HashToken(resp.AccessToken))
		require.NoError(t, err)
		assert.NotEqual(t, resp.AccessToken, stored.TokenHash)
	})

	t.Run("validate returns token info", func(t *testing.T) {
		info, err := svc.ValidateAccess(ctx, resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-42", info.UserID)
		assert.Equal(t, "web-app", info.ClientID)
		assert.Equal(t, "openid profile", info.Scope)
	})

	t.Run("unknown value rejected", func(t *testing.T) {
		_, err := svc.ValidateAccess(ctx, "never-issued")
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})

	t.Run("expired token rejected on read", func(t *testing.T) {
		access := token.NewAccessToken(gen.HashToken("stale"), "web-app", "user-42", "openid", -time.Minute)
		refresh := token.NewRefreshToken(gen.HashToken("stale-refresh"), access, -time.Minute)
		require.NoError(t, repo.StorePair(ctx, access, refresh))

		_, err := svc.ValidateAccess(ctx, "stale")
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})
}

func TestTokenServiceRefresh(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTokenService()

	repoClients := memory.NewClientRepository()
	hasher := newTestHasher()
	client := seedClient(t, repoClients, hasher, "web-app", "s3cret", false)

	first, err := svc.Mint(ctx, client, "user-42", "openid")
	require.NoError(t, err)

	t.Run("rotation issues a fresh pair", func(t *testing.T) {
		second, err := svc.Refresh(ctx, first.RefreshToken, "web-app")
		require.NoError(t, err)
		assert.NotEqual(t, first.AccessToken, second.AccessToken)
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
		assert.Equal(t, "openid", second.Scope)
	})

	t.Run("rotated-out token is dead", func(t *testing.T) {
		_, err := svc.Refresh(ctx, first.RefreshToken, "web-app")
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("token bound to another client is invalid_grant", func(t *testing.T) {
		pair, err := svc.Mint(ctx, client, "user-42", "openid")
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, pair.RefreshToken, "some-other-app")
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("unknown refresh token is invalid_grant", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "never-issued", "web-app")
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})
}

func TestTokenServiceRevoke(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTokenService()

	repoClients := memory.NewClientRepository()
	hasher := newTestHasher()
	client := seedClient(t, repoClients, hasher, "web-app", "s3cret", false)

	pair, err := svc.Mint(ctx, client, "user-42", "openid")
	require.NoError(t, err)

	t.Run("revoked access token fails validation", func(t *testing.T) {
		revoked, err := svc.Revoke(ctx, pair.AccessToken, services.HintAccessToken)
		require.NoError(t, err)
		assert.True(t, revoked)

		_, err = svc.ValidateAccess(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	})

	t.Run("revocation is idempotent", func(t *testing.T) {
		revoked, err := svc.Revoke(ctx, pair.AccessToken, services.HintAccessToken)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown token revokes quietly", func(t *testing.T) {
		revoked, err := svc.Revoke(ctx, "never-issued", "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("no hint falls through to refresh store", func(t *testing.T) {
		revoked, err := svc.Revoke(ctx, pair.RefreshToken, "")
		require.NoError(t, err)
		assert.True(t, revoked)

		_, err = svc.Refresh(ctx, pair.RefreshToken, "web-app")
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("wrong hint misses the token", func(t *testing.T) {
		fresh, err := svc.Mint(ctx, client, "user-42", "openid")
		require.NoError(t, err)

		revoked, err := svc.Revoke(ctx, fresh.RefreshToken, services.HintAccessToken)
		require.NoError(t, err)
		assert.False(t, revoked)

		// Still redeemable: the hint pointed at the wrong store
		_, err = svc.Refresh(ctx, fresh.RefreshToken, "web-app")
		assert.NoError(t, err)
	})
}
