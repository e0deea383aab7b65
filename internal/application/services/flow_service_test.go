package services_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiecashplay/oauth-core/internal/application/dto"
	"github.com/paiecashplay/oauth-core/internal/application/services"
	"github.com/paiecashplay/oauth-core/internal/audit"
	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/crypto"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/persistence/memory"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

type flowFixture struct {
	flow     *services.FlowService
	clients  *memory.ClientRepository
	codes    *memory.AuthorizationCodeRepository
	pending  *memory.PendingAuthorizationRepository
	tokens   *memory.TokenRepository
	hasher   *crypto.Argon2Hasher
	tokenGen *crypto.TokenGenerator
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	clients := memory.NewClientRepository()
	codes := memory.NewAuthorizationCodeRepository()
	pending := memory.NewPendingAuthorizationRepository()
	tokens := memory.NewTokenRepository()
	hasher := newTestHasher()
	tokenGen := crypto.NewTokenGenerator()
	cfg := testOAuthConfig()

	registry := services.NewClientRegistry(clients, hasher)
	scopes := services.NewScopeValidator(cfg.Scopes, cfg.DefaultScope)
	tokenSvc := services.NewTokenService(tokens, tokenGen, cfg)

	flow := services.NewFlowService(registry, scopes, codes, pending, tokenSvc, tokenGen, audit.NopSink{}, cfg)

	return &flowFixture{
		flow:     flow,
		clients:  clients,
		codes:    codes,
		pending:  pending,
		tokens:   tokens,
		hasher:   hasher,
		tokenGen: tokenGen,
	}
}

// issueCode runs a full authorize round and returns the code from the
// redirect URL.
func (f *flowFixture) issueCode(t *testing.T, req *dto.AuthorizeRequest, userID string) (code, state string) {
	t.Helper()
	ctx := context.Background()

	result, err := f.flow.BeginAuthorization(ctx, req)
	require.NoError(t, err)

	redirectURL, err := f.flow.CompleteAuthorization(ctx, result.PendingID, userID)
	require.NoError(t, err)

	u, err := url.Parse(redirectURL)
	require.NoError(t, err)
	return u.Query().Get("code"), u.Query().Get("state")
}

func authorizeReq() *dto.AuthorizeRequest {
	return &dto.AuthorizeRequest{
		ResponseType: "code",
		ClientID:     "web-app",
		RedirectURI:  "https://app.example.com/callback",
		Scope:        "openid profile",
		State:        "xyz123",
	}
}

func TestBeginAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)
	seedClient(t, f.clients, f.hasher, "web-app", "s3cret", false)

	t.Run("valid request creates a pending authorization", func(t *testing.T) {
		result, err := f.flow.BeginAuthorization(ctx, authorizeReq())
		require.NoError(t, err)
		assert.Equal(t, "web-app", result.Client.ClientID)
		assert.Equal(t, "openid profile", result.Scope)
		assert.Equal(t, "xyz123", result.State)
	})

	t.Run("unsupported response_type", func(t *testing.T) {
		req := authorizeReq()
		req.ResponseType = "token"

		_, err := f.flow.BeginAuthorization(ctx, req)
		var oauthErr *errors.OAuthError
		require.ErrorAs(t, err, &oauthErr)
		assert.Equal(t, "unsupported_response_type", oauthErr.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		req := authorizeReq()
		req.ClientID = "nobody"

		_, err := f.flow.BeginAuthorization(ctx, req)
		var oauthErr *errors.OAuthError
		require.ErrorAs(t, err, &oauthErr)
		assert.Equal(t, "invalid_client", oauthErr.Code)
	})

	t.Run("unregistered redirect_uri", func(t *testing.T) {
		req := authorizeReq()
		req.RedirectURI = "https://evil.example.com/cb"

		_, err := f.flow.BeginAuthorization(ctx, req)
		var oauthErr *errors.OAuthError
		require.ErrorAs(t, err, &oauthErr)
		assert.Equal(t, "invalid_request", oauthErr.Code)
	})

	t.Run("disallowed scope carries state back", func(t *testing.T) {
		req := authorizeReq()
		req.Scope = "openid admin"

		_, err := f.flow.BeginAuthorization(ctx, req)
		var oauthErr *errors.OAuthError
		require.ErrorAs(t, err, &oauthErr)
		assert.Equal(t, "invalid_scope", oauthErr.Code)
		assert.Equal(t, "xyz123", oauthErr.State)
	})

	t.Run("bad code_challenge_method", func(t *testing.T) {
		req := authorizeReq()
		req.CodeChallenge = "abc"
		req.CodeChallengeMethod = "md5"

		_, err := f.flow.BeginAuthorization(ctx, req)
		var oauthErr *errors.OAuthError
		require.ErrorAs(t, err, &oauthErr)
		assert.Equal(t, "invalid_request", oauthErr.Code)
	})
}

func TestCompleteAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)
	seedClient(t, f.clients, f.hasher, "web-app", "s3cret", false)

	t.Run("redirect carries code and state", func(t *testing.T) {
		code, state := f.issueCode(t, authorizeReq(), "user-42")
		assert.NotEmpty(t, code)
		assert.Equal(t, "xyz123", state)
	})

	t.Run("pending authorization is single-use", func(t *testing.T) {
		result, err := f.flow.BeginAuthorization(ctx, authorizeReq())
		require.NoError(t, err)

		_, err = f.flow.CompleteAuthorization(ctx, result.PendingID, "user-42")
		require.NoError(t, err)

		_, err = f.flow.CompleteAuthorization(ctx, result.PendingID, "user-42")
		assert.ErrorIs(t, err, errors.ErrPendingNotFound)
	})

	t.Run("code is stored hashed", func(t *testing.T) {
		code, _ := f.issueCode(t, authorizeReq(), "user-42")

		// cleartext is not a valid lookup key
		_, err := f.codes.Consume(ctx, code)
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)

		consumed, err := f.codes.Consume(ctx, f.tokenGen.HashToken(code))
		require.NoError(t, err)
		assert.Equal(t, "user-42", consumed.UserID)
	})
}

func TestExchange(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)
	seedClient(t, f.clients, f.hasher, "web-app", "s3cret", false)

	tokenReq := func(code string) *dto.TokenRequest {
		return &dto.TokenRequest{
			GrantType:    "authorization_code",
			Code:         code,
			RedirectURI:  "https://app.example.com/callback",
			ClientID:     "web-app",
			ClientSecret: "s3cret",
		}
	}

	t.Run("code exchanges once then dies", func(t *testing.T) {
		code, _ := f.issueCode(t, authorizeReq(), "user-42")

		resp, err := f.flow.Exchange(ctx, tokenReq(code))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
		assert.Equal(t, "openid profile", resp.Scope)

		_, err = f.flow.Exchange(ctx, tokenReq(code))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("concurrent redemptions yield exactly one success", func(t *testing.T) {
		code, _ := f.issueCode(t, authorizeReq(), "user-42")

		const n = 32
		var wg sync.WaitGroup
		results := make(chan error, n)

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.flow.Exchange(ctx, tokenReq(code))
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes, invalidGrants int
		for err := range results {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, errors.ErrInvalidGrant):
				invalidGrants++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, invalidGrants)
	})

	t.Run("redirect_uri mismatch is invalid_grant", func(t *testing.T) {
		code, _ := f.issueCode(t, authorizeReq(), "user-42")

		req := tokenReq(code)
		req.RedirectURI = "https://app.example.com/other"
		_, err := f.flow.Exchange(ctx, req)
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)

		// The mismatch burned the code
		_, err = f.flow.Exchange(ctx, tokenReq(code))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("code bound to another client is invalid_grant", func(t *testing.T) {
		seedClient(t, f.clients, f.hasher, "other-app", "0ther", false)
		code, _ := f.issueCode(t, authorizeReq(), "user-42")

		req := tokenReq(code)
		req.ClientID = "other-app"
		req.ClientSecret = "0ther"
		_, err := f.flow.Exchange(ctx, req)
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("bad client secret is invalid_client", func(t *testing.T) {
		code, _ := f.issueCode(t, authorizeReq(), "user-42")

		req := tokenReq(code)
		req.ClientSecret = "wrong"
		_, err := f.flow.Exchange(ctx, req)
		assert.ErrorIs(t, err, errors.ErrInvalidClient)

		// Client auth failed before the consume, so the code survives
		_, err = f.flow.Exchange(ctx, tokenReq(code))
		assert.NoError(t, err)
	})

	t.Run("expired code is invalid_grant", func(t *testing.T) {
		value, err := f.tokenGen.GenerateAuthorizationCode()
		require.NoError(t, err)

		expired := oauth.NewAuthorizationCode(
			f.tokenGen.HashToken(value), "web-app", "user-42",
			"https://app.example.com/callback", "openid profile", "", "",
			-time.Minute,
		)
		require.NoError(t, f.codes.Create(ctx, expired))

		_, err = f.flow.Exchange(ctx, tokenReq(value))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("unknown code is invalid_grant", func(t *testing.T) {
		_, err := f.flow.Exchange(ctx, tokenReq("never-issued"))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})
}

func TestExchangePKCE(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)
	seedClient(t, f.clients, f.hasher, "web-app", "s3cret", false)

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	issuePKCECode := func(t *testing.T, method, challenge string) string {
		req := authorizeReq()
		req.CodeChallenge = challenge
		req.CodeChallengeMethod = method
		code, _ := f.issueCode(t, req, "user-42")
		return code
	}

	tokenReq := func(code, codeVerifier string) *dto.TokenRequest {
		return &dto.TokenRequest{
			GrantType:    "authorization_code",
			Code:         code,
			RedirectURI:  "https://app.example.com/callback",
			ClientID:     "web-app",
			ClientSecret: "s3cret",
			CodeVerifier: codeVerifier,
		}
	}

	t.Run("S256 verifier accepted", func(t *testing.T) {
		code := issuePKCECode(t, "S256", f.tokenGen.PKCECodeChallenge(verifier))
		_, err := f.flow.Exchange(ctx, tokenReq(code, verifier))
		assert.NoError(t, err)
	})

	t.Run("wrong verifier is invalid_grant", func(t *testing.T) {
		code := issuePKCECode(t, "S256", f.tokenGen.PKCECodeChallenge(verifier))
		_, err := f.flow.Exchange(ctx, tokenReq(code, "wrong-verifier"))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("missing verifier for challenged code is invalid_grant", func(t *testing.T) {
		code := issuePKCECode(t, "S256", f.tokenGen.PKCECodeChallenge(verifier))
		_, err := f.flow.Exchange(ctx, tokenReq(code, ""))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("plain method compares directly", func(t *testing.T) {
		code := issuePKCECode(t, "plain", verifier)
		_, err := f.flow.Exchange(ctx, tokenReq(code, verifier))
		assert.NoError(t, err)
	})

	t.Run("no challenge means no verification", func(t *testing.T) {
		code, _ := f.issueCode(t, authorizeReq(), "user-42")
		_, err := f.flow.Exchange(ctx, tokenReq(code, ""))
		assert.NoError(t, err)
	})
}

func TestRefreshGrant(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)
	seedClient(t, f.clients, f.hasher, "web-app", "s3cret", false)

	exchange := func(t *testing.T) *dto.TokenResponse {
		code, _ := f.issueCode(t, authorizeReq(), "user-42")
		resp, err := f.flow.Exchange(ctx, &dto.TokenRequest{
			GrantType:    "authorization_code",
			Code:         code,
			RedirectURI:  "https://app.example.com/callback",
			ClientID:     "web-app",
			ClientSecret: "s3cret",
		})
		require.NoError(t, err)
		return resp
	}

	refreshReq := func(refreshToken string) *dto.TokenRequest {
		return &dto.TokenRequest{
			GrantType:    "refresh_token",
			RefreshToken: refreshToken,
			ClientID:     "web-app",
			ClientSecret: "s3cret",
		}
	}

	t.Run("refresh rotates the pair", func(t *testing.T) {
		first := exchange(t)

		second, err := f.flow.RefreshGrant(ctx, refreshReq(first.RefreshToken))
		require.NoError(t, err)
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

		// Old refresh token died with the rotation
		_, err = f.flow.RefreshGrant(ctx, refreshReq(first.RefreshToken))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("revoked refresh token mints nothing", func(t *testing.T) {
		pair := exchange(t)

		require.NoError(t, f.flow.Revoke(ctx, &dto.RevokeTokenRequest{
			Token:         pair.RefreshToken,
			TokenTypeHint: "refresh_token",
			ClientID:      "web-app",
			ClientSecret:  "s3cret",
		}))

		_, err := f.flow.RefreshGrant(ctx, refreshReq(pair.RefreshToken))
		assert.ErrorIs(t, err, errors.ErrInvalidGrant)
	})

	t.Run("bad client credentials", func(t *testing.T) {
		pair := exchange(t)

		req := refreshReq(pair.RefreshToken)
		req.ClientSecret = "wrong"
		_, err := f.flow.RefreshGrant(ctx, req)
		assert.ErrorIs(t, err, errors.ErrInvalidClient)
	})
}

func TestRevokeAndIntrospect(t *testing.T) {
	ctx := context.Background()
	f := newFlowFixture(t)
	seedClient(t, f.clients, f.hasher, "web-app", "s3cret", false)

	code, _ := f.issueCode(t, authorizeReq(), "user-42")
	pair, err := f.flow.Exchange(ctx, &dto.TokenRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  "https://app.example.com/callback",
		ClientID:     "web-app",
		ClientSecret: "s3cret",
	})
	require.NoError(t, err)

	introspect := func(token string) *dto.IntrospectResponse {
		resp, err := f.flow.Introspect(ctx, &dto.IntrospectRequest{
			Token:        token,
			ClientID:     "web-app",
			ClientSecret: "s3cret",
		})
		require.NoError(t, err)
		return resp
	}

	t.Run("live token introspects active", func(t *testing.T) {
		resp := introspect(pair.AccessToken)
		assert.True(t, resp.Active)
		assert.Equal(t, "user-42", resp.UserID)
		assert.Equal(t, "web-app", resp.ClientID)
		assert.True(t, strings.Contains(resp.Scope, "openid"))
	})

	t.Run("revoke then introspect inactive", func(t *testing.T) {
		revokeReq := &dto.RevokeTokenRequest{
			Token:        pair.AccessToken,
			ClientID:     "web-app",
			ClientSecret: "s3cret",
		}
		require.NoError(t, f.flow.Revoke(ctx, revokeReq))

		// Idempotent: the second call also succeeds
		require.NoError(t, f.flow.Revoke(ctx, revokeReq))

		assert.False(t, introspect(pair.AccessToken).Active)
	})

	t.Run("unknown token introspects inactive", func(t *testing.T) {
		assert.False(t, introspect("never-issued").Active)
	})

	t.Run("revoke with bad client auth fails", func(t *testing.T) {
		err := f.flow.Revoke(ctx, &dto.RevokeTokenRequest{
			Token:        pair.AccessToken,
			ClientID:     "web-app",
			ClientSecret: "wrong",
		})
		assert.ErrorIs(t, err, errors.ErrInvalidClient)
	})
}
