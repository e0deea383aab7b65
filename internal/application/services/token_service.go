package services

import (
	"context"
	"time"

	"github.com/paiecashplay/oauth-core/config"
	"github.com/paiecashplay/oauth-core/internal/application/dto"
	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/internal/domain/token"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/crypto"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

// Token type hints accepted by the revocation endpoint (RFC 7009).
const (
	HintAccessToken  = "access_token"
	HintRefreshToken = "refresh_token"
)

// AccessTokenInfo is what a successful access token validation returns.
type AccessTokenInfo struct {
	UserID    string
	ClientID  string
	Scope     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService mints, validates, refreshes, and revokes opaque tokens.
// Cleartext values exist only in the response at issuance; the store holds
// SHA-256 hashes.
type TokenService struct {
	tokenRepo token.Repository
	tokenGen  *crypto.TokenGenerator
	cfg       *config.OAuthConfig
}

// NewTokenService creates a new token service.
func NewTokenService(tokenRepo token.Repository, tokenGen *crypto.TokenGenerator, cfg *config.OAuthConfig) *TokenService {
	return &TokenService{
		tokenRepo: tokenRepo,
		tokenGen:  tokenGen,
		cfg:       cfg,
	}
}

// Mint issues a new access/refresh token pair for a client and user.
func (s *TokenService) Mint(ctx context.Context, client *oauth.Client, userID, scope string) (*dto.TokenResponse, error) {
	access, refresh, resp, err := s.newPair(client.ClientID, userID, scope)
	if err != nil {
		return nil, err
	}

	if err := s.tokenRepo.StorePair(ctx, access, refresh); err != nil {
		return nil, err
	}

	return resp, nil
}

// ValidateAccess hashes the presented value, looks it up, and rejects
// revoked or expired tokens. Expiry is enforced here on every call, never
// cached.
func (s *TokenService) ValidateAccess(ctx context.Context, tokenValue string) (*AccessTokenInfo, error) {
	hash := s.tokenGen.HashToken(tokenValue)

	t, err := s.tokenRepo.GetAccessByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	if !t.IsValid() {
		return nil, errors.ErrTokenInvalid
	}

	return &AccessTokenInfo{
		UserID:    t.UserID,
		ClientID:  t.ClientID,
		Scope:     t.Scope,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
	}, nil
}

// Refresh redeems a refresh token for a new pair. The presented token is
// revoked and replaced in the same transaction (rotation), so a stolen
// refresh token dies the moment the legitimate client uses it. A token
// bound to a different client is an invalid_grant like every other
// failure here.
func (s *TokenService) Refresh(ctx context.Context, refreshValue, clientID string) (*dto.TokenResponse, error) {
	oldHash := s.tokenGen.HashToken(refreshValue)

	old, err := s.tokenRepo.GetRefreshByHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, errors.ErrTokenInvalid) {
			return nil, errors.ErrInvalidGrant
		}
		return nil, err
	}

	if old.ClientID != clientID {
		return nil, errors.ErrInvalidGrant
	}
	if !old.IsValid() {
		return nil, errors.ErrInvalidGrant
	}

	access, refresh, resp, err := s.newPair(old.ClientID, old.UserID, old.Scope)
	if err != nil {
		return nil, err
	}

	// Rotate re-checks revoked/expired inside the transaction, so two
	// racing refreshes produce exactly one new pair.
	if err := s.tokenRepo.Rotate(ctx, oldHash, access, refresh); err != nil {
		return nil, err
	}

	return resp, nil
}

// Revoke marks the presented token revoked. Without a hint both stores are
// tried. Always succeeds regardless of whether anything matched, per RFC
// 7009, so callers cannot probe token validity.
func (s *TokenService) Revoke(ctx context.Context, tokenValue, hint string) (bool, error) {
	hash := s.tokenGen.HashToken(tokenValue)

	switch hint {
	case HintAccessToken:
		return s.tokenRepo.RevokeAccessByHash(ctx, hash)
	case HintRefreshToken:
		return s.tokenRepo.RevokeRefreshByHash(ctx, hash)
	default:
		revoked, err := s.tokenRepo.RevokeAccessByHash(ctx, hash)
		if err != nil {
			return false, err
		}
		if revoked {
			return true, nil
		}
		return s.tokenRepo.RevokeRefreshByHash(ctx, hash)
	}
}

// newPair generates the two opaque values and the records holding their
// hashes. The cleartext only lives in the returned response.
func (s *TokenService) newPair(clientID, userID, scope string) (*token.AccessToken, *token.RefreshToken, *dto.TokenResponse, error) {
	accessValue, err := s.tokenGen.GenerateAccessToken()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to generate access token")
	}

	refreshValue, err := s.tokenGen.GenerateRefreshToken()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to generate refresh token")
	}

	access := token.NewAccessToken(s.tokenGen.HashToken(accessValue), clientID, userID, scope, s.cfg.AccessTokenTTL)
	refresh := token.NewRefreshToken(s.tokenGen.HashToken(refreshValue), access, s.cfg.RefreshTokenTTL)

	resp := &dto.TokenResponse{
		AccessToken:  accessValue,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		RefreshToken: refreshValue,
		Scope:        scope,
	}

	return access, refresh, resp, nil
}
