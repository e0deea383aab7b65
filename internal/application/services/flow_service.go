package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/paiecashplay/oauth-core/config"
	"github.com/paiecashplay/oauth-core/internal/application/dto"
	"github.com/paiecashplay/oauth-core/internal/audit"
	"github.com/paiecashplay/oauth-core/internal/domain/oauth"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/crypto"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

// AuthorizeResult is the outcome of authorize request validation. The
// pending authorization is the single continuation point for code
// issuance, whether or not the resource owner is already logged in.
type AuthorizeResult struct {
	Client      *oauth.Client
	PendingID   uuid.UUID
	RedirectURI string
	State       string
	Scope       string
}

// FlowService orchestrates the authorization flow: client and scope
// validation, pending-authorization hand-off, code issuance and
// redemption, token refresh, and revocation.
type FlowService struct {
	registry    *ClientRegistry
	scopes      *ScopeValidator
	codeRepo    oauth.AuthorizationCodeRepository
	pendingRepo oauth.PendingAuthorizationRepository
	tokens      *TokenService
	tokenGen    *crypto.TokenGenerator
	sink        audit.Sink
	cfg         *config.OAuthConfig
}

// NewFlowService creates a new authorization flow service.
func NewFlowService(
	registry *ClientRegistry,
	scopes *ScopeValidator,
	codeRepo oauth.AuthorizationCodeRepository,
	pendingRepo oauth.PendingAuthorizationRepository,
	tokens *TokenService,
	tokenGen *crypto.TokenGenerator,
	sink audit.Sink,
	cfg *config.OAuthConfig,
) *FlowService {
	return &FlowService{
		registry:    registry,
		scopes:      scopes,
		codeRepo:    codeRepo,
		pendingRepo: pendingRepo,
		tokens:      tokens,
		tokenGen:    tokenGen,
		sink:        sink,
		cfg:         cfg,
	}
}

// BeginAuthorization validates an authorize request and records a pending
// authorization. One is created on every call, even for already
// authenticated users, so code issuance always runs through the same
// continuation.
func (s *FlowService) BeginAuthorization(ctx context.Context, req *dto.AuthorizeRequest) (*AuthorizeResult, error) {
	if req.ResponseType != "code" {
		return nil, errors.NewOAuthError("unsupported_response_type", "only 'code' is supported")
	}

	client, err := s.registry.Resolve(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, errors.ErrClientNotFound) {
			s.sink.Emit(audit.Event{Type: audit.EventInvalidClient, ClientID: req.ClientID, Description: "unknown client"})
			return nil, errors.NewOAuthError("invalid_client", "client not found")
		}
		return nil, err
	}
	if !client.Active {
		s.sink.Emit(audit.Event{Type: audit.EventInvalidClient, ClientID: req.ClientID, Description: "client deactivated"})
		return nil, errors.NewOAuthError("invalid_client", "client is not active")
	}

	// SECURITY: never redirect to an unregistered URI
	if !s.registry.ValidateRedirectURI(client, req.RedirectURI) {
		return nil, errors.NewOAuthError("invalid_request", "invalid redirect_uri")
	}

	// PKCE is optional, but a challenge without a supported method is a
	// malformed request.
	if req.CodeChallenge != "" {
		if req.CodeChallengeMethod != "S256" && req.CodeChallengeMethod != "plain" {
			return nil, errors.NewOAuthError("invalid_request", "unsupported code_challenge_method").WithState(req.State)
		}
	}

	granted, err := s.scopes.Validate(client, req.Scope)
	if err != nil {
		s.sink.Emit(audit.Event{Type: audit.EventInvalidScope, ClientID: req.ClientID, Scope: req.Scope})
		return nil, errors.NewOAuthError("invalid_scope", "requested scope not allowed").WithState(req.State)
	}
	scope := strings.Join(granted, " ")

	pending := oauth.NewPendingAuthorization(
		client.ClientID,
		req.RedirectURI,
		scope,
		req.State,
		req.CodeChallenge,
		req.CodeChallengeMethod,
		s.cfg.PendingAuthTTL,
	)
	if err := s.pendingRepo.Store(ctx, pending); err != nil {
		return nil, err
	}

	return &AuthorizeResult{
		Client:      client,
		PendingID:   pending.ID,
		RedirectURI: req.RedirectURI,
		State:       req.State,
		Scope:       scope,
	}, nil
}

// CompleteAuthorization consumes the pending authorization and issues a
// single-use code for the now-authenticated resource owner. Returns the
// redirect URL carrying the code.
func (s *FlowService) CompleteAuthorization(ctx context.Context, pendingID uuid.UUID, userID string) (string, error) {
	pending, err := s.pendingRepo.Consume(ctx, pendingID)
	if err != nil {
		return "", err
	}

	code, err := s.tokenGen.GenerateAuthorizationCode()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate authorization code")
	}

	authCode := oauth.NewAuthorizationCode(
		s.tokenGen.HashToken(code),
		pending.ClientID,
		userID,
		pending.RedirectURI,
		pending.Scope,
		pending.CodeChallenge,
		pending.CodeChallengeMethod,
		s.cfg.AuthCodeTTL,
	)

	if err := s.codeRepo.Create(ctx, authCode); err != nil {
		return "", err
	}

	s.sink.Emit(audit.Event{
		Type:       audit.EventCodeIssued,
		ClientID:   pending.ClientID,
		UserID:     userID,
		Scope:      pending.Scope,
		CredPrefix: audit.Prefix(code),
	})

	return buildRedirect(pending.RedirectURI, code, pending.State), nil
}

// Exchange redeems an authorization code for tokens. The code is consumed
// atomically first; binding checks (client, redirect URI, PKCE) run after,
// so a failed attempt burns the code. All grant failures surface as the
// single invalid_grant.
func (s *FlowService) Exchange(ctx context.Context, req *dto.TokenRequest) (*dto.TokenResponse, error) {
	client, err := s.registry.Validate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidClient) {
			s.sink.Emit(audit.Event{Type: audit.EventInvalidClient, ClientID: req.ClientID, GrantType: req.GrantType})
		}
		return nil, err
	}

	consumed, err := s.codeRepo.Consume(ctx, s.tokenGen.HashToken(req.Code))
	if err != nil {
		if errors.Is(err, errors.ErrInvalidGrant) {
			s.auditInvalidGrant(client.ClientID, req.GrantType, req.Code, "code not redeemable")
		}
		return nil, err
	}

	if consumed.ClientID != client.ClientID {
		s.auditInvalidGrant(client.ClientID, req.GrantType, req.Code, "client mismatch")
		return nil, errors.ErrInvalidGrant
	}
	if consumed.RedirectURI != req.RedirectURI {
		s.auditInvalidGrant(client.ClientID, req.GrantType, req.Code, "redirect_uri mismatch")
		return nil, errors.ErrInvalidGrant
	}

	// PKCE: verified whenever the code was created with a challenge.
	if consumed.CodeChallenge != "" {
		if !s.tokenGen.VerifyPKCE(req.CodeVerifier, consumed.CodeChallenge, consumed.CodeChallengeMethod) {
			s.auditInvalidGrant(client.ClientID, req.GrantType, req.Code, "code_verifier mismatch")
			return nil, errors.ErrInvalidGrant
		}
	}

	resp, err := s.tokens.Mint(ctx, client, consumed.UserID, consumed.Scope)
	if err != nil {
		return nil, err
	}

	s.sink.Emit(audit.Event{
		Type:      audit.EventTokensIssued,
		ClientID:  client.ClientID,
		UserID:    consumed.UserID,
		Scope:     consumed.Scope,
		GrantType: req.GrantType,
	})

	return resp, nil
}

// RefreshGrant redeems a refresh token for a rotated pair.
func (s *FlowService) RefreshGrant(ctx context.Context, req *dto.TokenRequest) (*dto.TokenResponse, error) {
	client, err := s.registry.Validate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidClient) {
			s.sink.Emit(audit.Event{Type: audit.EventInvalidClient, ClientID: req.ClientID, GrantType: req.GrantType})
		}
		return nil, err
	}

	resp, err := s.tokens.Refresh(ctx, req.RefreshToken, client.ClientID)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidGrant) {
			s.auditInvalidGrant(client.ClientID, req.GrantType, req.RefreshToken, "refresh token not redeemable")
		}
		return nil, err
	}

	s.sink.Emit(audit.Event{
		Type:      audit.EventTokensRefreshed,
		ClientID:  client.ClientID,
		Scope:     resp.Scope,
		GrantType: req.GrantType,
	})

	return resp, nil
}

// Revoke authenticates the client and revokes the presented token. Any
// outcome other than a client authentication failure is success.
func (s *FlowService) Revoke(ctx context.Context, req *dto.RevokeTokenRequest) error {
	client, err := s.registry.Validate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidClient) {
			s.sink.Emit(audit.Event{Type: audit.EventInvalidClient, ClientID: req.ClientID})
		}
		return err
	}

	revoked, err := s.tokens.Revoke(ctx, req.Token, req.TokenTypeHint)
	if err != nil {
		return err
	}

	if revoked {
		s.sink.Emit(audit.Event{
			Type:       audit.EventTokenRevoked,
			ClientID:   client.ClientID,
			CredPrefix: audit.Prefix(req.Token),
		})
	}

	return nil
}

// Introspect authenticates the client and reports on an access token.
// Invalid tokens simply come back inactive.
func (s *FlowService) Introspect(ctx context.Context, req *dto.IntrospectRequest) (*dto.IntrospectResponse, error) {
	if _, err := s.registry.Validate(ctx, req.ClientID, req.ClientSecret); err != nil {
		return nil, err
	}

	info, err := s.tokens.ValidateAccess(ctx, req.Token)
	if err != nil {
		if errors.Is(err, errors.ErrTokenInvalid) {
			return &dto.IntrospectResponse{Active: false}, nil
		}
		return nil, err
	}

	return &dto.IntrospectResponse{
		Active:    true,
		ClientID:  info.ClientID,
		UserID:    info.UserID,
		Scope:     info.Scope,
		TokenType: "Bearer",
		ExpiresAt: info.ExpiresAt.Unix(),
		IssuedAt:  info.IssuedAt.Unix(),
	}, nil
}

func (s *FlowService) auditInvalidGrant(clientID, grantType, cred, description string) {
	s.sink.Emit(audit.Event{
		Type:        audit.EventInvalidGrant,
		ClientID:    clientID,
		GrantType:   grantType,
		CredPrefix:  audit.Prefix(cred),
		Description: description,
	})
}

// buildRedirect appends code and state to the registered redirect URI.
func buildRedirect(redirectURI, code, state string) string {
	u, _ := url.Parse(redirectURI)
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
