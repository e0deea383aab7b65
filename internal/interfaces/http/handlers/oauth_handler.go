package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paiecashplay/oauth-core/config"
	"github.com/paiecashplay/oauth-core/internal/application/dto"
	"github.com/paiecashplay/oauth-core/internal/application/services"
	"github.com/paiecashplay/oauth-core/internal/domain/identity"
	"github.com/paiecashplay/oauth-core/pkg/errors"
)

// OAuthHandler handles the OAuth 2.0 endpoints.
type OAuthHandler struct {
	flow     *services.FlowService
	identity identity.Provider
	cfg      *config.Config
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(flow *services.FlowService, idp identity.Provider, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{
		flow:     flow,
		identity: idp,
		cfg:      cfg,
	}
}

// Authorize handles the authorization endpoint.
// GET /authorize
//
// Validation failures never produce JSON for the browser: the user agent
// is redirected to the platform error page, carrying the OAuth error code.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	var req dto.AuthorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		oauthErr := errors.NewOAuthError("invalid_request", "missing required parameters")
		c.Redirect(http.StatusFound, errorPageRedirect(h.cfg.OAuth.ErrorURL, oauthErr))
		return
	}

	result, err := h.flow.BeginAuthorization(c.Request.Context(), &req)
	if err != nil {
		c.Redirect(http.StatusFound, errorPageRedirect(h.cfg.OAuth.ErrorURL, err))
		return
	}

	// An authenticated resource owner gets the code immediately. Everyone
	// else is sent to login and comes back through /authorize/resume. Only
	// a missing or unknown session means unauthenticated; a session store
	// failure is a server error, not a login prompt.
	userID, err := h.resolveUser(c)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			c.Redirect(http.StatusFound, h.loginRedirect(result.PendingID))
			return
		}
		c.Redirect(http.StatusFound, errorPageRedirect(h.cfg.OAuth.ErrorURL, err))
		return
	}

	redirectURL, err := h.flow.CompleteAuthorization(c.Request.Context(), result.PendingID, userID)
	if err != nil {
		c.Redirect(http.StatusFound, errorPageRedirect(h.cfg.OAuth.ErrorURL, err))
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// AuthorizeResume continues an authorization after the resource owner has
// logged in.
// GET /authorize/resume
func (h *OAuthHandler) AuthorizeResume(c *gin.Context) {
	pendingID, err := uuid.Parse(c.Query("pending_id"))
	if err != nil {
		oauthErr := errors.NewOAuthError("invalid_request", "missing or malformed pending_id")
		c.Redirect(http.StatusFound, errorPageRedirect(h.cfg.OAuth.ErrorURL, oauthErr))
		return
	}

	userID, err := h.resolveUser(c)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			c.Redirect(http.StatusFound, h.loginRedirect(pendingID))
			return
		}
		c.Redirect(http.StatusFound, errorPageRedirect(h.cfg.OAuth.ErrorURL, err))
		return
	}

	redirectURL, err := h.flow.CompleteAuthorization(c.Request.Context(), pendingID, userID)
	if err != nil {
		c.Redirect(http.StatusFound, errorPageRedirect(h.cfg.OAuth.ErrorURL, err))
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// Token handles the token endpoint.
// POST /token
func (h *OAuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "grant_type is required",
		})
		return
	}
	h.applyBasicAuth(c, &req.ClientID, &req.ClientSecret)

	switch req.GrantType {
	case "authorization_code":
		h.handleAuthorizationCodeGrant(c, &req)
	case "refresh_token":
		h.handleRefreshTokenGrant(c, &req)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_grant_type",
			"error_description": "grant_type must be authorization_code or refresh_token",
		})
	}
}

// handleAuthorizationCodeGrant handles the authorization code exchange.
func (h *OAuthHandler) handleAuthorizationCodeGrant(c *gin.Context, req *dto.TokenRequest) {
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "code is required",
		})
		return
	}

	if req.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "redirect_uri is required",
		})
		return
	}

	resp, err := h.flow.Exchange(c.Request.Context(), req)
	if err != nil {
		handleTokenError(c, err)
		return
	}

	noStore(c)
	c.JSON(http.StatusOK, resp)
}

// handleRefreshTokenGrant handles token refresh with rotation.
func (h *OAuthHandler) handleRefreshTokenGrant(c *gin.Context, req *dto.TokenRequest) {
	if req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "refresh_token is required",
		})
		return
	}

	resp, err := h.flow.RefreshGrant(c.Request.Context(), req)
	if err != nil {
		handleTokenError(c, err)
		return
	}

	noStore(c)
	c.JSON(http.StatusOK, resp)
}

// Revoke handles token revocation.
// POST /revoke
//
// Per RFC 7009 the endpoint answers 200 for unknown, expired, and
// already-revoked tokens alike. Only a failed client authentication is an
// error.
func (h *OAuthHandler) Revoke(c *gin.Context) {
	var req dto.RevokeTokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token is required",
		})
		return
	}
	h.applyBasicAuth(c, &req.ClientID, &req.ClientSecret)

	if err := h.flow.Revoke(c.Request.Context(), &req); err != nil {
		if errors.Is(err, errors.ErrInvalidClient) {
			c.Header("WWW-Authenticate", `Basic realm="oauth"`)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "invalid_client",
				"error_description": "client authentication failed",
			})
			return
		}
		// Store failures included: revocation must not leak token state
		c.Status(http.StatusOK)
		return
	}

	c.Status(http.StatusOK)
}

// Introspect handles token introspection.
// POST /introspect
func (h *OAuthHandler) Introspect(c *gin.Context) {
	var req dto.IntrospectRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token is required",
		})
		return
	}
	h.applyBasicAuth(c, &req.ClientID, &req.ClientSecret)

	resp, err := h.flow.Introspect(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidClient) {
			c.Header("WWW-Authenticate", `Basic realm="oauth"`)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "invalid_client",
				"error_description": "client authentication failed",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "internal server error",
		})
		return
	}

	noStore(c)
	c.JSON(http.StatusOK, resp)
}

// resolveUser maps the browser session cookie to a user ID.
func (h *OAuthHandler) resolveUser(c *gin.Context) (string, error) {
	sessionToken, err := c.Cookie(h.cfg.Security.SessionCookie)
	if err != nil || sessionToken == "" {
		return "", identity.ErrUnauthenticated
	}
	return h.identity.ResolveUserID(c.Request.Context(), sessionToken)
}

// loginRedirect sends the browser to the platform login page with the
// pending authorization as the continuation.
func (h *OAuthHandler) loginRedirect(pendingID uuid.UUID) string {
	u, err := url.Parse(h.cfg.OAuth.LoginURL)
	if err != nil {
		return h.cfg.OAuth.LoginURL
	}
	q := u.Query()
	q.Set("pending_id", pendingID.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// applyBasicAuth fills client credentials from the Authorization header
// when the form did not carry them.
func (h *OAuthHandler) applyBasicAuth(c *gin.Context, clientID, clientSecret *string) {
	if *clientID != "" {
		return
	}
	if id, secret, ok := c.Request.BasicAuth(); ok {
		*clientID = id
		*clientSecret = secret
	}
}

// noStore marks a token-bearing response as uncacheable (RFC 6749 §5.1).
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
