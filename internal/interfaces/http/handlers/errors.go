package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/paiecashplay/oauth-core/pkg/errors"
)

// handleTokenError converts grant errors to OAuth token endpoint
// responses. The services already collapse every way a grant can fail to
// the single invalid_grant, so only three outcomes exist here: 401 for a
// failed client authentication, 400 invalid_grant, and 500 for everything
// else (store failures and the like).
func handleTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidClient):
		c.Header("WWW-Authenticate", `Basic realm="oauth"`)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_client",
			"error_description": "client authentication failed",
		})
	case errors.Is(err, errors.ErrInvalidGrant):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_grant",
			"error_description": "invalid or expired grant",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "internal server error",
		})
	}
}

// errorPageRedirect builds the browser-facing error page URL for failed
// authorize requests. The user agent is never redirected back to an
// unvalidated client URI.
func errorPageRedirect(errorURL string, err error) string {
	code := "server_error"
	description := "internal server error"
	state := ""

	if oauthErr, ok := err.(*errors.OAuthError); ok {
		code = oauthErr.Code
		description = oauthErr.Description
		state = oauthErr.State
	} else if errors.Is(err, errors.ErrPendingNotFound) {
		code = "invalid_request"
		description = "authorization request expired or already completed"
	}

	u, parseErr := url.Parse(errorURL)
	if parseErr != nil {
		return errorURL
	}
	q := u.Query()
	q.Set("error", code)
	if description != "" {
		q.Set("description", description)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
