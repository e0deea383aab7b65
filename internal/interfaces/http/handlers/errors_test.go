package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiecashplay/oauth-core/pkg/errors"
)

func runTokenError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	handleTokenError(c, err)
	return w
}

func TestHandleTokenError(t *testing.T) {
	t.Run("invalid_client gets 401 with challenge", func(t *testing.T) {
		w := runTokenError(t, errors.ErrInvalidClient)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
		assert.Contains(t, w.Body.String(), "invalid_client")
	})

	t.Run("invalid_grant gets 400, wrapped or not", func(t *testing.T) {
		for _, err := range []error{
			errors.ErrInvalidGrant,
			errors.Wrap(errors.ErrInvalidGrant, "code not redeemable"),
		} {
			w := runTokenError(t, err)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_grant")
		}
	})

	t.Run("store failures are server errors", func(t *testing.T) {
		w := runTokenError(t, errors.Wrap(errors.ErrStoreUnavailable, "connection refused"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "server_error")
	})
}

func TestErrorPageRedirect(t *testing.T) {
	const errorURL = "https://auth.example.com/error"

	t.Run("oauth error carries code, description and state", func(t *testing.T) {
		err := errors.NewOAuthError("invalid_scope", "requested scope not allowed").WithState("xyz")

		u, parseErr := url.Parse(errorPageRedirect(errorURL, err))
		require.NoError(t, parseErr)
		assert.Equal(t, "/error", u.Path)
		assert.Equal(t, "invalid_scope", u.Query().Get("error"))
		assert.Equal(t, "requested scope not allowed", u.Query().Get("description"))
		assert.Equal(t, "xyz", u.Query().Get("state"))
	})

	t.Run("expired pending authorization maps to invalid_request", func(t *testing.T) {
		u, parseErr := url.Parse(errorPageRedirect(errorURL, errors.ErrPendingNotFound))
		require.NoError(t, parseErr)
		assert.Equal(t, "invalid_request", u.Query().Get("error"))
	})

	t.Run("unrecognized errors collapse to server_error", func(t *testing.T) {
		u, parseErr := url.Parse(errorPageRedirect(errorURL, errors.Wrap(errors.ErrStoreUnavailable, "redis down")))
		require.NoError(t, parseErr)
		assert.Equal(t, "server_error", u.Query().Get("error"))
		assert.NotEmpty(t, u.Query().Get("description"))
	})
}
