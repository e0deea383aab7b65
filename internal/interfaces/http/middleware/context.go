package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey is the type used for Gin context keys set by middleware.
type ContextKey string

// GetClientIP extracts the client IP, honoring X-Forwarded-For when present.
func GetClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
