package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paiecashplay/oauth-core/config"
	"github.com/paiecashplay/oauth-core/internal/application/services"
	"github.com/paiecashplay/oauth-core/internal/domain/identity"
	"github.com/paiecashplay/oauth-core/internal/interfaces/http/handlers"
	"github.com/paiecashplay/oauth-core/internal/interfaces/http/middleware"
	"github.com/paiecashplay/oauth-core/pkg/logger"
)

// Router wraps the Gin engine with application dependencies.
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// RouterDeps contains dependencies needed by the router.
type RouterDeps struct {
	Flow          *services.FlowService
	Identity      identity.Provider
	Logger        logger.Logger
	DBHealther    handlers.HealthChecker
	RedisHealther handlers.HealthChecker
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, deps *RouterDeps) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	requestLogger := middleware.NewRequestLoggerMiddleware(deps.Logger)
	engine.Use(requestLogger.Handler())

	oauthHandler := handlers.NewOAuthHandler(deps.Flow, deps.Identity, cfg)
	healthHandler := handlers.NewHealthHandler(deps.DBHealther, deps.RedisHealther)

	var rateLimiter *middleware.RateLimiter
	var tokenRateLimiter *middleware.TokenEndpointRateLimiter
	if cfg.Security.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
		tokenRateLimiter = middleware.NewTokenEndpointRateLimiter()
	}

	// Health endpoints (no rate limiting)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/live", healthHandler.Live)

	if rateLimiter != nil {
		engine.Use(rateLimiter.Middleware())
	}

	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	// Browser-facing authorization endpoints
	engine.GET("/authorize", oauthHandler.Authorize)
	engine.GET("/authorize/resume", oauthHandler.AuthorizeResume)

	// Grant endpoints with stricter rate limiting
	grants := engine.Group("")
	if tokenRateLimiter != nil {
		grants.Use(tokenRateLimiter.Middleware())
	}
	{
		grants.POST("/token", oauthHandler.Token)
		grants.POST("/revoke", oauthHandler.Revoke)
		grants.POST("/introspect", oauthHandler.Introspect)
	}

	return &Router{
		engine: engine,
		cfg:    cfg,
	}
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// corsMiddleware creates a CORS middleware.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Server wraps the HTTP server configuration.
type Server struct {
	router *Router
	cfg    *config.Config
}

// NewServer creates an HTTP server with the router.
func NewServer(cfg *config.Config, router *Router) *Server {
	return &Server{
		router: router,
		cfg:    cfg,
	}
}

// ListenAddr returns the server listen address.
func (s *Server) ListenAddr() string {
	return s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
}

// ReadTimeout returns the server read timeout.
func (s *Server) ReadTimeout() time.Duration {
	return s.cfg.Server.ReadTimeout
}

// WriteTimeout returns the server write timeout.
func (s *Server) WriteTimeout() time.Duration {
	return s.cfg.Server.WriteTimeout
}

// IdleTimeout returns the server idle timeout.
func (s *Server) IdleTimeout() time.Duration {
	return s.cfg.Server.IdleTimeout
}

// Handler returns the HTTP handler.
func (s *Server) Handler() *gin.Engine {
	return s.router.Engine()
}
