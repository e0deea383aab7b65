package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/paiecashplay/oauth-core/config"
	"github.com/paiecashplay/oauth-core/internal/application"
	"github.com/paiecashplay/oauth-core/internal/audit"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/cache/redis"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/persistence"
	"github.com/paiecashplay/oauth-core/internal/infrastructure/persistence/postgres"
	apphttp "github.com/paiecashplay/oauth-core/internal/interfaces/http"
	"github.com/paiecashplay/oauth-core/pkg/logger"
)

func run() error {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting OAuth authorization service...",
		logger.Component("main"),
	)

	db, redisClient, err := initInfrastructure(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	defer redisClient.Close()

	sink := audit.NewAsyncSink(log, cfg.Logging.AuditBufferSize)
	defer sink.Close()

	repos := persistence.NewRepositories(db, redisClient)
	deps := application.NewDependencies(cfg, sink)
	svcs := application.NewServices(repos, deps, cfg)

	server := newServer(cfg, svcs, repos, db, redisClient, log)
	return startServer(server, cfg, log)
}

func initLogger(cfg *config.Config) (logger.Logger, error) {
	logCfg := logger.Config{
		Level:          cfg.Logging.Level,
		Environment:    cfg.Logging.Environment,
		EnableConsole:  true,
		EnableFile:     cfg.Logging.EnableFile,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxBackups: cfg.Logging.FileMaxBackups,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	}

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func initInfrastructure(cfg *config.Config, log logger.Logger) (*postgres.DB, *redis.Client, error) {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Connected to PostgreSQL",
		logger.Component("infrastructure"),
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
	)

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Connected to Redis",
		logger.Component("infrastructure"),
		logger.String("host", cfg.Redis.Host),
		logger.Int("port", cfg.Redis.Port),
	)

	return db, redisClient, nil
}

func newServer(
	cfg *config.Config,
	svcs *application.Services,
	repos *persistence.Repositories,
	db *postgres.DB,
	redisClient *redis.Client,
	log logger.Logger,
) *http.Server {
	routerDeps := &apphttp.RouterDeps{
		Flow:          svcs.Flow,
		Identity:      repos.Identity,
		Logger:        log,
		DBHealther:    db,
		RedisHealther: redisClient,
	}

	router := apphttp.NewRouter(cfg, routerDeps)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(server *http.Server, cfg *config.Config, log logger.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		log.Info("Server listening",
			logger.Component("server"),
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server...",
			logger.Component("server"),
			logger.String("signal", sig.String()),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited", logger.Component("server"))
	return nil
}
