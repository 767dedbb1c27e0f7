package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rajan-marasini/task-kanban/api"
	"github.com/rajan-marasini/task-kanban/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	logger.SetLevel(log.GetLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())))
	otel.SetTracerProvider(tp)

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	deps := api.Deps{Store: repo, Log: logger}

	if cfg.RedisConn != "" {
		rc := redis.NewClient(redisOptions(cfg.RedisConn))
		defer rc.Close()
		deps.Store = storage.NewCache(repo, rc, cfg.CacheTTL, cfg.BoardID)
		deps.Deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
	} else {
		log.Warn("REDIS_CONNECTION_STRING not set; caching and idempotency keys disabled")
	}

	if cfg.ChangesQueue != "" {
		pub, err := storage.NewQueuePublisher(cfg.ConnStr, cfg.ChangesQueue)
		if err != nil {
			log.Fatalf("changes queue: %v", err)
		}
		deps.Changes = api.NewDispatcher(pub, logger, api.DispatcherConfig{
			Workers:        cfg.ChangeWorkers,
			Buffer:         cfg.ChangeBuffer,
			HandoffTimeout: cfg.ChangeHandoff,
		})
	}

	auth, err := newAuth(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	if auth != nil {
		deps.Auth = auth
	} else {
		log.Warn("auth disabled; all requests run as the anonymous user")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(echoprometheus.NewMiddleware("kanban"))
	e.GET("/metrics", echoprometheus.NewHandler())
	api.Register(e, deps)

	go func() {
		log.Infof("kanban api listening on :%s (storage: %s)", cfg.Port, cfg.StorageDriver)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	deps.Changes.Close()
	if err := closeRepo(); err != nil {
		log.WithError(err).Warn("close storage")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracer shutdown")
	}
}

// openRepository builds the configured backend. The memory and SQLite
// backends are seeded with the default columns; Azure tables are seeded by
// storage-init.
func openRepository(ctx context.Context, cfg Config) (storage.Repository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.StorageDriver {
	case driverTables:
		repo, err := storage.NewTables(cfg.ConnStr, cfg.ColumnsTable, cfg.TasksTable, cfg.BoardID)
		if err != nil {
			return nil, nil, err
		}
		return repo, noop, nil
	case driverSQLite:
		repo, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if _, err := storage.Seed(ctx, repo, storage.DefaultColumns()); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case driverMemory:
		repo := storage.NewMemory()
		if _, err := storage.Seed(ctx, repo, storage.DefaultColumns()); err != nil {
			return nil, nil, err
		}
		return repo, noop, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
}

// newAuth returns nil when no auth mode is configured.
func newAuth(cfg Config) (*api.Auth, error) {
	switch {
	case cfg.LocalAuthMode != "":
		return api.NewAuth(nil, api.AuthConfig{
			Audience:    cfg.Auth0Audience,
			LocalMode:   cfg.LocalAuthMode,
			LocalSecret: cfg.LocalAuthSecret,
		})
	case cfg.Auth0Domain != "":
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		return api.NewAuth(jwks, api.AuthConfig{
			Audience:    cfg.Auth0Audience,
			Issuer:      "https://" + cfg.Auth0Domain + "/",
			KeyCacheTTL: cfg.JWKSCacheTTL,
		})
	}
	return nil, nil
}
