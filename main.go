package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"kanban-api/api"
	"kanban-api/board"
	"kanban-api/drag"
	"kanban-api/storage"
)

func main() {
	cfg := loadConfig()

	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogJSON {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var rc *redis.Client
	if cfg.RedisConn != "" {
		rc = redis.NewClient(parseRedisOptions(cfg.RedisConn))
		defer rc.Close()
	}

	backend, closeBackend, err := openBackend(ctx, cfg, rc)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer closeBackend()

	b, err := board.Open(ctx, backend, board.WithLogger(logger))
	if err != nil {
		logger.Fatalf("board: %v", err)
	}

	svc := api.Services{
		Board:       b,
		Drag:        drag.New(b, logger, drag.WithTTL(cfg.GestureTTL)),
		Preferences: board.NewPreferences(backend, logger),
		Auth:        newAuthenticator(cfg, logger),
	}
	if rc != nil {
		svc.Deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, api.IdempotencyKeyHeader},
	}))
	if cfg.Metrics {
		e.Use(echoprometheus.NewMiddleware("kanban"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	if err := api.Register(e, svc, logger); err != nil {
		logger.Fatalf("api: %v", err)
	}

	go func() {
		logger.WithFields(log.Fields{"addr": cfg.ListenAddr, "backend": cfg.Backend}).Info("listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

// openBackend builds the persistence adapter named by STORAGE_BACKEND,
// wrapped in the Redis cache when CACHE_TTL is set.
func openBackend(ctx context.Context, cfg config, rc *redis.Client) (storage.Backend, func(), error) {
	noop := func() {}
	var base storage.Backend
	cacheable := true

	switch cfg.Backend {
	case "memory":
		base, cacheable = storage.NewMemory(), false
	case "file":
		f, err := storage.NewFile(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		base = f
	case "sqlite":
		db, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		if cfg.CacheTTL > 0 && rc != nil {
			return storage.NewCache(db, rc, cfg.CacheTTL), func() { _ = db.Close() }, nil
		}
		return db, func() { _ = db.Close() }, nil
	case "redis":
		if rc == nil {
			return nil, noop, errors.New("STORAGE_BACKEND=redis needs REDIS_CONNECTION_STRING")
		}
		base, cacheable = storage.NewRedis(rc), false
	case "table":
		if cfg.StorageConn == "" {
			return nil, noop, errors.New("STORAGE_BACKEND=table needs STORAGE_CONNECTION_STRING")
		}
		t, err := storage.NewTable(cfg.StorageConn, cfg.BoardTable)
		if err != nil {
			return nil, noop, err
		}
		base = t
	default:
		return nil, noop, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}

	if cacheable && cfg.CacheTTL > 0 && rc != nil {
		return storage.NewCache(base, rc, cfg.CacheTTL), noop, nil
	}
	return base, noop, nil
}

func newAuthenticator(cfg config, logger *log.Logger) api.Authenticator {
	switch cfg.AuthMode {
	case "", "none":
		logger.Warn("authentication disabled")
		return api.Anonymous{}
	case "hs256":
		if cfg.AuthSecret == "" {
			logger.Fatal("AUTH_SHARED_SECRET must be set when AUTH_MODE=hs256")
		}
		issuer := ""
		if cfg.Auth0Domain != "" {
			issuer = "https://" + cfg.Auth0Domain + "/"
		}
		return api.NewSharedSecretAuth([]byte(cfg.AuthSecret), cfg.Auth0Aud, issuer)
	case "jwks":
		if cfg.Auth0Aud == "" || cfg.Auth0Domain == "" {
			logger.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			logger.Fatalf("jwks: %v", err)
		}
		return api.NewAuth(jwks, cfg.Auth0Aud, "https://"+cfg.Auth0Domain+"/", cfg.JWKSCacheTTL)
	default:
		logger.Fatalf("unsupported AUTH_MODE %q", cfg.AuthMode)
		return nil
	}
}
