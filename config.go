package main

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/drag"
)

type config struct {
	ListenAddr string
	Debug      bool
	LogJSON    bool

	Backend     string
	DataDir     string
	SQLitePath  string
	RedisConn   string
	StorageConn string
	BoardTable  string
	CacheTTL    time.Duration
	DeduperTTL  time.Duration

	GestureTTL time.Duration

	AuthMode     string
	AuthSecret   string
	Auth0Domain  string
	Auth0Aud     string
	JWKSCacheTTL time.Duration

	Metrics         bool
	ShutdownTimeout time.Duration
}

func loadConfig() config {
	cfg := config{
		ListenAddr:      envString("LISTEN_ADDR", ":8080"),
		Debug:           envBool("DEBUG", false),
		LogJSON:         strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		Backend:         strings.ToLower(envString("STORAGE_BACKEND", "file")),
		DataDir:         envString("BOARD_DATA_DIR", filepath.Join(os.TempDir(), "kanban-board")),
		RedisConn:       os.Getenv("REDIS_CONNECTION_STRING"),
		StorageConn:     os.Getenv("STORAGE_CONNECTION_STRING"),
		BoardTable:      envString("BOARD_TABLE", "board"),
		CacheTTL:        envDur("CACHE_TTL", 0),
		DeduperTTL:      envDur("DEDUPER_TTL", 24*time.Hour),
		GestureTTL:      envDur("DRAG_GESTURE_TTL", drag.DefaultGestureTTL),
		AuthMode:        strings.ToLower(envString("AUTH_MODE", "none")),
		AuthSecret:      os.Getenv("AUTH_SHARED_SECRET"),
		Auth0Domain:     os.Getenv("AUTH0_DOMAIN"),
		Auth0Aud:        os.Getenv("AUTH0_AUDIENCE"),
		JWKSCacheTTL:    envDur("JWKS_CACHE_TTL", api.DefaultJWKSCacheTTL),
		Metrics:         envBool("METRICS_ENABLED", false),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		cfg.ListenAddr = ":" + val
	}
	cfg.SQLitePath = envString("SQLITE_PATH", filepath.Join(cfg.DataDir, "board.db"))
	if cfg.DeduperTTL <= 0 {
		log.Fatal("invalid DEDUPER_TTL: must be greater than zero")
	}
	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return b
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Fatalf("invalid %s: %q", key, v)
	}
	return d
}

// parseRedisOptions accepts a redis:// URL or an Azure style
// "host:port,password=...,ssl=True" connection string.
func parseRedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts
}
