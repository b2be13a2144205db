package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kanban-api/storage"
)

func TestParseRedisOptionsURL(t *testing.T) {
	opts := parseRedisOptions("redis://:pw@localhost:6380/2")
	if opts.Addr != "localhost:6380" || opts.Password != "pw" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestParseRedisOptionsConnectionString(t *testing.T) {
	opts := parseRedisOptions("cache.example.net:6380,password=secret,ssl=True,abortConnect=False")
	if opts.Addr != "cache.example.net:6380" {
		t.Fatalf("unexpected addr: %s", opts.Addr)
	}
	if opts.Password != "secret" {
		t.Fatalf("unexpected password: %s", opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Fatalf("expected TLS to be enabled")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"LISTEN_ADDR", "STORAGE_BACKEND", "BOARD_DATA_DIR", "SQLITE_PATH", "DRAG_GESTURE_TTL", "AUTH_MODE"} {
		t.Setenv(key, "")
	}
	t.Setenv("BOARD_DATA_DIR", "/data/board")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	t.Setenv("CACHE_TTL", "90s")

	cfg := loadConfig()
	if cfg.ListenAddr != ":7071" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.Backend != "file" || cfg.AuthMode != "none" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SQLitePath != filepath.Join("/data/board", "board.db") {
		t.Fatalf("unexpected sqlite path: %s", cfg.SQLitePath)
	}
	if cfg.CacheTTL != 90*time.Second || cfg.GestureTTL != 30*time.Second || cfg.DeduperTTL != 24*time.Hour {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
}

func TestOpenBackendSelection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config
		wantErr bool
	}{
		{name: "memory", cfg: config{Backend: "memory"}},
		{name: "file", cfg: config{Backend: "file", DataDir: filepath.Join(dir, "files")}},
		{name: "sqlite", cfg: config{Backend: "sqlite", SQLitePath: filepath.Join(dir, "db", "board.db")}},
		{name: "redisWithoutConn", cfg: config{Backend: "redis"}, wantErr: true},
		{name: "tableWithoutConn", cfg: config{Backend: "table"}, wantErr: true},
		{name: "unknown", cfg: config{Backend: "floppy"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, closeFn, err := openBackend(ctx, tt.cfg, nil)
			defer closeFn()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("open backend: %v", err)
			}
			if err := backend.Save(ctx, "kanbanState", []byte("x")); err != nil {
				t.Fatalf("save: %v", err)
			}
		})
	}
}

func TestOpenBackendWrapsCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	cfg := config{Backend: "file", DataDir: t.TempDir(), CacheTTL: time.Minute}
	backend, closeFn, err := openBackend(context.Background(), cfg, rc)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer closeFn()
	if _, ok := backend.(*storage.Cache); !ok {
		t.Fatalf("expected cache wrapper, got %T", backend)
	}

	cfg = config{Backend: "redis", CacheTTL: time.Minute}
	backend, _, err = openBackend(context.Background(), cfg, rc)
	if err != nil {
		t.Fatalf("open redis backend: %v", err)
	}
	if _, ok := backend.(*storage.Redis); !ok {
		t.Fatalf("redis backend must not be cached, got %T", backend)
	}
}
