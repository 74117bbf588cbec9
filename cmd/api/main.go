// cmd/api/main.go
//
// Huelip – API server entry point.
//
// Boot sequence
// -------------
//
//  1. Load config (defaults → conf/global.yaml → .env → HUELIP_ env).
//     Vault references are resolved inside config.Load.
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Open the MySQL pool and apply embedded migrations.
//
//  4. Pick the session store: Redis when redis.addr is set, an in-memory
//     LRU otherwise.
//
//  5. Optionally load the GeoLite2 database for request info.
//
//  6. Build the router:
//
//     • RequestID → access log → Recoverer
//     • ForceHTTPS (when enabled) → Security headers → CORS
//     • requestinfo.Enrich
//     • /metrics (Prometheus) and /api/<component> routes
//
//  7. Serve until SIGINT or SIGTERM, then shut down gracefully.  The HTTP
//     server and the shutdown watcher run under one errgroup, so a listen
//     failure also ends the process.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huelip/huelip/internal/component"
	"github.com/huelip/huelip/internal/config"
	"github.com/huelip/huelip/internal/database"
	"github.com/huelip/huelip/internal/logger"
	"github.com/huelip/huelip/internal/middleware"
	"github.com/huelip/huelip/internal/requestinfo"
	"github.com/huelip/huelip/internal/server"
	"github.com/huelip/huelip/internal/session"
	"github.com/huelip/huelip/internal/user"

	_ "github.com/huelip/huelip/components/auth"
	_ "github.com/huelip/huelip/components/healthcheck"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("huelip api: %v", err)
	}
}

func run() error {
	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(cfg.Paths.Root, runningInTTY(), cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer logOut.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 3.  Database ────────────────────────────────────────────────────
	//
	dsn, err := database.BuildDSN(cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		return err
	}
	db, err := database.Open(dsn)
	if err != nil {
		return fmt.Errorf("connect DB: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}
	logOut.Infow("database online")

	//
	// ── 4.  Sessions ────────────────────────────────────────────────────
	//
	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	//
	// ── 5.  GeoIP (optional) ────────────────────────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		logOut.Warnw("geoip disabled", "err", err)
	}
	defer requestinfo.CloseGeo()

	//
	// ── 6.  Router ──────────────────────────────────────────────────────
	//
	router, err := newRouter(cfg, component.Deps{
		DB:       db,
		Users:    user.NewStore(db),
		Sessions: sessions,
		Config:   cfg,
		Log:      logOut,
	})
	if err != nil {
		return err
	}

	//
	// ── 7.  Serve ───────────────────────────────────────────────────────
	//
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.New(cfg.HTTP.ListenAddr, router), logOut)
	})
	g.Go(func() error {
		<-gctx.Done()
		logOut.Infow("shutdown requested")
		return nil
	})
	return g.Wait()
}

// openSessions returns the configured session store and its closer.
func openSessions(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		zap.S().Infow("sessions in memory", "capacity", cfg.Session.MemoryCapacity)
		return session.NewMemoryStore(cfg.Session.MemoryCapacity), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	store, err := session.NewRedisStore(rdb, cfg.Redis.KeyPrefix)
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	zap.S().Infow("sessions in redis", "addr", cfg.Redis.Addr)
	return store, func() { rdb.Close() }, nil
}

// newRouter assembles middleware, metrics, and component routes.
func newRouter(cfg *config.Config, deps component.Deps) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(deps.Log))
	r.Use(chimw.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, next)
	})
	r.Use(middleware.Security)
	r.Use(middleware.CORS(cfg.HTTP.CORSOrigin))
	r.Use(requestinfo.Enrich)

	r.Handle("/metrics", promhttp.Handler())

	if err := component.Mount(r, deps); err != nil {
		return nil, err
	}
	return r, nil
}
