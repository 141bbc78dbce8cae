// 订阅服务：通过 HTTP 提供已存储的运行与按运营商分组的变更订阅
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anfr-diff/internal/api"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/migrate"
	"anfr-diff/internal/store"
	"anfr-diff/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	addr := utils.Env("ADDR", ":8080")
	base := utils.Env("API_BASE", "/api")
	ttl := time.Duration(utils.EnvInt("FEED_CACHE_TTL_SECONDS", 3600)) * time.Second
	l.Debug("config_api", "addr", addr, "base", base, "cache_ttl", ttl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	r := api.BuildRoutes(st, api.NewFeedCache(rc, ttl), base)
	s := &http.Server{
		Addr:              addr,
		Handler:           logger.AccessMiddleware(l)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	l.Info("listening", "addr", addr, "base", base)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_ok")
}
