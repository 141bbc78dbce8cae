// 比对入口：读取配置，按需接入持久化，执行一次快照比对（-daemon 时按计划执行）
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anfr-diff/internal/api"
	"anfr-diff/internal/config"
	"anfr-diff/internal/ingest"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/metrics"
	"anfr-diff/internal/migrate"
	"anfr-diff/internal/pipeline"
	"anfr-diff/internal/retention"
	"anfr-diff/internal/store"
	"anfr-diff/internal/utils"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
	exitNoOp  = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		newPath   = flag.String("new", "", "new snapshot path (default: newest acceptable file in SNAPSHOT_DIR)")
		debug     = flag.Bool("debug", false, "debug logging")
		daemon    = flag.Bool("daemon", false, "run on SCHEDULE_CRON instead of once")
		skipStore = flag.Bool("skip-store", false, "do not persist the run even when STORE_ENABLE is set")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] hebdo|mensu|trim\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	l := logger.Setup()
	if *debug {
		l = logger.SetupLevel("debug")
	}
	if flag.NArg() != 1 {
		flag.Usage()
		return exitUsage
	}
	period, err := retention.ParsePeriod(flag.Arg(0))
	if err != nil {
		l.Error("period_invalid", "err", err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		l.Error("config_error", "err", err)
		return exitError
	}
	l.Debug("config_ok", "snapshot_dir", cfg.SnapshotDir, "output_dir", cfg.OutputDir, "store", cfg.StoreEnable)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &pipeline.Runner{Cfg: cfg}
	if cfg.StoreEnable && !*skipStore {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			return exitError
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
			return exitError
		}
		l.Info("db_ping_ok")
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			return exitError
		}
		runner.Store = store.AttachDB(db)

		if rc := utils.OpenRedisFromEnv(); rc != nil {
			defer rc.Close()
			if err := rc.Ping(ctx).Err(); err != nil {
				l.Error("redis_ping_error", "err", err)
			} else {
				l.Info("redis_ping_ok")
			}
			runner.Cache = api.NewFeedCache(rc, time.Hour)
		} else {
			l.Info("redis_disabled")
		}
	}

	once := func(ctx context.Context) error {
		path := *newPath
		if path == "" {
			guard, err := ingest.NewGuard(cfg.IgnoresPath)
			if err != nil {
				return err
			}
			if path, err = guard.Latest(cfg.SnapshotDir); err != nil {
				return err
			}
		}
		_, err := runner.Run(ctx, period, path)
		if cfg.PushgatewayURL != "" {
			if perr := metrics.Push(cfg.PushgatewayURL, "anfr_diff_"+string(period)); perr != nil {
				l.Warn("metrics_push_error", "err", perr)
			}
		}
		return err
	}

	if *daemon {
		s, err := ingest.NewScheduler(ctx, cfg.ScheduleCron, 0, once)
		if err != nil {
			l.Error("schedule_error", "spec", cfg.ScheduleCron, "err", err)
			return exitError
		}
		s.Start()
		<-ctx.Done()
		l.Info("shutting_down")
		s.Stop()
		return exitOK
	}

	err = once(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrNoOpRun):
		return exitNoOp
	default:
		l.Error("run_error", "period", string(period), "err", err)
		return exitError
	}
}
