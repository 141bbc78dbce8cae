// 数据导入工具：将已发布的输出目录（index.csv + timestamp.txt）作为一次运行导入 PostgreSQL
// 用于 -skip-store 运行或存储启用之前的历史输出
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"anfr-diff/internal/config"
	"anfr-diff/internal/feeds"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/migrate"
	"anfr-diff/internal/retention"
	"anfr-diff/internal/store"
	"anfr-diff/internal/utils"
)

func main() {
	dir := flag.String("dir", "", "published output directory (default: OUTPUT_DIR)")
	flag.Parse()
	l := logger.Setup()
	if flag.NArg() != 1 {
		l.Error("usage", "want", "feed-import [-dir path] hebdo|mensu|trim")
		os.Exit(2)
	}
	period, err := retention.ParsePeriod(flag.Arg(0))
	if err != nil {
		l.Error("period_invalid", "err", err)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	if *dir == "" {
		*dir = cfg.OutputDir
	}

	rec, err := retention.ReadRunRecord(filepath.Join(*dir, retention.RunRecordFile))
	if err != nil {
		l.Error("run_record_error", "err", err)
		os.Exit(1)
	}
	runAt, err := retention.ParseTimestamp(rec.Timestamp)
	if err != nil {
		l.Error("run_record_timestamp_error", "timestamp", rec.Timestamp, "err", err)
		os.Exit(1)
	}
	f, err := os.Open(filepath.Join(*dir, feeds.IndexFile))
	if err != nil {
		l.Error("index_open_error", "err", err)
		os.Exit(1)
	}
	recs, err := feeds.ReadCSV(f)
	_ = f.Close()
	if err != nil {
		l.Error("index_parse_error", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	ctx := context.Background()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	id, err := store.AttachDB(db).SaveRun(ctx, store.Run{
		Period:     string(period),
		PeriodCode: retention.Code(runAt, period),
		RunAt:      runAt,
		Timestamp:  rec.Timestamp,
		Reference:  rec.Reference,
		New:        rec.New,
	}, recs)
	if err != nil {
		l.Error("import_error", "err", err)
		os.Exit(1)
	}
	l.Info("import_ok", "run_id", id, "period", string(period), "records", len(recs))
}
