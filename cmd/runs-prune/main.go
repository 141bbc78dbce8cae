package main

import (
	"context"
	"os"

	"anfr-diff/internal/logger"
	"anfr-diff/internal/retention"
	"anfr-diff/internal/store"
	"anfr-diff/internal/utils"

	"github.com/joho/godotenv"
)

// 清理工具：每种周期类型保留最新的 RUNS_KEEP_N 次运行，其余删除
// 动作记录经外键级联随运行一起删除
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	keepN := utils.EnvInt("RUNS_KEEP_N", 10)
	if keepN <= 0 {
		l.Error("runs_keep_invalid", "keep", keepN)
		os.Exit(1)
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)
	defer st.Close()

	ctx := context.Background()
	failed := false
	for _, p := range retention.Periods {
		n, err := st.PruneRuns(ctx, string(p), keepN)
		if err != nil {
			l.Error("runs_prune_error", "period", string(p), "err", err)
			failed = true
			continue
		}
		l.Info("runs_prune_done", "period", string(p), "keep", keepN, "deleted", n)
	}
	if failed {
		os.Exit(1)
	}
}
