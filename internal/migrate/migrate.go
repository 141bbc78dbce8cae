package migrate

import (
	"context"
	"database/sql"

	"anfr-diff/internal/logger"
)

// 文档注释：创建运行记录与变更记录表
// 背景：首次运行自动建表与索引；各二进制启动时均可调用。
// 约束：全部语句使用 IF NOT EXISTS，重复执行无副作用。
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _anfr_runs (
            id BIGSERIAL PRIMARY KEY,
            period_type TEXT NOT NULL,
            period_code TEXT NOT NULL,
            run_at TIMESTAMPTZ NOT NULL,
            ts_label TEXT NOT NULL,
            reference_path TEXT NOT NULL,
            new_path TEXT NOT NULL,
            records INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_anfr_run ON _anfr_runs(period_type, period_code, run_at)`,
		`CREATE INDEX IF NOT EXISTS idx_anfr_runs_latest ON _anfr_runs(period_type, run_at DESC)`,
		`CREATE TABLE IF NOT EXISTS _anfr_actions (
            run_id BIGINT NOT NULL REFERENCES _anfr_runs(id) ON DELETE CASCADE,
            grp TEXT NOT NULL,
            id_support TEXT NOT NULL,
            operateur TEXT NOT NULL,
            action TEXT NOT NULL,
            technologie TEXT NOT NULL,
            adresse TEXT NOT NULL,
            code_insee TEXT NOT NULL,
            coordonnees TEXT NOT NULL,
            type_support TEXT NOT NULL,
            hauteur_support TEXT NOT NULL,
            proprietaire_support TEXT NOT NULL,
            is_zb BOOLEAN NOT NULL,
            is_new BOOLEAN NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_anfr_actions_run_grp ON _anfr_actions(run_id, grp)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
