// 包 store：提供 PostgreSQL 数据访问层，保存差异运行及其变更记录
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"anfr-diff/internal/classify"
	"anfr-diff/internal/feeds"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/record"

	"github.com/lib/pq"
)

// ErrNotFound：无匹配运行记录
var ErrNotFound = errors.New("run not found")

// Store：数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close：关闭连接池
func (s *Store) Close() error { return s.db.Close() }

// Run：一次差异运行的元信息
type Run struct {
	ID         int64     `json:"id"`
	Period     string    `json:"period"`
	PeriodCode string    `json:"period_code"`
	RunAt      time.Time `json:"run_at"`
	Timestamp  string    `json:"timestamp"`
	Reference  string    `json:"reference"`
	New        string    `json:"new"`
	Records    int       `json:"records"`
}

var actionColumns = []string{
	"run_id", "grp", "id_support", "operateur", "action", "technologie", "adresse", "code_insee",
	"coordonnees", "type_support", "hauteur_support", "proprietaire_support", "is_zb", "is_new",
}

// 文档注释：保存一次运行及其全部变更记录
// 背景：同周期同时刻的旧运行先删除（级联删除记录），再以 COPY 批量写入，保证重跑幂等。
// 约束：全部操作处于同一事务；任一步失败整体回滚。
func (s *Store) SaveRun(ctx context.Context, run Run, recs []record.ActionRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM _anfr_runs WHERE period_type=$1 AND period_code=$2 AND run_at=$3`,
		run.Period, run.PeriodCode, run.RunAt); err != nil {
		return 0, fmt.Errorf("delete previous run: %w", err)
	}
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO _anfr_runs(period_type, period_code, run_at, ts_label, reference_path, new_path, records)
         VALUES($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		run.Period, run.PeriodCode, run.RunAt, run.Timestamp, run.Reference, run.New, len(recs)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("_anfr_actions", actionColumns...))
	if err != nil {
		return 0, err
	}
	for _, r := range recs {
		grp := feeds.GroupOf(r.Operateur)
		if _, err := stmt.ExecContext(ctx, id, grp, r.IDSupport, r.Operateur, string(r.Action), r.Technologie(),
			r.Adresse, r.CodeInsee, r.Coordonnees, r.TypeSupport, r.HauteurSupport, r.ProprietaireSupport,
			r.IsZB, r.IsNew); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("copy action: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("flush actions: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.L().Info("store_run_ok", "id", id, "period", run.Period, "code", run.PeriodCode, "records", len(recs))
	return id, nil
}

const runColumns = `id, period_type, period_code, run_at, ts_label, reference_path, new_path, records`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.Period, &r.PeriodCode, &r.RunAt, &r.Timestamp, &r.Reference, &r.New, &r.Records); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// LatestRun：返回某周期类型最近一次运行；不存在时返回 ErrNotFound
func (s *Store) LatestRun(ctx context.Context, period string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM _anfr_runs WHERE period_type=$1 ORDER BY run_at DESC, id DESC LIMIT 1`, period)
	return scanRun(row)
}

// ListRuns：按时间倒序返回至多 limit 条运行
func (s *Store) ListRuns(ctx context.Context, period string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM _anfr_runs WHERE period_type=$1 ORDER BY run_at DESC, id DESC LIMIT $2`, period, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// 文档注释：读取运行的变更记录
// 参数：group 为运营商分组名，feeds.All 表示全部记录。
// 返回：与发布表格一致的排序。
func (s *Store) ListActions(ctx context.Context, runID int64, group string) ([]record.ActionRecord, error) {
	q := `SELECT id_support, operateur, action, technologie, adresse, code_insee, coordonnees,
                 type_support, hauteur_support, proprietaire_support, is_zb, is_new
          FROM _anfr_actions WHERE run_id=$1`
	args := []any{runID}
	if group != feeds.All {
		q += ` AND grp=$2`
		args = append(args, group)
	}
	q += ` ORDER BY id_support, operateur, action`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []record.ActionRecord
	for rows.Next() {
		var (
			r      record.ActionRecord
			action string
			techs  string
		)
		if err := rows.Scan(&r.IDSupport, &r.Operateur, &action, &techs, &r.Adresse, &r.CodeInsee, &r.Coordonnees,
			&r.TypeSupport, &r.HauteurSupport, &r.ProprietaireSupport, &r.IsZB, &r.IsNew); err != nil {
			return nil, err
		}
		r.Action = classify.Action(action)
		if techs != "" {
			r.Technologies = strings.Split(techs, ", ")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// 文档注释：按周期类型保留最近 keep 次运行
// 背景：其余运行删除，变更记录经外键级联一并删除。
func (s *Store) PruneRuns(ctx context.Context, period string, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be >= 1, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM _anfr_runs WHERE period_type=$1 AND id NOT IN (
            SELECT id FROM _anfr_runs WHERE period_type=$1 ORDER BY run_at DESC, id DESC LIMIT $2)`,
		period, keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	logger.L().Info("store_prune_ok", "period", period, "keep", keep, "deleted", n)
	return n, nil
}
