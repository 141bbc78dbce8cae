// 包 pipeline：执行一次完整的快照比对
// 依次为参照选择、加载、内存处理与变更表发布
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anfr-diff/internal/config"
	"anfr-diff/internal/dedup"
	"anfr-diff/internal/feeds"
	"anfr-diff/internal/history"
	"anfr-diff/internal/ingest"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/metrics"
	"anfr-diff/internal/postal"
	"anfr-diff/internal/record"
	"anfr-diff/internal/retention"
	"anfr-diff/internal/snapshot"
	"anfr-diff/internal/store"
)

// ErrNoOpRun：某个比对分区为空，未写出任何文件
var ErrNoOpRun = errors.New("no-op run: a diff partition is empty")

// RunSaver：持久化已发布的运行
type RunSaver interface {
	SaveRun(ctx context.Context, run store.Run, recs []record.ActionRecord) (int64, error)
}

// CacheInvalidator：清除某周期类型的缓存
type CacheInvalidator interface {
	Invalidate(ctx context.Context, period string) error
}

// Runner：运行依赖；Store 与 Cache 可选，Postal 亦可为空
type Runner struct {
	Cfg    config.Config
	Now    func() time.Time
	Store  RunSaver
	Cache  CacheInvalidator
	Postal postal.Lookuper
}

// Result：已完成运行的描述
type Result struct {
	Period     retention.Period
	PeriodCode string
	Selection  retention.Selection
	Outcome    *Outcome
	Files      []string
	RunID      int64
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// 文档注释：执行一次比对
// 背景：按周期 p 选择参照快照，与 newPath 比对并发布结果。
// 约束：所有致命检查都在写出第一个输出文件之前完成。
func (r *Runner) Run(ctx context.Context, p retention.Period, newPath string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		switch {
		case errors.Is(err, ErrNoOpRun):
			status = "noop"
		case err != nil:
			status = "error"
		}
		metrics.RunsTotal.WithLabelValues(string(p), status).Inc()
		metrics.RunDurationSeconds.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
	}()

	guard, err := ingest.NewGuard(r.Cfg.IgnoresPath)
	if err != nil {
		return nil, err
	}
	if err := guard.Check(newPath); err != nil {
		return nil, err
	}

	sel := &retention.Selector{
		Dir:         r.Cfg.SnapshotDir,
		HorizonDays: r.Cfg.RetentionDays,
		MinAge:      r.Cfg.MinReferenceAge,
		Now:         r.now,
	}
	selection, err := sel.Select(newPath, p)
	if err != nil {
		return nil, err
	}
	metrics.RetentionDeletedTotal.Add(float64(len(selection.Deleted)))

	lookup, err := r.lookup()
	if err != nil {
		return nil, err
	}

	opts := snapshot.ReadOptions{Delimiter: r.Cfg.SnapshotDelimiter, Encoding: r.Cfg.SnapshotEncoding}
	old, err := snapshot.Load(selection.Reference, opts)
	if err != nil {
		return nil, err
	}
	cur, err := snapshot.Load(newPath, opts)
	if err != nil {
		return nil, err
	}
	metrics.SnapshotRows.WithLabelValues("old").Set(float64(len(old.Rows)))
	metrics.SnapshotRows.WithLabelValues("new").Set(float64(len(cur.Rows)))

	out := Process(old, cur, Env{
		Postal:    lookup,
		WhiteZone: r.Cfg.WhiteZoneTechnologies,
		Fuzzy:     dedup.FuzzyOptions{MaxDistance: r.Cfg.DedupMaxDistance, MinAddressSimilarity: r.Cfg.DedupMinAddressSimilarity},
	})
	observe(out)

	res = &Result{
		Period:     p,
		PeriodCode: retention.Code(selection.RunAt, p),
		Selection:  selection,
		Outcome:    out,
	}
	if out.NoOp() {
		logger.L().Warn("pipeline_noop", "period", string(p), "reference", selection.Reference,
			"added", out.Added, "removed", out.Removed, "modified", out.Modified)
		return res, ErrNoOpRun
	}

	if err := r.publish(ctx, res); err != nil {
		return res, err
	}
	for _, rec := range out.Records {
		metrics.ActionsTotal.WithLabelValues(string(rec.Action)).Inc()
	}
	logger.L().Info("pipeline_ok", "period", string(p), "code", res.PeriodCode,
		"records", len(out.Records), "elapsed", time.Since(start))
	return res, nil
}

func (r *Runner) lookup() (postal.Lookuper, error) {
	if r.Postal != nil {
		return r.Postal, nil
	}
	base, err := postal.Load(r.Cfg.InseePath, r.Cfg.InseeEncoding)
	if err != nil {
		return nil, err
	}
	if r.Cfg.InseeOverridesPath == "" {
		return base, nil
	}
	over, err := postal.Load(r.Cfg.InseeOverridesPath, r.Cfg.InseeEncoding)
	if err != nil {
		return nil, fmt.Errorf("overrides: %w", err)
	}
	return postal.NewChain(over, base), nil
}

// 文档注释：发布输出集合
// 背景：先暂存输出集合与运行记录，再入库，最后重命名到位。
// 约束：暂存或入库失败时保留上一版输出；历史、周期标记与归档在发布之后执行且幂等，失败后重跑同一对快照即可补齐。
func (r *Runner) publish(ctx context.Context, res *Result) error {
	sel := res.Selection
	staged, err := feeds.Stage(r.Cfg.OutputDir, res.Outcome.Records)
	if err != nil {
		return err
	}
	defer staged.Discard()
	if err := staged.Add(retention.RunRecordFile, retention.RunRecord{
		Timestamp: sel.Timestamp, Reference: sel.Reference, New: sel.New,
	}.Bytes()); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}

	if r.Store != nil {
		id, err := r.Store.SaveRun(ctx, store.Run{
			Period:     string(res.Period),
			PeriodCode: res.PeriodCode,
			RunAt:      sel.RunAt,
			Timestamp:  sel.Timestamp,
			Reference:  sel.Reference,
			New:        sel.New,
		}, res.Outcome.Records)
		if err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		res.RunID = id
	}

	if res.Files, err = staged.Commit(); err != nil {
		return err
	}
	if r.Cache != nil {
		if err := r.Cache.Invalidate(ctx, string(res.Period)); err != nil {
			logger.L().Warn("feed_cache_invalidate_error", "period", string(res.Period), "err", err)
		}
	}

	if r.Cfg.HistoryPath != "" {
		if _, err := history.Update(r.Cfg.HistoryPath, res.Period, sel.RunAt); err != nil {
			return fmt.Errorf("update history: %w", err)
		}
	}
	if res.Period == retention.Weekly {
		if err := retention.WritePeriodMarkers(r.Cfg.OutputDir, sel.RunAt); err != nil {
			return fmt.Errorf("write period markers: %w", err)
		}
		if _, err := retention.Archive(r.Cfg.SnapshotDir, sel.New, sel.RunAt); err != nil {
			return err
		}
	}
	return nil
}

func observe(out *Outcome) {
	metrics.DiffRows.WithLabelValues("added").Set(float64(out.Added))
	metrics.DiffRows.WithLabelValues("removed").Set(float64(out.Removed))
	metrics.DiffRows.WithLabelValues("modified").Set(float64(out.Modified))
	metrics.DiffRows.WithLabelValues("unchanged").Set(float64(out.Unchanged))
	metrics.UnknownActionsTotal.Add(float64(out.Unknown))
	metrics.InseeMissesTotal.Add(float64(out.Enrich.InseeMisses))
	for table, n := range out.Enrich.UnknownCodes {
		metrics.UnknownCodesTotal.WithLabelValues(table).Add(float64(n))
	}
	exact := 0
	for _, n := range out.ExactMatched {
		exact += 2 * n
	}
	metrics.DedupDroppedTotal.WithLabelValues("exact").Add(float64(exact))
	metrics.DedupDroppedTotal.WithLabelValues("fuzzy").Add(float64(out.FuzzyDropped))
	metrics.DedupDroppedTotal.WithLabelValues("triple").Add(float64(out.TripleDropped))
}
