package ingest

import (
	"context"
	"log/slog"
	"time"

	"anfr-diff/internal/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger：将 cron 自身日志转发到 slog
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron_"+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron_"+msg, append([]interface{}{"err", err}, kv...)...)
}

// 文档注释：定时任务调度器
// 背景：-daemon 模式按 SCHEDULE_CRON（含秒字段）触发单次运行。
// 约束：任务内 panic 被恢复并记录；上一次未结束时跳过本次触发。
type Scheduler struct {
	c    *cron.Cron
	spec string
}

// NewScheduler：注册任务；timeout > 0 时每次运行的 ctx 受其限制
func NewScheduler(ctx context.Context, spec string, timeout time.Duration, job func(context.Context) error) (*Scheduler, error) {
	cl := cronLogger{l: logger.L()}
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	_, err := c.AddFunc(spec, func() {
		rctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		logger.L().Info("schedule_run_start", "spec", spec)
		if err := job(rctx); err != nil {
			logger.L().Error("schedule_run_error", "err", err, "elapsed", time.Since(start))
			return
		}
		logger.L().Info("schedule_run_done", "elapsed", time.Since(start))
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{c: c, spec: spec}, nil
}

func (s *Scheduler) Start() {
	s.c.Start()
	logger.L().Info("schedule_started", "spec", s.spec, "next", s.Next())
}

// Next：下一次触发时间，Start 之前为零值
func (s *Scheduler) Next() time.Time {
	entries := s.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop：等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
