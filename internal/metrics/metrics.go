package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anfr_runs_total",
		Help: "Diff runs by period type and outcome (ok, noop, error)",
	}, []string{"period", "status"})
	RunDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anfr_run_duration_seconds",
		Help:    "Wall time of a diff run",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"period"})
	SnapshotRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "anfr_snapshot_rows",
		Help: "Rows in the last loaded snapshots by side",
	}, []string{"side"})
	DiffRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "anfr_diff_rows",
		Help: "Rows per diff partition in the last run",
	}, []string{"partition"})
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anfr_actions_total",
		Help: "Published action records by action code",
	}, []string{"action"})
	UnknownActionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anfr_unknown_actions_total",
		Help: "Modified rows no rule could classify",
	})
	InseeMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anfr_insee_misses_total",
		Help: "Addresses rendered with the commune lookup miss marker",
	})
	UnknownCodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anfr_unknown_codes_total",
		Help: "Structure codes decoded as unknown, by table",
	}, []string{"table"})
	DedupDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anfr_dedup_dropped_total",
		Help: "Rows removed by deduplication, by pass",
	}, []string{"pass"})
	RetentionDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anfr_retention_deleted_total",
		Help: "Expired snapshots deleted",
	})
	FeedRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anfr_feed_requests_total",
		Help: "Feed API requests by route and status code",
	}, []string{"route", "code"})
	FeedRequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "anfr_feed_request_duration_ms",
		Help:    "Feed API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anfr_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anfr_redis_misses_total",
		Help: "Total redis cache misses",
	})
)

var collectors = []prometheus.Collector{
	RunsTotal, RunDurationSeconds, SnapshotRows, DiffRows, ActionsTotal, UnknownActionsTotal,
	InseeMissesTotal, UnknownCodesTotal, DedupDroppedTotal, RetentionDeletedTotal,
	FeedRequestsTotal, FeedRequestDurationMs, RedisHitsTotal, RedisMissesTotal,
}

func init() {
	prometheus.MustRegister(collectors...)
}

// 文档注释：返回 Prometheus 指标处理器
// 背景：由 feed-api 挂载到 {API_BASE}/metrics 供抓取。
func Handler() http.Handler { return promhttp.Handler() }

// 文档注释：推送流水线指标到 Pushgateway
// 背景：命令行单次运行结束即退出，无法被抓取，改为主动推送；job 区分周期类型。
func Push(url, job string) error {
	p := push.New(url, job)
	for _, c := range []prometheus.Collector{
		RunsTotal, RunDurationSeconds, SnapshotRows, DiffRows, ActionsTotal, UnknownActionsTotal,
		InseeMissesTotal, UnknownCodesTotal, DedupDroppedTotal, RetentionDeletedTotal,
	} {
		p = p.Collector(c)
	}
	return p.Push()
}
