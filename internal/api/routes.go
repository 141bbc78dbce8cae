// 包 api：通过 HTTP 提供已入库的变更订阅表
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"anfr-diff/internal/feeds"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/metrics"
	"anfr-diff/internal/record"
	"anfr-diff/internal/retention"
	"anfr-diff/internal/store"

	"github.com/gorilla/mux"
)

// FeedSource：运行存储的只读接口
type FeedSource interface {
	LatestRun(ctx context.Context, period string) (*store.Run, error)
	ListActions(ctx context.Context, runID int64, group string) ([]record.ActionRecord, error)
}

// feedRecord：单条记录的 JSON 形式
type feedRecord struct {
	IDSupport           string `json:"id_support"`
	Operateur           string `json:"operateur"`
	Action              string `json:"action"`
	Technologie         string `json:"technologie"`
	Adresse             string `json:"adresse"`
	CodeInsee           string `json:"code_insee"`
	Coordonnees         string `json:"coordonnees"`
	TypeSupport         string `json:"type_support"`
	HauteurSupport      string `json:"hauteur_support"`
	ProprietaireSupport string `json:"proprietaire_support"`
	IsZB                bool   `json:"is_zb"`
	IsNew               bool   `json:"is_new"`
}

type feedResponse struct {
	Run     *store.Run   `json:"run"`
	Group   string       `json:"group"`
	Records []feedRecord `json:"records"`
}

// bodyCache：处理器使用的 FeedCache 子集
type bodyCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

type handler struct {
	src   FeedSource
	cache bodyCache
}

// 文档注释：注册订阅表路由
// 背景：在 base 前缀下挂载最近运行、订阅表、指标与健康检查。
// 约束：cache 可为 nil，此时每次请求直接读库。
func BuildRoutes(src FeedSource, cache *FeedCache, base string) *mux.Router {
	return buildRoutes(src, cache, base)
}

func buildRoutes(src FeedSource, cache bodyCache, base string) *mux.Router {
	h := &handler{src: src, cache: cache}
	r := mux.NewRouter()
	sub := r.PathPrefix(base).Subrouter()
	sub.Handle("/runs/{period}/latest", instrument("runs_latest", h.latestRun)).Methods(http.MethodGet)
	sub.Handle("/feeds/{period}/{group}", instrument("feeds", h.feed)).Methods(http.MethodGet)
	sub.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	sub.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

type codeWriter struct {
	http.ResponseWriter
	code int
}

func (w *codeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(route string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cw := &codeWriter{ResponseWriter: w, code: http.StatusOK}
		fn(cw, r)
		metrics.FeedRequestsTotal.WithLabelValues(route, strconv.Itoa(cw.code)).Inc()
		metrics.FeedRequestDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// period：解析 {period} 路径段，非法时返回 400
func period(w http.ResponseWriter, r *http.Request) (retention.Period, bool) {
	p, err := retention.ParsePeriod(mux.Vars(r)["period"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return p, true
}

func (h *handler) run(w http.ResponseWriter, r *http.Request, p retention.Period) (*store.Run, bool) {
	run, err := h.src.LatestRun(r.Context(), string(p))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no run for period "+string(p))
		return nil, false
	}
	if err != nil {
		logger.L().Error("api_latest_run_error", "period", string(p), "err", err)
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return nil, false
	}
	return run, true
}

func (h *handler) latestRun(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	if run, ok := h.run(w, r, p); ok {
		writeJSON(w, http.StatusOK, run)
	}
}

// feed：默认返回 CSV，?format=json 时返回 JSON
// 约束：缓存键使用解析后的周期，需在查缓存前完成校验
func (h *handler) feed(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	group := mux.Vars(r)["group"]
	if !feeds.ValidGroup(group) {
		writeError(w, http.StatusNotFound, "unknown group "+group)
		return
	}
	format := "csv"
	if r.URL.Query().Get("format") == "json" {
		format = "json"
	}
	key := feedKey(p, group, format)
	if body, ok := h.cache.Get(r.Context(), key); ok {
		writeBody(w, format, body)
		return
	}

	run, ok := h.run(w, r, p)
	if !ok {
		return
	}
	recs, err := h.src.ListActions(r.Context(), run.ID, group)
	if err != nil {
		logger.L().Error("api_list_actions_error", "run", run.ID, "group", group, "err", err)
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	var buf bytes.Buffer
	if format == "json" {
		resp := feedResponse{Run: run, Group: group, Records: make([]feedRecord, 0, len(recs))}
		for _, x := range recs {
			resp.Records = append(resp.Records, feedRecord{
				IDSupport: x.IDSupport, Operateur: x.Operateur, Action: string(x.Action), Technologie: x.Technologie(),
				Adresse: x.Adresse, CodeInsee: x.CodeInsee, Coordonnees: x.Coordonnees,
				TypeSupport: x.TypeSupport, HauteurSupport: x.HauteurSupport, ProprietaireSupport: x.ProprietaireSupport,
				IsZB: x.IsZB, IsNew: x.IsNew,
			})
		}
		err = json.NewEncoder(&buf).Encode(resp)
	} else {
		err = feeds.WriteCSV(&buf, recs)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	h.cache.Set(r.Context(), key, buf.Bytes())
	writeBody(w, format, buf.Bytes())
}

func writeBody(w http.ResponseWriter, format string, body []byte) {
	if format == "json" {
		w.Header().Set("content-type", "application/json; charset=utf-8")
	} else {
		w.Header().Set("content-type", "text/csv; charset=utf-8")
	}
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(body)
}
