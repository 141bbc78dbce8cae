package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anfr-diff/internal/classify"
	"anfr-diff/internal/feeds"
	"anfr-diff/internal/record"
	"anfr-diff/internal/store"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	runs    map[string]*store.Run
	actions map[int64][]record.ActionRecord
	err     error
}

func (f *fakeSource) LatestRun(_ context.Context, period string) (*store.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.runs[period]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeSource) ListActions(_ context.Context, runID int64, group string) ([]record.ActionRecord, error) {
	return feeds.Filter(f.actions[runID], group), nil
}

func newServer(t *testing.T, src FeedSource) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(BuildRoutes(src, NewFeedCache(nil, time.Hour), "/api"))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("content-type"), string(b)
}

func sampleSource() *fakeSource {
	return &fakeSource{
		runs: map[string]*store.Run{"hebdo": {ID: 7, Period: "hebdo", PeriodCode: "S06_2025", Timestamp: "04/02/2025 à 06:00:00"}},
		actions: map[int64][]record.ActionRecord{7: {
			{IDSupport: "1", Operateur: "SFR", Action: classify.Activated, Technologies: []string{"LTE 800"}},
			{IDSupport: "2", Operateur: "ORANGE", Action: classify.Removed, Technologies: []string{"GSM 900"}, IsZB: true},
		}},
	}
}

func TestLatestRun(t *testing.T) {
	srv := newServer(t, sampleSource())

	code, _, body := get(t, srv.URL+"/api/runs/hebdo/latest")
	require.Equal(t, http.StatusOK, code)
	var run store.Run
	require.NoError(t, json.Unmarshal([]byte(body), &run))
	require.Equal(t, "S06_2025", run.PeriodCode)

	code, _, _ = get(t, srv.URL+"/api/runs/mensu/latest")
	require.Equal(t, http.StatusNotFound, code)
	code, _, _ = get(t, srv.URL+"/api/runs/daily/latest")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestFeedCSVAndJSON(t *testing.T) {
	srv := newServer(t, sampleSource())

	code, ctype, body := get(t, srv.URL+"/api/feeds/hebdo/sfr")
	require.Equal(t, http.StatusOK, code)
	require.True(t, strings.HasPrefix(ctype, "text/csv"))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "1,SFR,ALL,LTE 800"))

	code, ctype, body = get(t, srv.URL+"/api/feeds/hebdo/all?format=json")
	require.Equal(t, http.StatusOK, code)
	require.True(t, strings.HasPrefix(ctype, "application/json"))
	var resp feedResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Records, 2)
	require.True(t, resp.Records[1].IsZB)

	code, _, _ = get(t, srv.URL+"/api/feeds/hebdo/lyca")
	require.Equal(t, http.StatusNotFound, code)
}

type memCache struct {
	gets []string
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.gets = append(c.gets, key)
	b, ok := c.data[key]
	return b, ok
}

func (c *memCache) Set(_ context.Context, key string, body []byte) {
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = body
}

func TestFeedCacheKeyUsesParsedPeriod(t *testing.T) {
	cache := &memCache{}
	srv := httptest.NewServer(buildRoutes(sampleSource(), cache, "/api"))
	t.Cleanup(srv.Close)

	code, _, first := get(t, srv.URL+"/api/feeds/HEBDO/all")
	require.Equal(t, http.StatusOK, code)
	code, _, second := get(t, srv.URL+"/api/feeds/hebdo/all")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, first, second)
	require.Equal(t, []string{"feed:hebdo:all:csv", "feed:hebdo:all:csv"}, cache.gets)
	require.Len(t, cache.data, 1)

	code, _, _ = get(t, srv.URL+"/api/feeds/weekly/all")
	require.Equal(t, http.StatusBadRequest, code)
	require.Len(t, cache.gets, 2)
}

func TestFeedStoreError(t *testing.T) {
	srv := newServer(t, &fakeSource{err: errors.New("down")})
	code, _, _ := get(t, srv.URL+"/api/feeds/trim/all")
	require.Equal(t, http.StatusInternalServerError, code)
}

func TestMetricsAndHealth(t *testing.T) {
	srv := newServer(t, sampleSource())
	get(t, srv.URL+"/api/feeds/hebdo/orange")
	code, _, body := get(t, srv.URL+"/api/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "anfr_feed_requests_total")
	code, _, _ = get(t, srv.URL+"/api/healthz")
	require.Equal(t, http.StatusOK, code)
}
