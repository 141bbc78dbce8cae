package store

import (
	"context"
	"os"
	"testing"
	"time"

	"anfr-diff/internal/classify"
	"anfr-diff/internal/feeds"
	"anfr-diff/internal/migrate"
	"anfr-diff/internal/record"
	"anfr-diff/internal/utils"

	"github.com/stretchr/testify/require"
)

// openTestStore needs a scratch database reachable through the PG_* variables.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("PG_HOST") == "" {
		t.Skip("PG_HOST not set")
	}
	db, err := utils.OpenPostgresFromEnv()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, migrate.EnsureSchema(ctx, db))
	_, err = db.ExecContext(ctx, `DELETE FROM _anfr_runs WHERE period_type LIKE 'test_%'`)
	require.NoError(t, err)
	st := AttachDB(db)
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM _anfr_runs WHERE period_type LIKE 'test_%'`)
		_ = st.Close()
	})
	return st
}

func TestStoreRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 2, 4, 6, 0, 0, 0, time.UTC)

	recs := []record.ActionRecord{
		{IDSupport: "1", Operateur: "SFR", Action: classify.Relocated, Technologies: []string{"GSM 900", "LTE 800"}, IsZB: true},
		{IDSupport: "2", Operateur: "ORANGE", Action: classify.Added, Technologies: []string{"5G NR 3500"}, IsNew: true},
	}
	run := Run{Period: "test_hebdo", PeriodCode: "S06_2025", RunAt: at, Timestamp: "04/02/2025 à 06:00:00", Reference: "a.csv", New: "b.csv"}
	id, err := st.SaveRun(ctx, run, recs)
	require.NoError(t, err)

	// saving the same run again replaces it
	id2, err := st.SaveRun(ctx, run, recs)
	require.NoError(t, err)
	require.NotEqual(t, id, id2)

	latest, err := st.LatestRun(ctx, "test_hebdo")
	require.NoError(t, err)
	require.Equal(t, id2, latest.ID)
	require.Equal(t, 2, latest.Records)

	sfr, err := st.ListActions(ctx, id2, "sfr")
	require.NoError(t, err)
	require.Len(t, sfr, 1)
	require.Equal(t, recs[0].Technologies, sfr[0].Technologies)
	require.True(t, sfr[0].IsZB)

	all, err := st.ListActions(ctx, id2, feeds.All)
	require.NoError(t, err)
	require.Len(t, all, 2)

	for i := 1; i <= 3; i++ {
		run.RunAt = at.AddDate(0, 0, 7*i)
		_, err := st.SaveRun(ctx, run, nil)
		require.NoError(t, err)
	}
	n, err := st.PruneRuns(ctx, "test_hebdo", 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	runs, err := st.ListRuns(ctx, "test_hebdo", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	_, err = st.LatestRun(ctx, "test_none")
	require.ErrorIs(t, err, ErrNotFound)
}
