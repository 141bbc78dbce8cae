package retention

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func stamp(ts time.Time) string { return ts.Format(fileTimeLayout) + "_observatoire.csv" }

func TestSelectWeeklyBoundaries(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.Local)

	newPath := touch(t, dir, stamp(now))
	atLower := touch(t, dir, stamp(now.Add(-31*24*time.Hour)))
	tooOld := touch(t, dir, stamp(now.Add(-31*24*time.Hour-time.Second)))
	atUpper := touch(t, dir, stamp(now.Add(-24*time.Hour)))
	tooYoung := touch(t, dir, stamp(now.Add(-time.Hour)))
	touch(t, dir, "notes.txt")

	s := &Selector{Dir: dir, HorizonDays: 31, MinAge: 24 * time.Hour, Now: func() time.Time { return now }}
	sel, err := s.Select(newPath, Weekly)
	require.NoError(t, err)
	require.Equal(t, atUpper, sel.Reference)
	require.Equal(t, []string{tooOld}, sel.Deleted)
	require.Equal(t, "15/03/2025 à 12:00:00", sel.Timestamp)

	require.FileExists(t, atLower)
	require.FileExists(t, tooYoung)
	require.NoFileExists(t, tooOld)

	// lower bound alone still qualifies
	require.NoError(t, os.Remove(atUpper))
	sel, err = s.Select(newPath, Weekly)
	require.NoError(t, err)
	require.Equal(t, atLower, sel.Reference)
	require.Empty(t, sel.Deleted)
}

// chdir switches the working directory for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestSelectWeeklyExcludesNewFileAcrossPathForms(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)
	rel := filepath.Join("files", "from_anfr")
	require.NoError(t, os.MkdirAll(rel, 0o755))
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.Local)

	absDir, err := filepath.Abs(rel)
	require.NoError(t, err)
	newAbs := touch(t, absDir, stamp(now.Add(-2*24*time.Hour)))
	want := filepath.Join(rel, stamp(now.Add(-9*24*time.Hour)))
	touch(t, absDir, filepath.Base(want))

	s := &Selector{Dir: rel, HorizonDays: 31, MinAge: 24 * time.Hour, Now: func() time.Time { return now }}
	sel, err := s.Select(newAbs, Weekly)
	require.NoError(t, err)
	require.Equal(t, want, sel.Reference)

	// a new file beyond the horizon is neither a candidate nor deleted
	stale := touch(t, absDir, stamp(now.Add(-40*24*time.Hour)))
	sel, err = s.Select(stale, Weekly)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(rel, filepath.Base(newAbs)), sel.Reference)
	require.FileExists(t, stale)
	require.Empty(t, sel.Deleted)

	// relative new path against an absolute directory
	require.NoError(t, os.Remove(stale))
	s.Dir = absDir
	sel, err = s.Select(filepath.Join(rel, filepath.Base(newAbs)), Weekly)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(absDir, filepath.Base(want)), sel.Reference)
}

func TestSelectWeeklyNoReference(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.Local)
	newPath := touch(t, dir, stamp(now))
	touch(t, dir, stamp(now.Add(-2*time.Hour)))

	s := &Selector{Dir: dir, HorizonDays: 31, MinAge: 24 * time.Hour, Now: func() time.Time { return now }}
	_, err := s.Select(newPath, Weekly)
	require.True(t, errors.Is(err, ErrReferenceNotFound))
}

func TestSelectWeeklyDeletionFailSoft(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.Local)
	newPath := touch(t, dir, stamp(now))
	stuck := touch(t, dir, stamp(now.Add(-60*24*time.Hour)))
	gone := touch(t, dir, "20240101000000_observatoire_4g.csv")
	ref := touch(t, dir, stamp(now.Add(-7*24*time.Hour)))

	s := &Selector{
		Dir: dir, HorizonDays: 31, MinAge: 24 * time.Hour,
		Now: func() time.Time { return now },
		Remove: func(p string) error {
			if p == stuck {
				return errors.New("permission denied")
			}
			return os.Remove(p)
		},
	}
	sel, err := s.Select(newPath, Weekly)
	require.NoError(t, err)
	require.Equal(t, ref, sel.Reference)
	require.Equal(t, []string{gone}, sel.Deleted)
	require.FileExists(t, stuck)

	// second run over the same listing picks the same reference
	again, err := s.Select(newPath, Weekly)
	require.NoError(t, err)
	require.Equal(t, sel.Reference, again.Reference)
}

func TestSelectMonthlyAndQuarterlyCrossYear(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 1, 5, 6, 0, 0, 0, time.Local)
	s := &Selector{Dir: dir, HorizonDays: 31, Now: func() time.Time { return now }}

	_, err := s.Select("new.csv", Monthly)
	require.True(t, errors.Is(err, ErrReferenceNotFound))

	monthly := touch(t, dir, "12_2024.csv")
	quarterly := touch(t, dir, "T4_2024.csv")

	sel, err := s.Select("new.csv", Monthly)
	require.NoError(t, err)
	require.Equal(t, monthly, sel.Reference)

	sel, err = s.Select("new.csv", Quarterly)
	require.NoError(t, err)
	require.Equal(t, quarterly, sel.Reference)

	now = time.Date(2025, 8, 20, 6, 0, 0, 0, time.Local)
	require.Equal(t, filepath.Join(dir, "T2_2025.csv"), ExpectedReference(dir, Quarterly, now))
	require.Equal(t, filepath.Join(dir, "07_2025.csv"), ExpectedReference(dir, Monthly, now))
}

func TestPeriodNames(t *testing.T) {
	d := time.Date(2024, 12, 30, 10, 0, 0, 0, time.UTC)
	require.Equal(t, "S01_2025", Code(d, Weekly))
	require.Equal(t, "12_2024", Code(d, Monthly))
	require.Equal(t, "T4_2024", Code(d, Quarterly))

	require.Equal(t, "Semaine 1 - 2025", Label(d, Weekly))
	require.Equal(t, "Décembre - 2024", Label(d, Monthly))
	require.Equal(t, "Trimestre 4 - 2024", Label(d, Quarterly))

	require.Equal(t, "hebdo/S01_2025", PublishPath(d, Weekly))
	require.Equal(t, "mensu/12_24", PublishPath(d, Monthly))
	require.Equal(t, "trim/T4_2024", PublishPath(d, Quarterly))

	_, err := ParsePeriod("daily")
	require.Error(t, err)
	p, err := ParsePeriod(" TRIM ")
	require.NoError(t, err)
	require.Equal(t, Quarterly, p)
}

func TestArchiveAndMarkers(t *testing.T) {
	snapDir := t.TempDir()
	outDir := t.TempDir()
	src := touch(t, snapDir, "20250203060000_observatoire.csv")
	at := time.Date(2025, 2, 4, 6, 0, 0, 0, time.Local)

	created, err := Archive(snapDir, src, at)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(snapDir, "02_2025.csv"), filepath.Join(snapDir, "T1_2025.csv")}, created)

	created, err = Archive(snapDir, src, at)
	require.NoError(t, err)
	require.Empty(t, created)

	require.NoError(t, WritePeriodMarkers(outDir, at))
	b, err := os.ReadFile(filepath.Join(outDir, "S06_2025.txt"))
	require.NoError(t, err)
	require.Equal(t, "04/02/2025 à 06:00:00", string(b))
	require.FileExists(t, filepath.Join(outDir, "02_2025.txt"))
	require.FileExists(t, filepath.Join(outDir, "T1_2025.txt"))
}

func TestRunRecordRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), RunRecordFile)
	rec := RunRecord{Timestamp: "04/02/2025 à 06:00:00", Reference: "/a/old.csv", New: "/a/new.csv"}
	require.NoError(t, WriteRunRecord(p, rec))
	got, err := ReadRunRecord(p)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	require.NoError(t, os.WriteFile(p, []byte("garbage\n"), 0o644))
	_, err = ReadRunRecord(p)
	require.Error(t, err)
}
