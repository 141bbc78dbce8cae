package diff

import (
	"testing"

	"anfr-diff/internal/snapshot"

	"github.com/stretchr/testify/require"
)

func row(op, sup, tech, status string) snapshot.Row {
	return snapshot.Row{Operateur: op, IDSupport: sup, Technologie: tech, CodeInsee: "75056", Coordonnees: "48.8,2.3", Statut: status}
}

func TestComputePartitions(t *testing.T) {
	old := &snapshot.Table{Rows: []snapshot.Row{
		row("SFR", "1", "LTE 800", snapshot.StatusApproved),  // activated
		row("SFR", "2", "LTE 800", snapshot.StatusInService), // removed
		row("SFR", "3", "LTE 800", snapshot.StatusInService), // unchanged
		row("SFR", "5", "GSM 900", snapshot.StatusInService), // duplicate key, first copy matched
		row("SFR", "5", "GSM 900", snapshot.StatusInService), // duplicate key, second copy removed
	}}
	cur := &snapshot.Table{Rows: []snapshot.Row{
		row("SFR", "1", "LTE 800", snapshot.StatusInService),
		row("SFR", "3", "LTE 800", snapshot.StatusInService),
		row("SFR", "4", "LTE 800", snapshot.StatusApproved),
		row("SFR", "5", "GSM 900", snapshot.StatusInService),
	}}
	res := Compute(old, cur)

	require.Len(t, res.Joined, 6)
	require.Len(t, res.Added, 1)
	require.Equal(t, "4", res.Added[0].New.IDSupport)
	require.Len(t, res.Removed, 2)
	require.Len(t, res.Modified, 1)
	require.Equal(t, "1", res.Modified[0].Row().IDSupport)
	require.Len(t, res.Unchanged, 2)

	total := len(res.Added) + len(res.Removed) + len(res.Modified) + len(res.Unchanged)
	require.Equal(t, len(res.Joined), total)

	seen := map[*snapshot.Row]int{}
	for _, part := range [][]Pair{res.Added, res.Removed, res.Modified, res.Unchanged} {
		for _, p := range part {
			for _, r := range []*snapshot.Row{p.Old, p.New} {
				if r != nil {
					seen[r]++
				}
			}
		}
	}
	for r, n := range seen {
		require.Equal(t, 1, n, "row %+v appears in more than one partition", *r)
	}
	require.Len(t, seen, len(old.Rows)+len(cur.Rows))
}

func TestComputeKeyIsExact(t *testing.T) {
	a := row("SFR", "1", "LTE 800", snapshot.StatusInService)
	b := row("sfr", "1", "LTE 800", snapshot.StatusInService)
	res := Compute(&snapshot.Table{Rows: []snapshot.Row{a}}, &snapshot.Table{Rows: []snapshot.Row{b}})
	require.Len(t, res.Added, 1)
	require.Len(t, res.Removed, 1)
}

func TestComputeServiceDateAmendment(t *testing.T) {
	o := row("ORANGE", "9", "5G NR 3500", snapshot.StatusApproved)
	o.DateService = "2024-01-01"
	n := o
	n.DateService = "2024-06-01"

	withDates := Compute(
		&snapshot.Table{Rows: []snapshot.Row{o}, HasServiceDate: true},
		&snapshot.Table{Rows: []snapshot.Row{n}, HasServiceDate: true})
	require.Len(t, withDates.Modified, 1)

	without := Compute(&snapshot.Table{Rows: []snapshot.Row{o}}, &snapshot.Table{Rows: []snapshot.Row{n}})
	require.Empty(t, without.Modified)
	require.Len(t, without.Unchanged, 1)
}
