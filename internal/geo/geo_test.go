package geo

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCoordinates(t *testing.T) {
	p, err := ParseCoordinates("48.85, 2.35")
	require.NoError(t, err)
	require.InDelta(t, 48.85, p.Lat, 1e-9)
	require.InDelta(t, 2.35, p.Lon, 1e-9)

	for _, bad := range []string{"", "48.85", "a,b", "91,2", "48,181"} {
		_, err := ParseCoordinates(bad)
		require.Error(t, err, bad)
	}
}

func TestDistance(t *testing.T) {
	d := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 0.0003, Lon: 0.0004})
	require.InDelta(t, 0.0005, d, 1e-12)
}

func TestGridFindsAcrossCellBoundary(t *testing.T) {
	const side = 0.001
	g := NewGrid(side)
	a := Point{Lat: 48.8509999, Lon: 2.3509999}
	b := Point{Lat: 48.8510001, Lon: 2.3510001}
	far := Point{Lat: 48.86, Lon: 2.36}
	g.Insert(a, 0)
	g.Insert(b, 1)
	g.Insert(far, 2)

	require.NotEqual(t, CellOf(a, side), CellOf(b, side))
	near := g.Near(a)
	sort.Ints(near)
	require.Equal(t, []int{0, 1}, near)
}
