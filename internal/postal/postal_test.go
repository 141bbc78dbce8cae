package postal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParseFirstWins(t *testing.T) {
	m, err := Parse(strings.NewReader("75056;PARIS;75001\n75056;PARIS 2;75002\n1053;BOURG EN BRESSE;01000\nbad\n"), "mem")
	require.NoError(t, err)
	require.Len(t, m, 2)
	c, ok := m.Lookup("75056")
	require.True(t, ok)
	require.Equal(t, "75001 PARIS", c.Label())
	_, ok = m.Lookup("01053")
	require.True(t, ok)
}

func TestLoadLatin1AndMissing(t *testing.T) {
	enc, err := charmap.ISO8859_1.NewEncoder().String("29019;BREST;29200\n97411;SAINT-DENIS;97400\n01004;AMBÉRIEU-EN-BUGEY;01500\n")
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "cc_insee.csv")
	require.NoError(t, os.WriteFile(p, []byte(enc), 0o644))

	m, err := Load(p, "iso-8859-1")
	require.NoError(t, err)
	require.Equal(t, "AMBÉRIEU-EN-BUGEY", m["01004"].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), "utf-8")
	require.True(t, errors.Is(err, ErrLookupFile))
}

func TestChain(t *testing.T) {
	overrides := Map{"75056": {Name: "PARIS CENTRE", Postal: "75004"}}
	base := Map{"75056": {Name: "PARIS", Postal: "75001"}, "13055": {Name: "MARSEILLE", Postal: "13001"}}
	c := NewChain(nil, overrides, base)

	v, ok := c.Lookup("75056")
	require.True(t, ok)
	require.Equal(t, "PARIS CENTRE", v.Name)
	v, ok = c.Lookup("13055")
	require.True(t, ok)
	require.Equal(t, "MARSEILLE", v.Name)
	_, ok = c.Lookup("99999")
	require.False(t, ok)
}
