package enrich

import (
	"testing"

	"anfr-diff/internal/classify"
	"anfr-diff/internal/postal"
	"anfr-diff/internal/record"
	"anfr-diff/internal/snapshot"

	"github.com/stretchr/testify/require"
)

var whiteZone = []string{"LTE 700", "LTE 800", "UMTS 900"}

func TestConvInsee(t *testing.T) {
	require.Equal(t, InseeMiss, ConvInsee("99999", postal.Map{}))
	require.Equal(t, InseeMiss, ConvInsee("99999", nil))

	m := postal.Map{"01053": {Name: "BOURG-EN-BRESSE", Postal: "01000"}}
	require.Equal(t, "01000 BOURG-EN-BRESSE", ConvInsee("1053", m))
}

func TestAddress(t *testing.T) {
	e := New(postal.Map{"75056": {Name: "PARIS", Postal: "75001"}}, nil)
	got := e.Address(snapshot.Row{Adresse: [4]string{"Mairie", "1 Rue A", "", "BP 12"}, CodeInsee: "75056"})
	require.Equal(t, "1 Rue A BP 12 (Mairie) 75001 PARIS", got)

	got = e.Address(snapshot.Row{CodeInsee: "2A004"})
	require.Equal(t, InseeMiss, got)
	require.Equal(t, 1, e.Stats().InseeMisses)
}

func row(id, op, tech, status string) snapshot.Row {
	return snapshot.Row{IDSupport: id, Operateur: op, Technologie: tech, Statut: status}
}

func TestIndexFlags(t *testing.T) {
	old := &snapshot.Table{Rows: []snapshot.Row{
		row("1", "SFR", "UMTS 900", snapshot.StatusInService),
		row("2", "SFR", "LTE 800", snapshot.StatusApproved),
		row("2", "SFR", "LTE 700", snapshot.StatusApproved),
		row("3", "SFR", "LTE 800", snapshot.StatusApproved),
		row("3", "SFR", "LTE 2600", snapshot.StatusInService),
	}}
	cur := &snapshot.Table{Rows: []snapshot.Row{
		row("1", "SFR", "UMTS 900", snapshot.StatusInService),
		row("2", "SFR", "LTE 800", snapshot.StatusInService),
		row("4", "SFR", "LTE 800", snapshot.StatusApproved),
		row("4", "SFR", "5G NR 3500", snapshot.StatusApproved),
		row("1", "ORANGE", "LTE 800", snapshot.StatusApproved),
	}}
	idx := BuildIndex(old, cur, whiteZone)
	require.Equal(t, 5, idx.Len())

	require.Equal(t, Flags{IsZB: true, IsNew: false}, idx.Flags(snapshot.SupportKey{IDSupport: "1", Operateur: "SFR"}))
	require.Equal(t, Flags{IsZB: true, IsNew: true}, idx.Flags(snapshot.SupportKey{IDSupport: "2", Operateur: "SFR"}))
	require.Equal(t, Flags{IsZB: false, IsNew: false}, idx.Flags(snapshot.SupportKey{IDSupport: "3", Operateur: "SFR"}))
	require.Equal(t, Flags{IsZB: false, IsNew: true}, idx.Flags(snapshot.SupportKey{IDSupport: "4", Operateur: "SFR"}))
	require.Equal(t, Flags{IsZB: true, IsNew: true}, idx.Flags(snapshot.SupportKey{IDSupport: "1", Operateur: "ORANGE"}))
	require.Equal(t, Flags{IsNew: true}, idx.Flags(snapshot.SupportKey{IDSupport: "9", Operateur: "SFR"}))
}

func TestApplyDecodesAndFlags(t *testing.T) {
	old := &snapshot.Table{}
	cur := &snapshot.Table{Rows: []snapshot.Row{row("1", "FREE MOBILE", "UMTS 900", snapshot.StatusInService)}}
	e := New(postal.Map{}, BuildIndex(old, cur, whiteZone))

	recs := []record.ActionRecord{
		{IDSupport: "1", Operateur: "FREE MOBILE", Action: classify.Activated, TypeSupport: "12", ProprietaireSupport: "22"},
		{IDSupport: "1", Operateur: "FREE MOBILE", Action: classify.Added, TypeSupport: "999", ProprietaireSupport: ""},
	}
	e.Apply(recs)
	require.Equal(t, "Pylône haubané", recs[0].TypeSupport)
	require.Equal(t, "Free Mobile", recs[0].ProprietaireSupport)
	require.True(t, recs[0].IsZB)
	require.True(t, recs[0].IsNew)
	require.Equal(t, UnknownLabel, recs[1].TypeSupport)
	require.Equal(t, UnknownLabel, recs[1].ProprietaireSupport)
	require.Equal(t, 1, e.Stats().UnknownCodes["type_support"])
	require.Equal(t, 1, e.Stats().UnknownCodes["proprietaire_support"])
}

func TestValidateCodes(t *testing.T) {
	e := New(nil, nil)
	tbl := &snapshot.Table{Rows: []snapshot.Row{
		{TypeSupport: "8", ProprietaireSupport: "15"},
		{TypeSupport: "77", ProprietaireSupport: "015"},
		{TypeSupport: "77.0", ProprietaireSupport: ""},
	}}
	got := e.ValidateCodes(tbl)
	require.Equal(t, map[string][]string{"type_support": {"77"}}, got)
}

func TestValidateCodesScansOldSnapshot(t *testing.T) {
	e := New(nil, nil)
	old := &snapshot.Table{Path: "old.csv", Rows: []snapshot.Row{
		{TypeSupport: "99", ProprietaireSupport: "404"},
		{TypeSupport: "8", ProprietaireSupport: "15"},
	}}
	cur := &snapshot.Table{Path: "new.csv", Rows: []snapshot.Row{
		{TypeSupport: "77", ProprietaireSupport: "15"},
	}}
	got := e.ValidateCodes(old, cur)
	require.Equal(t, map[string][]string{
		"type_support":         {"77", "99"},
		"proprietaire_support": {"404"},
	}, got)
	require.Empty(t, e.ValidateCodes(nil, &snapshot.Table{}))
}

func TestDecodeNormalizesCode(t *testing.T) {
	l, ok := SupportTypes.Decode("08")
	require.True(t, ok)
	require.Equal(t, "Pylône", l)
	l, ok = SupportTypes.Decode("0")
	require.True(t, ok)
	require.Equal(t, "Sans nature", l)
	_, ok = SupportTypes.Decode("")
	require.False(t, ok)
}
