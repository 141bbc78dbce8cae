// 包 feeds：写出汇总表与按运营商分组的变更表
package feeds

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"anfr-diff/internal/classify"
	"anfr-diff/internal/record"
)

// Group：一起发布的运营商集合
type Group struct {
	Name      string
	File      string
	Operators []string
}

// All：包含全部记录的伪分组
const All = "all"

// 汇总表
const IndexFile = "index.csv"

// Groups：固定运营商分组；海外子公司归入母公司
var Groups = []Group{
	{Name: "bouygues", File: "bouygues.csv", Operators: []string{"BOUYGUES TELECOM"}},
	{Name: "free", File: "free.csv", Operators: []string{"FREE MOBILE", "TELCO OI"}},
	{Name: "orange", File: "orange.csv", Operators: []string{"ORANGE"}},
	{Name: "sfr", File: "sfr.csv", Operators: []string{"SFR", "SRR"}},
}

// GroupOf：返回运营商所属分组，不属于任何分组时返回 ""
func GroupOf(operator string) string {
	for _, g := range Groups {
		for _, op := range g.Operators {
			if op == operator {
				return g.Name
			}
		}
	}
	return ""
}

// ValidGroup：name 是否为 All 或已知分组
func ValidGroup(name string) bool {
	if name == All {
		return true
	}
	for _, g := range Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Filter：保留某分组的记录；All 时全部保留
func Filter(recs []record.ActionRecord, group string) []record.ActionRecord {
	if group == All {
		return recs
	}
	out := make([]record.ActionRecord, 0)
	for _, r := range recs {
		if GroupOf(r.Operateur) == group {
			out = append(out, r)
		}
	}
	return out
}

// Header：发布列顺序
var Header = []string{
	"id_support", "operateur", "action", "technologie", "adresse", "code_insee", "coordonnees",
	"type_support", "hauteur_support", "proprietaire_support", "is_zb", "is_new",
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// WriteCSV：按 Header 编码记录
func WriteCSV(w io.Writer, recs []record.ActionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{
			r.IDSupport, r.Operateur, string(r.Action), r.Technologie(), r.Adresse, r.CodeInsee, r.Coordonnees,
			r.TypeSupport, r.HauteurSupport, r.ProprietaireSupport, formatBool(r.IsZB), formatBool(r.IsNew),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV：解码 WriteCSV 写出的表
func ReadCSV(r io.Reader) ([]record.ActionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for i, h := range Header {
		if strings.TrimPrefix(head[i], "\ufeff") != h {
			return nil, fmt.Errorf("unexpected column %d: %q (want %q)", i, head[i], h)
		}
	}
	var out []record.ActionRecord
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		a := classify.Action(rec[2])
		if !a.Valid() {
			return nil, fmt.Errorf("line %d: unknown action %q", len(out)+2, rec[2])
		}
		zb, err := parseBool(rec[10])
		if err != nil {
			return nil, fmt.Errorf("line %d: is_zb: %w", len(out)+2, err)
		}
		isNew, err := parseBool(rec[11])
		if err != nil {
			return nil, fmt.Errorf("line %d: is_new: %w", len(out)+2, err)
		}
		var techs []string
		if rec[3] != "" {
			techs = strings.Split(rec[3], ", ")
		}
		out = append(out, record.ActionRecord{
			IDSupport: rec[0], Operateur: rec[1], Action: a, Technologies: techs,
			Adresse: rec[4], CodeInsee: rec[5], Coordonnees: rec[6],
			TypeSupport: rec[7], HauteurSupport: rec[8], ProprietaireSupport: rec[9],
			IsZB: zb, IsNew: isNew,
		})
	}
	return out, nil
}
