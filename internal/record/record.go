// 包 record：将已分类变更聚合为发布的 ActionRecord
package record

import (
	"sort"
	"strings"

	"anfr-diff/internal/classify"
	"anfr-diff/internal/snapshot"
)

// ActionRecord：一行输出，汇总同一次运行中同站点、同运营商、同动作的全部技术
type ActionRecord struct {
	IDSupport    string
	Operateur    string
	Action       classify.Action
	Technologies []string
	Adresse      string
	CodeInsee    string
	Coordonnees  string

	TypeSupport         string
	HauteurSupport      string
	ProprietaireSupport string

	IsZB  bool
	IsNew bool
}

// Technologie：以 ", " 连接的技术列表
func (r ActionRecord) Technologie() string { return strings.Join(r.Technologies, ", ") }

func (r ActionRecord) SupportKey() snapshot.SupportKey {
	return snapshot.SupportKey{IDSupport: r.IDSupport, Operateur: r.Operateur}
}

type groupKey struct {
	id     string
	op     string
	action classify.Action
}

// AddressFunc：生成行的发布地址
type AddressFunc func(snapshot.Row) string

// 文档注释：按 (站点, 运营商, 动作) 聚合变更
// 背景：地址、INSEE 码、坐标与支撑结构信息取自组内第一条变更；技术列表按固定族序排序。
// 返回：按站点、运营商、动作排序的记录。
func Aggregate(changes []classify.Change, address AddressFunc) []ActionRecord {
	idx := make(map[groupKey]int)
	var out []ActionRecord
	for _, c := range changes {
		row := c.Row()
		k := groupKey{id: row.IDSupport, op: row.Operateur, action: c.Action}
		if i, ok := idx[k]; ok {
			out[i].Technologies = append(out[i].Technologies, row.Technologie)
			continue
		}
		rec := ActionRecord{
			IDSupport:           row.IDSupport,
			Operateur:           row.Operateur,
			Action:              c.Action,
			Technologies:        []string{row.Technologie},
			CodeInsee:           row.CodeInsee,
			Coordonnees:         row.Coordonnees,
			TypeSupport:         row.TypeSupport,
			HauteurSupport:      row.HauteurSupport,
			ProprietaireSupport: row.ProprietaireSupport,
		}
		if address != nil {
			rec.Adresse = address(row)
		}
		idx[k] = len(out)
		out = append(out, rec)
	}
	for i := range out {
		SortTechnologies(out[i].Technologies)
	}
	Sort(out)
	return out
}

// Sort：按站点编号、运营商、动作排序
func Sort(recs []ActionRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.IDSupport != b.IDSupport {
			return a.IDSupport < b.IDSupport
		}
		if a.Operateur != b.Operateur {
			return a.Operateur < b.Operateur
		}
		return a.Action < b.Action
	})
}
