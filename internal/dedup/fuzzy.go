package dedup

import (
	"strings"

	"anfr-diff/internal/geo"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/record"
)

// FuzzyOptions：跨动作模糊去重的相似度阈值
type FuzzyOptions struct {
	MaxDistance          float64
	MinAddressSimilarity float64
}

// DefaultFuzzyOptions：沿用历史调参
var DefaultFuzzyOptions = FuzzyOptions{MaxDistance: 0.001, MinAddressSimilarity: 0.5}

type fuzzyGroup struct {
	op    string
	techs string
}

// 文档注释：跨动作模糊去重
// 背景：同运营商、同技术列表的两条记录，若距离不超过 MaxDistance、地址相似度达到阈值且动作不同，则两条均丢弃。
// 约束：候选按边长等于 MaxDistance 的网格分桶并扫描九宫格，阈值内的配对不会因跨格漏比；坐标无法解析的记录不参与匹配。
// 返回：保留的记录与丢弃数量。
func Fuzzy(recs []record.ActionRecord, opts FuzzyOptions) ([]record.ActionRecord, int) {
	if opts.MaxDistance <= 0 || len(recs) < 2 {
		return recs, 0
	}
	type item struct {
		idx    int
		pt     geo.Point
		tokens map[string]struct{}
	}
	groups := make(map[fuzzyGroup][]item)
	var order []fuzzyGroup
	for i, r := range recs {
		pt, err := geo.ParseCoordinates(r.Coordonnees)
		if err != nil {
			continue
		}
		g := fuzzyGroup{op: r.Operateur, techs: r.Technologie()}
		if _, ok := groups[g]; !ok {
			order = append(order, g)
		}
		groups[g] = append(groups[g], item{idx: i, pt: pt, tokens: Tokens(r.Adresse)})
	}

	drop := make([]bool, len(recs))
	for _, g := range order {
		items := groups[g]
		if len(items) < 2 {
			continue
		}
		grid := geo.NewGrid(opts.MaxDistance)
		for j, it := range items {
			grid.Insert(it.pt, j)
		}
		for j, a := range items {
			for _, k := range grid.Near(a.pt) {
				if k <= j {
					continue
				}
				b := items[k]
				if recs[a.idx].Action == recs[b.idx].Action {
					continue
				}
				if geo.Distance(a.pt, b.pt) > opts.MaxDistance {
					continue
				}
				if Jaccard(a.tokens, b.tokens) < opts.MinAddressSimilarity {
					continue
				}
				drop[a.idx] = true
				drop[b.idx] = true
				logger.L().Debug("dedup_fuzzy_pair",
					"operateur", g.op, "technologie", g.techs,
					"a", recs[a.idx].IDSupport, "a_action", string(recs[a.idx].Action),
					"b", recs[b.idx].IDSupport, "b_action", string(recs[b.idx].Action))
			}
		}
	}
	return filter(recs, drop)
}

// DropDuplicateTriples：(站点, 运营商, 技术列表) 出现多次时全部删除，一条不留
func DropDuplicateTriples(recs []record.ActionRecord) ([]record.ActionRecord, int) {
	type triple struct{ id, op, tech string }
	count := make(map[triple]int, len(recs))
	for _, r := range recs {
		count[triple{r.IDSupport, r.Operateur, r.Technologie()}]++
	}
	drop := make([]bool, len(recs))
	for i, r := range recs {
		drop[i] = count[triple{r.IDSupport, r.Operateur, r.Technologie()}] > 1
	}
	return filter(recs, drop)
}

func filter(recs []record.ActionRecord, drop []bool) ([]record.ActionRecord, int) {
	out := make([]record.ActionRecord, 0, len(recs))
	n := 0
	for i, r := range recs {
		if drop[i] {
			n++
			continue
		}
		out = append(out, r)
	}
	return out, n
}

// Tokens：按空白切分地址并转小写
func Tokens(s string) map[string]struct{} {
	f := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(f))
	for _, t := range f {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard：|a∩b| / |a∪b|；两个空集记为 0
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
