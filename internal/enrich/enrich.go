// 包 enrich：补全动作记录的发布属性
// 包括地址、支撑结构解码以及白区与新站点标记
package enrich

import (
	"strings"

	"anfr-diff/internal/logger"
	"anfr-diff/internal/postal"
	"anfr-diff/internal/record"
	"anfr-diff/internal/snapshot"
)

// InseeMiss：无法解析的 INSEE 码在地址中的占位标记
const InseeMiss = "00404 ERR CONV INSEE"

// ConvInsee：返回 "邮编 市镇名"，无法解析时返回 InseeMiss
func ConvInsee(code string, l postal.Lookuper) string {
	if l == nil {
		return InseeMiss
	}
	if c, ok := l.Lookup(snapshot.PadInsee(strings.TrimSpace(code))); ok {
		return c.Label()
	}
	return InseeMiss
}

// Stats：补全过程中的替换计数
type Stats struct {
	InseeMisses  int
	UnknownCodes map[string]int
}

// Enricher：单次运行的只读查询上下文
type Enricher struct {
	Postal       postal.Lookuper
	SupportTypes CodeTable
	Owners       CodeTable
	Index        *Index

	stats Stats
}

func New(lookup postal.Lookuper, idx *Index) *Enricher {
	return &Enricher{Postal: lookup, SupportTypes: SupportTypes, Owners: Owners, Index: idx}
}

// Address：拼接 adresse1..3、括号内地名与市镇标签
func (e *Enricher) Address(r snapshot.Row) string {
	parts := make([]string, 0, 5)
	for _, p := range r.Adresse[1:] {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if r.Adresse[0] != "" {
		parts = append(parts, "("+r.Adresse[0]+")")
	}
	commune := ConvInsee(r.CodeInsee, e.Postal)
	if commune == InseeMiss {
		e.stats.InseeMisses++
		logger.L().Debug("enrich_insee_miss", "code_insee", r.CodeInsee, "id_support", r.IDSupport)
	}
	return strings.TrimSpace(strings.Join(append(parts, commune), " "))
}

// Apply：原地解码支撑结构信息并设置站点标记
func (e *Enricher) Apply(recs []record.ActionRecord) {
	for i := range recs {
		r := &recs[i]
		r.TypeSupport = e.decode(e.SupportTypes, r.TypeSupport)
		r.ProprietaireSupport = e.decode(e.Owners, r.ProprietaireSupport)
		if e.Index != nil {
			f := e.Index.Flags(r.SupportKey())
			r.IsZB, r.IsNew = f.IsZB, f.IsNew
		}
	}
}

func (e *Enricher) decode(t CodeTable, code string) string {
	l, ok := t.Decode(code)
	if !ok {
		if e.stats.UnknownCodes == nil {
			e.stats.UnknownCodes = make(map[string]int)
		}
		e.stats.UnknownCodes[t.Name]++
	}
	return l
}

// Stats：返回目前的替换计数
func (e *Enricher) Stats() Stats { return e.stats }

// 文档注释：校验支撑结构编码
// 背景：删除记录使用旧快照一侧的编码解码，因此新旧两份快照都要扫描；nil 表跳过。
// 返回：每张编码表缺失的编码，存在缺失时记录警告。
func (e *Enricher) ValidateCodes(tables ...*snapshot.Table) map[string][]string {
	var (
		types, owners []string
		paths         []string
	)
	for _, t := range tables {
		if t == nil {
			continue
		}
		paths = append(paths, t.Path)
		for i := range t.Rows {
			types = append(types, t.Rows[i].TypeSupport)
			owners = append(owners, t.Rows[i].ProprietaireSupport)
		}
	}
	out := make(map[string][]string)
	for _, c := range []struct {
		table CodeTable
		codes []string
	}{{e.SupportTypes, types}, {e.Owners, owners}} {
		if missing := c.table.Unmapped(c.codes); len(missing) > 0 {
			out[c.table.Name] = missing
			logger.L().Warn("enrich_unmapped_codes", "table", c.table.Name, "codes", strings.Join(missing, ","), "paths", strings.Join(paths, ","))
		}
	}
	return out
}
