package enrich

import "anfr-diff/internal/snapshot"

// Flags：随每条记录发布的站点标记
type Flags struct {
	IsZB  bool
	IsNew bool
}

type siteState struct {
	techs          map[string]struct{}
	inOld          bool
	oldAllApproved bool
}

// Index：两份快照中出现过的每个 (站点, 运营商) 的标记
// 约束：每次运行构建一次，之后只读
type Index struct {
	flags map[snapshot.SupportKey]Flags
}

// 文档注释：构建站点标记索引
// 背景：扫描两份完整快照。若某对出现过的全部技术都属于 whiteZone，则为白区；旧快照中无记录或仅有已批准项目时，则为新站点。
func BuildIndex(old, cur *snapshot.Table, whiteZone []string) *Index {
	wz := make(map[string]struct{}, len(whiteZone))
	for _, t := range whiteZone {
		wz[t] = struct{}{}
	}
	states := make(map[snapshot.SupportKey]*siteState)
	get := func(k snapshot.SupportKey) *siteState {
		s, ok := states[k]
		if !ok {
			s = &siteState{techs: make(map[string]struct{}), oldAllApproved: true}
			states[k] = s
		}
		return s
	}
	if old != nil {
		for i := range old.Rows {
			r := &old.Rows[i]
			s := get(r.SupportKey())
			s.techs[r.Technologie] = struct{}{}
			s.inOld = true
			if r.Statut != snapshot.StatusApproved {
				s.oldAllApproved = false
			}
		}
	}
	if cur != nil {
		for i := range cur.Rows {
			r := &cur.Rows[i]
			get(r.SupportKey()).techs[r.Technologie] = struct{}{}
		}
	}

	idx := &Index{flags: make(map[snapshot.SupportKey]Flags, len(states))}
	for k, s := range states {
		zb := len(s.techs) > 0
		for t := range s.techs {
			if _, ok := wz[t]; !ok {
				zb = false
				break
			}
		}
		idx.flags[k] = Flags{IsZB: zb, IsNew: !s.inOld || s.oldAllApproved}
	}
	return idx
}

// Flags：返回标记；未出现过的组合视为新站点且非白区
func (x *Index) Flags(k snapshot.SupportKey) Flags {
	if f, ok := x.flags[k]; ok {
		return f
	}
	return Flags{IsNew: true}
}

func (x *Index) Len() int { return len(x.flags) }
