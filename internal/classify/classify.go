// 包 classify：将连接结果转换为语义动作代码
package classify

import (
	"anfr-diff/internal/diff"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/snapshot"
)

// Action：发布的变更代码之一
type Action string

const (
	Added         Action = "AJO"
	Removed       Action = "SUP"
	Activated     Action = "ALL"
	Extinguished  Action = "EXT"
	Reapproved    Action = "AAV"
	Relocated     Action = "CHL"
	AddressChange Action = "CHA"
	IDChange      Action = "CHI"
	Unknown       Action = "UNKNOWN"
)

// Actions：按发布顺序列出全部代码
var Actions = []Action{Added, Removed, Activated, Extinguished, Reapproved, Relocated, AddressChange, IDChange, Unknown}

func (a Action) Valid() bool {
	for _, x := range Actions {
		if x == a {
			return true
		}
	}
	return false
}

// 文档注释：返回一条连接结果的动作
// 背景：规则按优先级依次判断：新增（已开通则直接为 ALL）、删除、AAV、ALL、EXT，其余为 UNKNOWN。
// 约束：纯函数，只依赖两侧状态与开通日期。
func Classify(p diff.Pair) Action {
	switch {
	case p.IsAdded():
		if snapshot.IsActive(p.New.Statut) {
			return Activated
		}
		return Added
	case p.IsRemoved():
		return Removed
	case !p.IsMatched():
		return Unknown
	}
	oldS, newS := p.Old.Statut, p.New.Statut
	switch {
	case oldS == snapshot.StatusApproved && newS == snapshot.StatusApproved:
		if p.Old.DateService != p.New.DateService {
			return Reapproved
		}
	case oldS == snapshot.StatusApproved && snapshot.IsActive(newS):
		return Activated
	case snapshot.IsActive(oldS) && newS == snapshot.StatusApproved:
		return Extinguished
	}
	return Unknown
}

// Change：已分类的行及其来源连接结果
type Change struct {
	Action Action
	Pair   diff.Pair
}

// Row：发布使用的行，优先新侧
func (c Change) Row() snapshot.Row { return c.Pair.Row() }

// Changes：按来源分区分组的已分类行
type Changes struct {
	Added    []Change
	Removed  []Change
	Modified []Change
}

func (c Changes) Len() int { return len(c.Added) + len(c.Removed) + len(c.Modified) }

// All：按分区顺序返回全部变更
func (c Changes) All() []Change {
	out := make([]Change, 0, c.Len())
	out = append(out, c.Added...)
	out = append(out, c.Removed...)
	return append(out, c.Modified...)
}

// Partitions：对各分区分类
// 约束：无法分类的行保留为 UNKNOWN 并记录日志，不静默丢弃
func Partitions(res diff.Result) (Changes, int) {
	var out Changes
	unknown := 0
	conv := func(ps []diff.Pair) []Change {
		cs := make([]Change, 0, len(ps))
		for _, p := range ps {
			a := Classify(p)
			if a == Unknown {
				unknown++
				r := p.Row()
				var oldS string
				if p.Old != nil {
					oldS = p.Old.Statut
				}
				logger.L().Warn("classify_unknown", "id_support", r.IDSupport, "operateur", r.Operateur,
					"technologie", r.Technologie, "statut_old", oldS, "statut_new", r.Statut)
			}
			cs = append(cs, Change{Action: a, Pair: p})
		}
		return cs
	}
	out.Added = conv(res.Added)
	out.Removed = conv(res.Removed)
	out.Modified = conv(res.Modified)
	return out, unknown
}
