// 包 dedup：去除同一物理事件被重复描述的变更
package dedup

import (
	"anfr-diff/internal/classify"
	"anfr-diff/internal/diff"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/snapshot"
)

// 放宽连接时允许不同的唯一键维度
type dimension int

const (
	dimCoordinates dimension = iota
	dimSupport
	dimAddress
)

// 按优先级执行：迁址、站点编号变更、地址变更
var passes = []struct {
	dim    dimension
	action classify.Action
}{
	{dimCoordinates, classify.Relocated},
	{dimSupport, classify.IDChange},
	{dimAddress, classify.AddressChange},
}

func relaxed(k snapshot.Key, d dimension) snapshot.Key {
	switch d {
	case dimCoordinates:
		k.Coordonnees = ""
	case dimSupport:
		k.IDSupport = ""
	case dimAddress:
		k.Adresse = [4]string{}
	}
	return k
}

func differs(a, b snapshot.Key, d dimension) bool {
	switch d {
	case dimCoordinates:
		return a.Coordonnees != b.Coordonnees
	case dimSupport:
		return a.IDSupport != b.IDSupport
	case dimAddress:
		return a.Adresse != b.Adresse
	}
	return false
}

// ExactResult：放宽连接阶段的结果
type ExactResult struct {
	Changes   classify.Changes
	Synthetic []classify.Change
	Matched   map[classify.Action]int
}

// 文档注释：放宽连接去重
// 背景：新增与删除行在除一个维度外的全部键列上相同，视为同一事件；配对后移出原分区，合成一条携带两侧的变更（CHL/CHI/CHA）。
// 约束：每行最多参与一次匹配，先执行的维度优先。
func Exact(ch classify.Changes) ExactResult {
	added := append([]classify.Change(nil), ch.Added...)
	removed := append([]classify.Change(nil), ch.Removed...)
	res := ExactResult{Matched: make(map[classify.Action]int)}

	for _, pass := range passes {
		byKey := make(map[snapshot.Key][]int)
		for i, c := range removed {
			k := relaxed(c.Pair.Old.Key(), pass.dim)
			byKey[k] = append(byKey[k], i)
		}
		usedRemoved := make([]bool, len(removed))
		usedAdded := make([]bool, len(added))

		for ai, a := range added {
			ak := a.Pair.New.Key()
			cands := byKey[relaxed(ak, pass.dim)]
			for _, ri := range cands {
				if usedRemoved[ri] || !differs(ak, removed[ri].Pair.Old.Key(), pass.dim) {
					continue
				}
				usedRemoved[ri] = true
				usedAdded[ai] = true
				res.Synthetic = append(res.Synthetic, classify.Change{
					Action: pass.action,
					Pair:   diff.Pair{Old: removed[ri].Pair.Old, New: a.Pair.New},
				})
				res.Matched[pass.action]++
				break
			}
		}
		added = keep(added, usedAdded)
		removed = keep(removed, usedRemoved)
	}

	res.Changes = classify.Changes{Added: added, Removed: removed, Modified: ch.Modified}
	if len(res.Synthetic) > 0 {
		logger.L().Info("dedup_exact_ok",
			"relocated", res.Matched[classify.Relocated],
			"id_changed", res.Matched[classify.IDChange],
			"address_changed", res.Matched[classify.AddressChange])
	}
	return res
}

func keep(cs []classify.Change, used []bool) []classify.Change {
	out := cs[:0:0]
	for i, c := range cs {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}

// All：清理后的分区，随后为合成变更
func (r ExactResult) All() []classify.Change {
	return append(r.Changes.All(), r.Synthetic...)
}
