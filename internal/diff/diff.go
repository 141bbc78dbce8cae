// 包 diff：按复合键全外连接两个快照并划分结果
package diff

import (
	"anfr-diff/internal/logger"
	"anfr-diff/internal/snapshot"
)

// Pair：一条外连接结果
// 背景：Old/New 显式标记来源快照，nil 表示该侧不存在此键
type Pair struct {
	Old *snapshot.Row
	New *snapshot.Row
}

func (p Pair) IsAdded() bool   { return p.Old == nil && p.New != nil }
func (p Pair) IsRemoved() bool { return p.New == nil && p.Old != nil }
func (p Pair) IsMatched() bool { return p.New != nil && p.Old != nil }

// Row：返回较新的一侧
func (p Pair) Row() snapshot.Row {
	if p.New != nil {
		return *p.New
	}
	return *p.Old
}

func (p Pair) Key() snapshot.Key { return p.Row().Key() }

// Result：连接结果的四个互不相交分区
type Result struct {
	Joined    []Pair
	Added     []Pair
	Removed   []Pair
	Modified  []Pair
	Unchanged []Pair
	// 两个快照均含开通日期时为 true
	ServiceDates bool
}

// 文档注释：全外连接新旧快照
// 背景：仅新侧存在为新增，仅旧侧存在为删除，两侧都有且状态不同为修改，其余为未变。
// 约束：同一快照内重复的键按出现顺序与另一侧逐一配对，任何行只落入一个分区。
func Compute(old, cur *snapshot.Table) Result {
	res := Result{ServiceDates: old.HasServiceDate && cur.HasServiceDate}

	byKey := make(map[snapshot.Key][]int, len(old.Rows))
	for i := range old.Rows {
		k := old.Rows[i].Key()
		byKey[k] = append(byKey[k], i)
	}
	used := make([]bool, len(old.Rows))

	res.Joined = make([]Pair, 0, len(cur.Rows))
	for i := range cur.Rows {
		n := &cur.Rows[i]
		p := Pair{New: n}
		k := n.Key()
		if idx := byKey[k]; len(idx) > 0 {
			p.Old = &old.Rows[idx[0]]
			used[idx[0]] = true
			byKey[k] = idx[1:]
		}
		res.Joined = append(res.Joined, p)
	}
	for i := range old.Rows {
		if !used[i] {
			res.Joined = append(res.Joined, Pair{Old: &old.Rows[i]})
		}
	}

	for _, p := range res.Joined {
		switch {
		case p.IsAdded():
			res.Added = append(res.Added, p)
		case p.IsRemoved():
			res.Removed = append(res.Removed, p)
		case changed(p, res.ServiceDates):
			res.Modified = append(res.Modified, p)
		default:
			res.Unchanged = append(res.Unchanged, p)
		}
	}
	logger.L().Info("diff_ok",
		"joined", len(res.Joined), "added", len(res.Added), "removed", len(res.Removed),
		"modified", len(res.Modified), "unchanged", len(res.Unchanged))
	return res
}

// changed：状态变化，或在有日期时两侧均为已批准但日期不同
func changed(p Pair, dates bool) bool {
	if p.Old.Statut != p.New.Statut {
		return true
	}
	return dates && p.Old.Statut == snapshot.StatusApproved && p.Old.DateService != p.New.DateService
}
