package record

import (
	"sort"
	"strconv"
	"strings"
)

var familyRank = map[string]int{
	"GSM":   1,
	"UMTS":  2,
	"LTE":   3,
	"5G NR": 4,
}

// techOrder：解析 "<族> <MHz>" 标签；未知族或无尾部频率时 ok 为 false
func techOrder(label string) (rank, freq int, ok bool) {
	label = strings.TrimSpace(label)
	i := strings.LastIndexByte(label, ' ')
	if i <= 0 {
		return 0, 0, false
	}
	rank, ok = familyRank[strings.TrimSpace(label[:i])]
	if !ok {
		return 0, 0, false
	}
	freq, err := strconv.Atoi(label[i+1:])
	if err != nil {
		return 0, 0, false
	}
	return rank, freq, true
}

// SortTechnologies：按族（GSM、UMTS、LTE、5G NR）再按频率升序排序
// 约束：格式异常的标签排在最后，保持相对顺序
func SortTechnologies(techs []string) {
	sort.SliceStable(techs, func(i, j int) bool {
		ri, fi, oki := techOrder(techs[i])
		rj, fj, okj := techOrder(techs[j])
		switch {
		case !oki:
			return false
		case !okj:
			return true
		case ri != rj:
			return ri < rj
		}
		return fi < fj
	})
}

// SortTechnologyList：排序以 ", " 分隔的列表
func SortTechnologyList(list string) string {
	parts := strings.Split(list, ", ")
	SortTechnologies(parts)
	return strings.Join(parts, ", ")
}
