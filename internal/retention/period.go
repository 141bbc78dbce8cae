package retention

import (
	"fmt"
	"strings"
	"time"
)

// Period：运行所属的更新周期
type Period string

const (
	Weekly    Period = "hebdo"
	Monthly   Period = "mensu"
	Quarterly Period = "trim"
)

// Periods：按发布顺序列出全部周期
var Periods = []Period{Weekly, Monthly, Quarterly}

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Weekly, Monthly, Quarterly:
		return p, nil
	}
	return "", fmt.Errorf("unknown period type %q (want hebdo, mensu or trim)", s)
}

// TimestampLayout：运行时间戳的规范格式
const TimestampLayout = "02/01/2006 à 15:04:05"

func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }

func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), time.Local)
}

var frenchMonths = [...]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

func quarter(m time.Month) int { return (int(m)-1)/3 + 1 }

// Code：t 所在周期的编码，S##_YYYY（ISO 周）、MM_YYYY 或 T#_YYYY
func Code(t time.Time, p Period) string {
	switch p {
	case Weekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("S%02d_%d", w, y)
	case Monthly:
		return fmt.Sprintf("%02d_%d", int(t.Month()), t.Year())
	case Quarterly:
		return fmt.Sprintf("T%d_%d", quarter(t.Month()), t.Year())
	}
	return ""
}

// Label：写入历史文件的可读周期名称
func Label(t time.Time, p Period) string {
	switch p {
	case Weekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("Semaine %d - %d", w, y)
	case Monthly:
		return fmt.Sprintf("%s - %d", frenchMonths[t.Month()-1], t.Year())
	case Quarterly:
		return fmt.Sprintf("Trimestre %d - %d", quarter(t.Month()), t.Year())
	}
	return ""
}

// PublishPath：周期的相对发布路径
// 约束：月度路径使用两位年份
func PublishPath(t time.Time, p Period) string {
	switch p {
	case Monthly:
		return fmt.Sprintf("mensu/%02d_%02d", int(t.Month()), t.Year()%100)
	case Weekly, Quarterly:
		return string(p) + "/" + Code(t, p)
	}
	return ""
}

// previous：返回 t 所在周期的上一周期内的某一时刻
func previous(t time.Time, p Period) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	switch p {
	case Monthly:
		return first.AddDate(0, -1, 0)
	case Quarterly:
		qStart := time.Date(t.Year(), time.Month((quarter(t.Month())-1)*3+1), 1, 0, 0, 0, 0, t.Location())
		return qStart.AddDate(0, -3, 0)
	}
	return t.AddDate(0, 0, -7)
}
