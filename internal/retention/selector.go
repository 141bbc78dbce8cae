// 包 retention：为差异运行选择参考快照，并清理过期快照
package retention

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"anfr-diff/internal/logger"
)

// ErrReferenceNotFound：按周期规则找不到参考快照
var ErrReferenceNotFound = errors.New("reference snapshot not found")

// 快照文件名前缀的创建时间格式
const fileTimeLayout = "20060102150405"

// Selector：扫描单个快照目录
// 约束：Now 与 Remove 可注入，便于测试固定时钟与模拟删除失败
type Selector struct {
	Dir         string
	HorizonDays int
	MinAge      time.Duration
	Now         func() time.Time
	Remove      func(path string) error
}

// Selection：一次成功选择的结果
type Selection struct {
	Reference string
	New       string
	RunAt     time.Time
	Timestamp string
	Deleted   []string
}

func (s *Selector) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Selector) remove(path string) error {
	if s.Remove != nil {
		return s.Remove(path)
	}
	return os.Remove(path)
}

// FileTime：解析文件名首个 '_' 之前的时间戳
func FileTime(name string, loc *time.Location) (time.Time, bool) {
	prefix, _, _ := strings.Cut(name, "_")
	ts, err := time.ParseInLocation(fileTimeLayout, prefix, loc)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// 文档注释：按周期类型选择参考快照
// 背景：hebdo 在保留窗口内取年龄最小且超过 MinAge 的文件，同时删除窗口外文件；mensu/trim 要求上一周期的归档文件存在。
// 约束：新快照自身既不参与候选也不会被删除；删除失败仅记录日志。
func (s *Selector) Select(newPath string, p Period) (Selection, error) {
	now := s.now()
	sel := Selection{New: newPath, RunAt: now, Timestamp: FormatTimestamp(now)}
	var err error
	switch p {
	case Weekly:
		sel.Reference, sel.Deleted, err = s.selectWeekly(newPath, now)
	case Monthly, Quarterly:
		sel.Reference, err = s.selectPrevious(p, now)
	default:
		err = fmt.Errorf("unknown period type %q", p)
	}
	if err != nil {
		return Selection{}, err
	}
	logger.L().Info("retention_reference", "period", string(p), "reference", sel.Reference, "new", newPath, "deleted", len(sel.Deleted))
	return sel, nil
}

func (s *Selector) selectWeekly(newPath string, now time.Time) (string, []string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", nil, fmt.Errorf("read snapshot dir %s: %w", s.Dir, err)
	}
	lower := now.Add(-time.Duration(s.HorizonDays) * 24 * time.Hour)
	upper := now.Add(-s.MinAge)
	isNew := sameFileAs(newPath)

	type candidate struct {
		path string
		age  time.Duration
	}
	var (
		best    *candidate
		deleted []string
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := FileTime(e.Name(), now.Location())
		if !ok {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		if isNew(path) {
			continue
		}
		if ts.Before(lower) {
			if err := s.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.L().Warn("retention_delete_error", "path", path, "err", err)
				continue
			}
			logger.L().Info("retention_delete_ok", "path", path)
			deleted = append(deleted, path)
			continue
		}
		if ts.After(upper) {
			continue
		}
		c := candidate{path: path, age: now.Sub(ts)}
		if best == nil || c.age < best.age || (c.age == best.age && c.path < best.path) {
			best = &c
		}
	}
	sort.Strings(deleted)
	if best == nil {
		return "", deleted, fmt.Errorf("%w: no snapshot in %s between %s and %s",
			ErrReferenceNotFound, s.Dir, lower.Format(time.RFC3339), upper.Format(time.RFC3339))
	}
	return best.path, deleted, nil
}

// sameFileAs：返回判断 path 是否与 target 为同一文件的函数
// 约束：Dir 与 -new 可能一个为相对路径、一个为绝对路径，单纯字符串比较会误判；依次比较清洗后路径、绝对路径与 os.SameFile。
func sameFileAs(target string) func(path string) bool {
	clean := filepath.Clean(target)
	abs, absErr := filepath.Abs(target)
	info, statErr := os.Stat(target)
	return func(path string) bool {
		if filepath.Clean(path) == clean {
			return true
		}
		if absErr == nil {
			if p, err := filepath.Abs(path); err == nil && p == abs {
				return true
			}
		}
		if statErr != nil {
			return false
		}
		fi, err := os.Stat(path)
		return err == nil && os.SameFile(info, fi)
	}
}

// ExpectedReference：月度/季度运行对比的归档文件路径
func ExpectedReference(dir string, p Period, now time.Time) string {
	return filepath.Join(dir, Code(previous(now, p), p)+".csv")
}

func (s *Selector) selectPrevious(p Period, now time.Time) (string, error) {
	path := ExpectedReference(s.Dir, p, now)
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrReferenceNotFound, path)
	}
	return path, nil
}
