// 包 history：维护已发布周期列表 history.csv
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"anfr-diff/internal/logger"
	"anfr-diff/internal/retention"
)

// Entry：history.csv 的一行
type Entry struct {
	Type  string
	Label string
	Path  string
}

var header = []string{"type", "label", "path"}

// Read：读取全部条目；文件不存在视为空
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	var out []Entry
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == header[0] {
				continue
			}
		}
		if len(rec) < 3 {
			continue
		}
		out = append(out, Entry{Type: rec[0], Label: rec[1], Path: rec[2]})
	}
	return out, nil
}

// EntryFor：构造 t 所在周期的条目
func EntryFor(p retention.Period, t time.Time) Entry {
	return Entry{Type: string(p), Label: retention.Label(t, p), Path: retention.PublishPath(t, p)}
}

// 文档注释：追加周期条目
// 约束：同类型同路径的条目已存在时不重复写入；返回是否新增。
func Update(path string, p retention.Period, t time.Time) (bool, error) {
	e := EntryFor(p, t)
	existing, err := Read(path)
	if err != nil {
		return false, err
	}
	for _, x := range existing {
		if x.Type == e.Type && x.Path == e.Path {
			logger.L().Info("history_exists", "type", e.Type, "path", e.Path)
			return false, nil
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return false, err
	}
	cw := csv.NewWriter(f)
	if fi.Size() == 0 {
		if err := cw.Write(header); err != nil {
			return false, err
		}
	}
	if err := cw.Write([]string{e.Type, e.Label, e.Path}); err != nil {
		return false, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return false, err
	}
	logger.L().Info("history_append_ok", "type", e.Type, "label", e.Label, "path", e.Path)
	return true, nil
}
