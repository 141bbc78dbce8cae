package retention

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anfr-diff/internal/logger"
)

// 文档注释：归档周快照
// 背景：复制为 t 所在月份与季度的参考文件名，供后续 mensu/trim 运行使用。
// 约束：已存在的归档不覆盖；返回新建的文件列表。
func Archive(dir, snapshotPath string, t time.Time) ([]string, error) {
	var created []string
	for _, p := range []Period{Monthly, Quarterly} {
		dst := filepath.Join(dir, Code(t, p)+".csv")
		if _, err := os.Stat(dst); err == nil {
			logger.L().Debug("archive_exists", "path", dst)
			continue
		}
		if err := copyFile(snapshotPath, dst); err != nil {
			return created, fmt.Errorf("archive %s: %w", dst, err)
		}
		logger.L().Info("archive_copy_ok", "src", snapshotPath, "dst", dst)
		created = append(created, dst)
	}
	return created, nil
}

// WritePeriodMarkers：为每种周期写入 "<code>.txt"，内容为运行时间戳
func WritePeriodMarkers(outputDir string, t time.Time) error {
	ts := FormatTimestamp(t)
	for _, p := range Periods {
		if err := WriteFileAtomic(filepath.Join(outputDir, Code(t, p)+".txt"), []byte(ts)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// WriteFileAtomic：先写同目录临时文件再重命名
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// RunRecord：记录本次运行对比的两个快照，供下游定位
type RunRecord struct {
	Timestamp string
	Reference string
	New       string
}

// RunRecordFile：输出目录中的记录文件名
const RunRecordFile = "timestamp.txt"

// Bytes：三行文本形式，与 ReadRunRecord 对应
func (rec RunRecord) Bytes() []byte {
	return []byte(rec.Timestamp + "\n" + rec.Reference + "\n" + rec.New + "\n")
}

func WriteRunRecord(path string, rec RunRecord) error {
	return WriteFileAtomic(path, rec.Bytes())
}

func ReadRunRecord(path string) (RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunRecord{}, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < 3 {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return RunRecord{}, err
	}
	if len(lines) < 3 {
		return RunRecord{}, errors.New("run record: expected 3 lines")
	}
	if _, err := ParseTimestamp(lines[0]); err != nil {
		return RunRecord{}, fmt.Errorf("run record timestamp: %w", err)
	}
	return RunRecord{Timestamp: lines[0], Reference: lines[1], New: lines[2]}, nil
}
