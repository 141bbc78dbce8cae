package feeds

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"anfr-diff/internal/logger"
	"anfr-diff/internal/record"
)

type stagedFile struct {
	tmp string
	dst string
}

// Staged：写入目标旁隐藏临时文件的输出集合
// 约束：Commit 前最终文件名下不可见任何内容
type Staged struct {
	dir   string
	files []stagedFile
	done  bool
}

// 文档注释：暂存输出集合
// 背景：将 index.csv 与每个分组文件编码到 dir 下的临时文件，暂不发布。
// 异常：出错时删除已暂存的全部文件。
func Stage(dir string, recs []record.ActionRecord) (*Staged, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Staged{dir: dir}
	sets := []struct {
		name string
		recs []record.ActionRecord
	}{{IndexFile, recs}}
	for _, g := range Groups {
		sets = append(sets, struct {
			name string
			recs []record.ActionRecord
		}{g.File, Filter(recs, g.Name)})
	}
	for _, f := range sets {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, f.recs); err != nil {
			s.Discard()
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := s.Add(f.name, buf.Bytes()); err != nil {
			s.Discard()
			return nil, err
		}
	}
	return s, nil
}

// Add：以 name 追加暂存一个文件
func (s *Staged) Add(name string, data []byte) error {
	f, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	tmp := f.Name()
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmp, 0o644)
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("stage %s: %w", name, werr)
	}
	s.files = append(s.files, stagedFile{tmp: tmp, dst: filepath.Join(s.dir, name)})
	return nil
}

// 文档注释：提交暂存集合
// 背景：同目录内重命名仅在文件系统异常时失败。
// 异常：某次重命名失败时删除尚未重命名的文件并返回错误；重复提交报错。
// 返回：最终文件路径。
func (s *Staged) Commit() ([]string, error) {
	if s.done {
		return nil, fmt.Errorf("output set in %s already committed or discarded", s.dir)
	}
	out := make([]string, 0, len(s.files))
	for i, f := range s.files {
		if err := os.Rename(f.tmp, f.dst); err != nil {
			for _, rest := range s.files[i:] {
				_ = os.Remove(rest.tmp)
			}
			s.done = true
			logger.L().Error("feeds_commit_error", "dir", s.dir, "published", len(out), "err", err)
			return out, fmt.Errorf("publish %s: %w", f.dst, err)
		}
		out = append(out, f.dst)
	}
	s.done = true
	logger.L().Info("feeds_commit_ok", "dir", s.dir, "files", len(out))
	return out, nil
}

// Discard：删除暂存文件；Commit 之后为空操作
func (s *Staged) Discard() {
	if s == nil || s.done {
		return
	}
	for _, f := range s.files {
		_ = os.Remove(f.tmp)
	}
	s.done = true
}

// WriteSet：一次完成暂存与提交
func WriteSet(dir string, recs []record.ActionRecord) ([]string, error) {
	st, err := Stage(dir, recs)
	if err != nil {
		return nil, err
	}
	return st.Commit()
}
