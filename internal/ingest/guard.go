// 包 ingest：快照文件准入校验与周期性调度
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrRejectedName：文件名不符合导出文件格式
	ErrRejectedName = errors.New("snapshot name rejected")
	// ErrIgnored：文件位于忽略列表
	ErrIgnored = errors.New("snapshot ignored")
)

var snapshotName = regexp.MustCompile(`^\d{14}_observatoire(?:od)?(_2g)?(_3g)?(_4g)?(_5g)?(?:_\d{8})?\.csv$`)

// CheckName：校验快照文件的基本名
func CheckName(name string) error {
	if !snapshotName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrRejectedName, name)
	}
	return nil
}

// LoadIgnores：每行一个文件名；文件不存在视为空列表
func LoadIgnores(path string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if path == "" {
		return out, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out[line] = struct{}{}
		}
	}
	return out, sc.Err()
}

// Guard：拒绝命名异常或被忽略的快照
type Guard struct {
	Ignores map[string]struct{}
}

func NewGuard(ignoresPath string) (*Guard, error) {
	ig, err := LoadIgnores(ignoresPath)
	if err != nil {
		return nil, fmt.Errorf("load ignores %s: %w", ignoresPath, err)
	}
	return &Guard{Ignores: ig}, nil
}

func (g *Guard) Check(path string) error {
	name := filepath.Base(path)
	if err := CheckName(name); err != nil {
		return err
	}
	if _, ok := g.Ignores[name]; ok {
		return fmt.Errorf("%w: %s", ErrIgnored, name)
	}
	return nil
}

// 文档注释：返回目录中最新的可接受快照
// 背景：文件名以 YYYYMMDDHHMMSS 开头，字典序最大即最新。
func (g *Guard) Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if g.Check(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no snapshot in %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
