// 包 postal：将 INSEE 码解析为 "邮编 市镇名" 标签
package postal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"anfr-diff/internal/logger"
	"anfr-diff/internal/snapshot"
)

// ErrLookupFile：市镇参照文件无法打开
var ErrLookupFile = errors.New("commune lookup file unavailable")

// Commune：参照表的一条记录
type Commune struct {
	Name   string
	Postal string
}

// Label：地址末尾使用的形式
func (c Commune) Label() string { return c.Postal + " " + c.Name }

// Lookuper：按五位 INSEE 码查询
type Lookuper interface {
	Lookup(code string) (Commune, bool)
}

// Map：以 INSEE 码为键的内存表
type Map map[string]Commune

func (m Map) Lookup(code string) (Commune, bool) {
	c, ok := m[code]
	return c, ok
}

// 文档注释：读取 "code;name;postal" 文件
// 约束：同一编码以首次出现为准；字段不足的行跳过。
// 异常：文件无法打开时返回包装 ErrLookupFile 的错误。
func Load(path, encoding string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLookupFile, path, err)
	}
	defer f.Close()
	r, err := snapshot.DecodeReader(f, encoding)
	if err != nil {
		return nil, err
	}
	return Parse(r, path)
}

// Parse：从 r 读取参照表；name 仅用于日志
func Parse(r io.Reader, name string) (Map, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	m := make(Map)
	skipped := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if len(rec) < 3 {
			skipped++
			continue
		}
		code := snapshot.PadInsee(strings.TrimSpace(rec[0]))
		if _, ok := m[code]; ok {
			continue
		}
		m[code] = Commune{Name: strings.TrimSpace(rec[1]), Postal: strings.TrimSpace(rec[2])}
	}
	logger.L().Info("postal_load_ok", "path", name, "communes", len(m), "skipped", skipped)
	return m, nil
}

// Chain：按顺序查询，返回首个命中
// 背景：人工覆盖文件在前，基础参照表在后
type Chain []Lookuper

func NewChain(list ...Lookuper) Chain { return Chain(list) }

func (c Chain) Lookup(code string) (Commune, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if v, ok := l.Lookup(code); ok {
			return v, true
		}
	}
	return Commune{}, false
}
