package snapshot

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"anfr-diff/internal/logger"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions：快照文件的解码参数
// 约束：分隔符由调用方指定，不做自动探测
type ReadOptions struct {
	Delimiter rune
	Encoding  string
}

// DecodeReader：按编码名包装 r，输出 UTF-8
func DecodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

// ReadRaw：解析分隔文本为表头与记录，去除 BOM
func ReadRaw(r io.Reader, delimiter rune) ([]string, [][]string, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty file")
		}
		return nil, nil, err
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// 文档注释：读取并规范化一个快照文件
// 异常：文件缺失或必需列缺失均为致命错误，直接返回。
func Load(path string, opts ReadOptions) (*Table, error) {
	if opts.Delimiter == 0 {
		return nil, errors.New("snapshot delimiter must be set")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()
	r, err := DecodeReader(f, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	header, records, err := ReadRaw(r, opts.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	t, err := Normalize(path, header, records)
	if err != nil {
		return nil, err
	}
	logger.L().Info("snapshot_load_ok", "path", path, "rows", len(t.Rows), "service_date", t.HasServiceDate)
	return t, nil
}
