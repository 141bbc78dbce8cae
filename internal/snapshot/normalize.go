package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema：所有 SchemaError 均匹配该哨兵错误
var ErrSchema = errors.New("snapshot schema error")

// SchemaError：快照表头缺少必需列
type SchemaError struct {
	Path   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("snapshot %s: missing mandatory column %q", e.Path, e.Column)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

type field int

const (
	fOperateur field = iota
	fIDSupport
	fTechnologie
	fAdresse0
	fAdresse1
	fAdresse2
	fAdresse3
	fCodeInsee
	fCoordonnees
	fStatut
	fTypeSupport
	fHauteurSupport
	fProprietaireSupport
	fDateService
	fieldCount
)

// 规范列名，按字段下标
var canonical = [fieldCount]string{
	"operateur", "id_support", "technologie",
	"adresse0", "adresse1", "adresse2", "adresse3",
	"code_insee", "coordonnees", "statut",
	"type_support", "hauteur_support", "proprietaire_support", "date_service",
}

// 导出表头到字段的映射
var rawNames = map[string]field{
	"adm_lb_nom":     fOperateur,
	"sup_id":         fIDSupport,
	"emr_lb_systeme": fTechnologie,
	"adr_lb_lieu":    fAdresse0,
	"adr_lb_add1":    fAdresse1,
	"adr_lb_add2":    fAdresse2,
	"adr_lb_add3":    fAdresse3,
	"com_cd_insee":   fCodeInsee,
	"coordonnees":    fCoordonnees,
	"statut":         fStatut,
	"nat_id":         fTypeSupport,
	"sup_nm_haut":    fHauteurSupport,
	"tpo_id":         fProprietaireSupport,
	"emr_dt_service": fDateService,
}

const mandatoryFields = fStatut + 1

// Columns：已解析表头，记录每个规范字段在源中的下标，缺失为 -1
type Columns [fieldCount]int

// 文档注释：将原始表头映射到规范字段
// 约束：未知列静默忽略；缺少必需列时返回 *SchemaError。
func ResolveColumns(path string, header []string) (Columns, error) {
	var cols Columns
	for i := range cols {
		cols[i] = -1
	}
	for i, h := range header {
		name := strings.TrimSpace(h)
		f, ok := rawNames[name]
		if !ok {
			f, ok = canonicalIndex(name)
		}
		if ok && cols[f] < 0 {
			cols[f] = i
		}
	}
	for f := field(0); f < mandatoryFields; f++ {
		if cols[f] < 0 {
			return cols, &SchemaError{Path: path, Column: canonical[f]}
		}
	}
	return cols, nil
}

func canonicalIndex(name string) (field, bool) {
	for i, c := range canonical {
		if c == name {
			return field(i), true
		}
	}
	return 0, false
}

// Row：由一条原始记录构造规范化行
// 约束：值去除首尾空白，INSEE 码左补零至五位；字段不足时尾部字段为空
func (c Columns) Row(rec []string) Row {
	get := func(f field) string {
		i := c[f]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	return Row{
		Operateur:           get(fOperateur),
		IDSupport:           get(fIDSupport),
		Technologie:         get(fTechnologie),
		Adresse:             [4]string{get(fAdresse0), get(fAdresse1), get(fAdresse2), get(fAdresse3)},
		CodeInsee:           PadInsee(get(fCodeInsee)),
		Coordonnees:         get(fCoordonnees),
		Statut:              get(fStatut),
		TypeSupport:         get(fTypeSupport),
		HauteurSupport:      get(fHauteurSupport),
		ProprietaireSupport: get(fProprietaireSupport),
		DateService:         get(fDateService),
	}
}

// HasServiceDate：是否找到开通日期列
func (c Columns) HasServiceDate() bool { return c[fDateService] >= 0 }

// Normalize：将原始表转换为规范结构
func Normalize(path string, header []string, records [][]string) (*Table, error) {
	cols, err := ResolveColumns(path, header)
	if err != nil {
		return nil, err
	}
	t := &Table{Path: path, Rows: make([]Row, 0, len(records)), HasServiceDate: cols.HasServiceDate()}
	for _, rec := range records {
		t.Rows = append(t.Rows, cols.Row(rec))
	}
	return t, nil
}

// PadInsee：纯数字 INSEE 码左补零至五位
// 约束：科西嘉编码（2A/2B）及其他非数字值原样返回
func PadInsee(code string) string {
	if code == "" || len(code) >= 5 {
		return code
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return code
		}
	}
	return strings.Repeat("0", 5-len(code)) + code
}
