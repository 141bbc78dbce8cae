// 包 snapshot：读取监管机构的天线导出文件，并映射为差异流水线使用的精简结构
package snapshot

import "strings"

// 监管机构发布的生命周期状态
const (
	StatusApproved    = "Projet approuvé"
	StatusOperational = "Techniquement opérationnel"
	StatusInService   = "En service"
)

// IsActive：是否为两种“已开通”状态之一
func IsActive(status string) bool {
	return status == StatusOperational || status == StatusInService
}

// Row：规范化后的一条天线/技术记录
// 约束：读取后不再修改
type Row struct {
	Operateur   string
	IDSupport   string
	Technologie string
	// 依次为 adresse0（地点名）与 adresse1..adresse3
	Adresse     [4]string
	CodeInsee   string
	Coordonnees string
	Statut      string

	TypeSupport         string
	HauteurSupport      string
	ProprietaireSupport string
	// 开通日期；导出文件无此列时为空
	DateService string
}

// Key：基础差异使用的复合自然键
type Key struct {
	Operateur   string
	IDSupport   string
	Technologie string
	Adresse     [4]string
	CodeInsee   string
	Coordonnees string
}

// Key：返回行的复合键
// 约束：精确比较，此处不做去空白或大小写折叠（均在规范化阶段完成）
func (r Row) Key() Key {
	return Key{
		Operateur:   r.Operateur,
		IDSupport:   r.IDSupport,
		Technologie: r.Technologie,
		Adresse:     r.Adresse,
		CodeInsee:   r.CodeInsee,
		Coordonnees: r.Coordonnees,
	}
}

func (k Key) String() string {
	return strings.Join([]string{k.Operateur, k.IDSupport, k.Technologie,
		k.Adresse[0], k.Adresse[1], k.Adresse[2], k.Adresse[3], k.CodeInsee, k.Coordonnees}, "|")
}

// SupportKey：某运营商视角下的一个站点
type SupportKey struct {
	IDSupport string
	Operateur string
}

func (r Row) SupportKey() SupportKey {
	return SupportKey{IDSupport: r.IDSupport, Operateur: r.Operateur}
}

// Table：内存中的完整规范化快照
type Table struct {
	Path string
	Rows []Row
	// 源文件包含开通日期列时为 true
	HasServiceDate bool
}

// 文档注释：列出重复的复合键
// 背景：复合键应在快照内唯一；重复属于数据质量问题，此处只报告不合并。
// 返回：按首次出现顺序排列。
func (t *Table) DuplicateKeys() []Key {
	seen := make(map[Key]int, len(t.Rows))
	var dups []Key
	for _, r := range t.Rows {
		k := r.Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}
