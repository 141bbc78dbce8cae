package enrich

import (
	"sort"
	"strings"
)

// UnknownLabel：表中缺失编码的替代标签
const UnknownLabel = "Inconnu"

// CodeTable：小整数编码到标签的映射
type CodeTable struct {
	Name   string
	Labels map[string]string
}

// Decode：返回编码对应标签，缺失时返回 UnknownLabel
// 约束：忽略前导零与表格导出遗留的 ".0" 后缀
func (t CodeTable) Decode(code string) (string, bool) {
	if l, ok := t.Labels[canonicalCode(code)]; ok {
		return l, true
	}
	return UnknownLabel, false
}

func canonicalCode(code string) string {
	c := strings.TrimSuffix(strings.TrimSpace(code), ".0")
	t := strings.TrimLeft(c, "0")
	if t == "" && c != "" {
		return "0"
	}
	return t
}

// Unmapped：表中缺失的非空编码，去重并排序
func (t CodeTable) Unmapped(codes []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range codes {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if _, ok := t.Decode(c); ok {
			continue
		}
		k := canonicalCode(c)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// 支撑结构类型（nat_id）
var SupportTypes = CodeTable{Name: "type_support", Labels: map[string]string{
	"0":  "Sans nature",
	"1":  "Bâtiment",
	"2":  "Château d'eau - réservoir",
	"3":  "Eglise - Clocher",
	"4":  "Silo",
	"5":  "Phare",
	"6":  "Grue",
	"7":  "Tour hertzienne",
	"8":  "Pylône",
	"9":  "Immeuble",
	"10": "Ouvrage d'art (pont, viaduc)",
	"11": "Pylône autostable",
	"12": "Pylône haubané",
	"13": "Pylône monotube",
	"14": "Pylône treillis",
	"15": "Mât",
	"16": "Intérieur sous-terrain",
	"17": "Tunnel",
	"18": "Tour de contrôle",
	"19": "Fût",
	"20": "Monument historique",
	"21": "Monument religieux",
	"22": "Mât béton",
	"23": "Mât métallique",
	"24": "Pylône tubulaire",
	"25": "Sémaphore",
	"26": "Arbre",
	"27": "Intérieur galerie",
	"28": "Tour",
	"31": "Support non décrit",
	"32": "Mobilier urbain",
	"33": "Candélabre",
	"38": "Dalle",
	"39": "Toit",
	"40": "Terrasse",
	"41": "Panneau publicitaire",
}}

// 支撑结构所有者（tpo_id）
var Owners = CodeTable{Name: "proprietaire_support", Labels: map[string]string{
	"1":  "ANFR",
	"2":  "Association",
	"3":  "Aviation Civile",
	"4":  "Bouygues Telecom",
	"5":  "Collectivités",
	"6":  "Copropriété, Syndic, SCI",
	"7":  "CROSS",
	"8":  "Défense",
	"9":  "Etablissement de soins",
	"10": "EDF ou GDF",
	"11": "Etat, Ministère",
	"12": "Orange Services Fixes",
	"13": "Gendarmerie, Police",
	"14": "Météo",
	"15": "Orange",
	"16": "Port autonome",
	"17": "Particulier",
	"18": "SNCF",
	"19": "RTE",
	"20": "Société Réunionnaise du Radiotéléphone",
	"21": "SFR",
	"22": "Free Mobile",
	"23": "Syndicat des eaux, Adduction",
	"24": "TDF",
	"25": "Towercast",
	"26": "Voies navigables",
	"27": "Autres",
	"28": "Telco OI",
	"29": "Itas",
	"30": "Cellnex",
	"31": "ATC France",
	"32": "FPS Towers",
	"33": "Hivory",
	"34": "Totem",
	"35": "On Tower France",
	"36": "Phoenix France Infrastructures",
}}
