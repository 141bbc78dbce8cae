// 包 config：从环境变量（可选 .env）加载差异流水线的运行配置
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"anfr-diff/internal/utils"

	"github.com/joho/godotenv"
)

const (
	defaultRetentionDays     = 31
	defaultMinReferenceAge   = 24 * time.Hour
	defaultMaxDistance       = 0.001
	defaultMinAddressSimilar = 0.5
	defaultWhiteZoneTechs    = "LTE 700,LTE 800,UMTS 900"
	defaultScheduleCron      = "0 0 6 * * 2"
	defaultSnapshotDelimiter = ';'
	defaultInseeEncoding     = "iso-8859-1"
	defaultSnapshotEncoding  = "utf-8"
	defaultFilesDir          = "files"
	defaultOutputDirName     = "pretraite"
	defaultSnapshotDirName   = "from_anfr"
	defaultInseeRelativePath = "cc_insee/cc_insee.csv"
	defaultIgnoresFileName   = "ignores.txt"
	defaultHistoryRelPath    = "history.csv"
)

// Config：单次流水线运行所需的全部配置
type Config struct {
	SnapshotDir        string
	OutputDir          string
	InseePath          string
	InseeOverridesPath string
	InseeEncoding      string
	SnapshotDelimiter  rune
	SnapshotEncoding   string

	RetentionDays   int
	MinReferenceAge time.Duration

	DedupMaxDistance          float64
	DedupMinAddressSimilarity float64
	WhiteZoneTechnologies     []string

	HistoryPath string
	IgnoresPath string

	StoreEnable    bool
	PushgatewayURL string
	ScheduleCron   string
}

// Load：先加载 .env（不存在时忽略），再解析环境变量
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	return FromEnv()
}

// 文档注释：解析当前环境变量
// 背景：不读取 .env，便于测试直接设置变量。
// 异常：数值或分隔符非法时返回 "invalid X" 错误，保留已解析字段。
func FromEnv() (Config, error) {
	files := utils.Env("FILES_DIR", defaultFilesDir)
	cfg := Config{
		SnapshotDir:        utils.Env("SNAPSHOT_DIR", filepath.Join(files, defaultSnapshotDirName)),
		OutputDir:          utils.Env("OUTPUT_DIR", filepath.Join(files, defaultOutputDirName)),
		InseePath:          utils.Env("INSEE_PATH", filepath.Join(files, defaultInseeRelativePath)),
		InseeOverridesPath: strings.TrimSpace(os.Getenv("INSEE_OVERRIDES_PATH")),
		InseeEncoding:      strings.ToLower(utils.Env("INSEE_ENCODING", defaultInseeEncoding)),
		SnapshotEncoding:   strings.ToLower(utils.Env("SNAPSHOT_ENCODING", defaultSnapshotEncoding)),
		HistoryPath:        utils.Env("HISTORY_PATH", filepath.Join(files, defaultHistoryRelPath)),
		IgnoresPath:        utils.Env("IGNORES_PATH", filepath.Join(files, defaultIgnoresFileName)),
		PushgatewayURL:     strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL")),
		ScheduleCron:       utils.Env("SCHEDULE_CRON", defaultScheduleCron),
	}

	cfg.SnapshotDelimiter = defaultSnapshotDelimiter
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_DELIMITER")); v != "" {
		d, err := ParseDelimiter(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid SNAPSHOT_DELIMITER: %w", err)
		}
		cfg.SnapshotDelimiter = d
	}

	cfg.RetentionDays = defaultRetentionDays
	if v := strings.TrimSpace(os.Getenv("RETENTION_DAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid RETENTION_DAYS: %w", err)
		}
		if n < 2 {
			return cfg, errors.New("invalid RETENTION_DAYS: must be at least 2")
		}
		cfg.RetentionDays = n
	}

	cfg.MinReferenceAge = defaultMinReferenceAge
	if v := strings.TrimSpace(os.Getenv("MIN_REFERENCE_AGE")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid MIN_REFERENCE_AGE: %w", err)
		}
		cfg.MinReferenceAge = d
	}

	cfg.DedupMaxDistance = defaultMaxDistance
	if v := strings.TrimSpace(os.Getenv("DEDUP_MAX_DISTANCE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid DEDUP_MAX_DISTANCE: %w", err)
		}
		if f <= 0 {
			return cfg, errors.New("invalid DEDUP_MAX_DISTANCE: must be positive")
		}
		cfg.DedupMaxDistance = f
	}

	cfg.DedupMinAddressSimilarity = defaultMinAddressSimilar
	if v := strings.TrimSpace(os.Getenv("DEDUP_MIN_ADDRESS_SIMILARITY")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid DEDUP_MIN_ADDRESS_SIMILARITY: %w", err)
		}
		if f < 0 || f > 1 {
			return cfg, errors.New("invalid DEDUP_MIN_ADDRESS_SIMILARITY: must be within [0,1]")
		}
		cfg.DedupMinAddressSimilarity = f
	}

	cfg.WhiteZoneTechnologies = SplitList(utils.Env("WHITE_ZONE_TECHNOLOGIES", defaultWhiteZoneTechs))
	if len(cfg.WhiteZoneTechnologies) == 0 {
		return cfg, errors.New("invalid WHITE_ZONE_TECHNOLOGIES: empty list")
	}

	cfg.StoreEnable = utils.EnvBool("STORE_ENABLE", false)

	return cfg, nil
}

// ParseDelimiter：接受单个字符，或名称 semicolon / comma / tab
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "semicolon":
		return ';', nil
	case "comma":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	if r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r[0], nil
}

// SplitList：按逗号切分并丢弃空项
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
