package pipeline

import (
	"anfr-diff/internal/classify"
	"anfr-diff/internal/dedup"
	"anfr-diff/internal/diff"
	"anfr-diff/internal/enrich"
	"anfr-diff/internal/logger"
	"anfr-diff/internal/postal"
	"anfr-diff/internal/record"
	"anfr-diff/internal/snapshot"
)

// Env：内存阶段共享的只读上下文
type Env struct {
	Postal    postal.Lookuper
	WhiteZone []string
	Fuzzy     dedup.FuzzyOptions
}

// Outcome：一对快照经内存阶段处理的产出
type Outcome struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
	Unknown   int

	ExactMatched  map[classify.Action]int
	FuzzyDropped  int
	TripleDropped int

	Records  []record.ActionRecord
	Enrich   enrich.Stats
	Unmapped map[string][]string
}

// NoOp：是否有比对分区为空
func (o *Outcome) NoOp() bool {
	return o.Added == 0 || o.Removed == 0 || o.Modified == 0
}

// Process：依次执行比对、分类、去重、聚合与补全
// 约束：不做任何 I/O
func Process(old, cur *snapshot.Table, env Env) *Outcome {
	for _, t := range []*snapshot.Table{old, cur} {
		if dups := t.DuplicateKeys(); len(dups) > 0 {
			logger.L().Warn("snapshot_duplicate_keys", "path", t.Path, "keys", len(dups), "first", dups[0].String())
		}
	}

	res := diff.Compute(old, cur)
	changes, unknown := classify.Partitions(res)
	out := &Outcome{
		Added:     len(res.Added),
		Removed:   len(res.Removed),
		Modified:  len(res.Modified),
		Unchanged: len(res.Unchanged),
		Unknown:   unknown,
	}

	exact := dedup.Exact(changes)
	out.ExactMatched = exact.Matched

	idx := enrich.BuildIndex(old, cur, env.WhiteZone)
	logger.L().Debug("enrich_index_ok", "sites", idx.Len())
	en := enrich.New(env.Postal, idx)
	out.Unmapped = en.ValidateCodes(old, cur)

	recs := record.Aggregate(exact.All(), en.Address)
	recs, out.FuzzyDropped = dedup.Fuzzy(recs, env.Fuzzy)
	recs, out.TripleDropped = dedup.DropDuplicateTriples(recs)
	en.Apply(recs)

	out.Records = recs
	out.Enrich = en.Stats()
	logger.L().Info("process_ok",
		"records", len(recs), "unknown", unknown,
		"fuzzy_dropped", out.FuzzyDropped, "triple_dropped", out.TripleDropped,
		"insee_misses", out.Enrich.InseeMisses)
	return out
}
