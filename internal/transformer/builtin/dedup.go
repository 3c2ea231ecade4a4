// Package builtin contains the cleaning stages of the pipeline: Dedup,
// Normalize, Backfill and Prune, plus FromConfig which builds them from the
// transform list of a pipeline file.
//
// Every stage works in memory on a transformer.Table and keeps the row order
// it was given. A stage that fails leaves the table untouched.
package builtin

import (
	"context"

	"github.com/rotisserie/eris"

	"layoffs/internal/record"
	"layoffs/internal/transformer"
)

// Dedup ranks rows inside groups of identical values on Keys and deletes
// every row ranked after the first.
//
// Ranks follow ingestion order (Seq), so the survivor of each group is the
// row that was read first. Rows are grouped by an xxh3 fingerprint of their
// key values and every bucket hit is confirmed with a full value comparison;
// two distinct rows never merge on a hash collision.
type Dedup struct {
	// Keys are the columns that define a duplicate. Empty means all nine
	// business columns.
	Keys []string
}

func (Dedup) Name() string { return "dedupe" }

func (d Dedup) keys() []string {
	if len(d.Keys) == 0 {
		return record.Columns
	}
	return d.Keys
}

// Apply assigns RowNum to every row, marks the table as carrying the rank
// column and removes all rows with RowNum > 1.
func (d Dedup) Apply(ctx context.Context, t *transformer.Table) (transformer.Report, error) {
	rep := transformer.NewReport(d.Name(), t)
	keys := d.keys()
	for _, k := range keys {
		if !record.IsColumn(k) {
			return rep, eris.Errorf("dedupe: unknown key column %q", k)
		}
	}

	// Rank over ingestion order without disturbing the slice we were given.
	order := sortedBySeq(t.Rows)

	type group struct {
		first *record.Layoff
		size  int
	}
	buckets := make(map[uint64][]*group, len(order))
	ranks := make([]int, len(order))
	for i, r := range order {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
		}
		fp := record.Fingerprint(r, keys)
		var g *group
		for _, cand := range buckets[fp] {
			if record.Equal(cand.first, r, keys) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{first: r}
			buckets[fp] = append(buckets[fp], g)
		}
		g.size++
		ranks[i] = g.size
	}
	for i, r := range order {
		r.RowNum = ranks[i]
	}

	kept := t.Rows[:0:0]
	for _, r := range t.Rows {
		if r.RowNum > 1 {
			continue
		}
		kept = append(kept, r)
	}
	for _, gs := range buckets {
		for _, g := range gs {
			if g.size > 1 {
				rep.Add("duplicate_groups", 1)
			}
		}
	}
	rep.Add("duplicates_removed", len(t.Rows)-len(kept))

	// Surviving rows still carry their rank (always 1) until the pruner drops it.
	t.Rows = kept
	t.HasRowNum = true
	return rep, nil
}
