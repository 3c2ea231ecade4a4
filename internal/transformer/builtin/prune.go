package builtin

import (
	"context"

	"github.com/rotisserie/eris"

	"layoffs/internal/record"
	"layoffs/internal/transformer"
)

// Prune removes rows that carry no value in any AllNull column and drops the
// transient rank column. The deleted rows are reported as
// "policy_deleted": they are removed by rule, not because they were invalid.
type Prune struct {
	// AllNull defaults to total_laid_off and percentage_laid_off.
	AllNull []string
}

func (Prune) Name() string { return "prune" }

func (p Prune) columns() []string {
	if len(p.AllNull) == 0 {
		return []string{record.ColTotalLaidOff, record.ColPercentageLaidOff}
	}
	return p.AllNull
}

func (p Prune) Apply(ctx context.Context, t *transformer.Table) (transformer.Report, error) {
	rep := transformer.NewReport(p.Name(), t)
	cols := p.columns()
	for _, c := range cols {
		if !record.IsColumn(c) {
			return rep, eris.Errorf("prune: unknown column %q", c)
		}
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	kept := t.Rows[:0:0]
	for _, r := range t.Rows {
		if allNull(r, cols) {
			continue
		}
		r.RowNum = 0
		kept = append(kept, r)
	}
	rep.Add("policy_deleted", len(t.Rows)-len(kept))
	if t.HasRowNum {
		rep.Add("rank_column_dropped", 1)
	}

	t.Rows = kept
	t.HasRowNum = false
	return rep, nil
}

func allNull(r *record.Layoff, cols []string) bool {
	for _, c := range cols {
		if !r.IsNull(c) {
			return false
		}
	}
	return true
}
