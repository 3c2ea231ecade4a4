package builtin

import (
	"layoffs/internal/record"
	"layoffs/internal/transformer"
)

// row builds a layoff row; nil arguments are NULL.
func row(company, industry, pct, date, country *string, total *int64) *record.Layoff {
	return &record.Layoff{
		Company:           company,
		Location:          record.Str("SF"),
		Industry:          industry,
		TotalLaidOff:      total,
		PercentageLaidOff: pct,
		Date:              date,
		Stage:             record.Str("Post-IPO"),
		Country:           country,
	}
}

func s(v string) *string { return record.Str(v) }

func tableOf(rows ...*record.Layoff) *transformer.Table {
	for i, r := range rows {
		r.Seq = int64(i + 1)
	}
	return &transformer.Table{Name: "layoffs_staging", Rows: rows}
}

func texts(t *transformer.Table, col string) []*string {
	out := make([]*string, len(t.Rows))
	for i, r := range t.Rows {
		out[i], _ = r.Text(col)
	}
	return out
}

func derefAll(ps []*string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		if p == nil {
			out[i] = "<NULL>"
			continue
		}
		out[i] = *p
	}
	return out
}

func seqs(t *transformer.Table) []int64 {
	out := make([]int64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Seq
	}
	return out
}
