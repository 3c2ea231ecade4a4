package builtin

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"layoffs/internal/record"
	"layoffs/internal/transformer"
)

// Ambiguity policies for Backfill.
const (
	OnAmbiguousFirst = "first"
	OnAmbiguousSkip  = "skip"
)

// Backfill fills NULLs in Column from other rows of the same entity.
//
// First every empty string in Column becomes NULL. Then rows are indexed by
// KeyColumns; a NULL row whose entity carries exactly one distinct non-NULL
// value receives it. When the entity carries several, an
// *transformer.AmbiguousBackfill warning is reported and OnAmbiguous decides:
// "first" writes the value of the earliest-ingested candidate, "skip" leaves
// the row NULL. Rows with a NULL key never match.
type Backfill struct {
	Column      string   // default record.ColIndustry
	KeyColumns  []string // default company
	OnAmbiguous string   // default OnAmbiguousFirst
}

func (Backfill) Name() string { return "backfill" }

func (b Backfill) column() string {
	if b.Column == "" {
		return record.ColIndustry
	}
	return b.Column
}

func (b Backfill) keyColumns() []string {
	if len(b.KeyColumns) == 0 {
		return []string{record.ColCompany}
	}
	return b.KeyColumns
}

func (b Backfill) policy() string {
	if b.OnAmbiguous == "" {
		return OnAmbiguousFirst
	}
	return b.OnAmbiguous
}

type entity struct {
	label  string
	values []string // distinct non-NULL values, earliest carrier first
	seen   map[string]bool
	nulls  []*record.Layoff
}

func (b Backfill) Apply(ctx context.Context, t *transformer.Table) (transformer.Report, error) {
	rep := transformer.NewReport(b.Name(), t)
	col := b.column()
	keys := b.keyColumns()

	if !record.IsColumn(col) || record.Kind(col) != record.KindText {
		return rep, eris.Errorf("backfill: %q is not a text column", col)
	}
	for _, k := range keys {
		if !record.IsColumn(k) {
			return rep, eris.Errorf("backfill: unknown key column %q", k)
		}
	}
	policy := b.policy()
	if policy != OnAmbiguousFirst && policy != OnAmbiguousSkip {
		return rep, eris.Errorf("backfill: unknown on_ambiguous policy %q", policy)
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	log := zap.L().Named("backfill")

	for _, r := range t.Rows {
		if v, _ := r.Text(col); v != nil && *v == "" {
			_ = r.SetText(col, nil)
			rep.Add("blanks_nulled", 1)
		}
	}

	// Index in ingestion order so values[0] is the earliest carrier.
	rows := sortedBySeq(t.Rows)
	index := map[string]*entity{}
	var order []*entity
	var buf []byte
	for _, r := range rows {
		if hasNullKey(r, keys) {
			if r.IsNull(col) {
				rep.Add("unresolved", 1)
			}
			continue
		}
		buf = record.AppendKey(buf[:0], r, keys)
		e := index[string(buf)]
		if e == nil {
			e = &entity{label: keyLabel(r, keys), seen: map[string]bool{}}
			index[string(buf)] = e
			order = append(order, e)
		}
		v, _ := r.Text(col)
		switch {
		case v == nil:
			e.nulls = append(e.nulls, r)
		case !e.seen[*v]:
			e.seen[*v] = true
			e.values = append(e.values, *v)
		}
	}

	for _, e := range order {
		if len(e.nulls) == 0 {
			continue
		}
		switch len(e.values) {
		case 0:
			rep.Add("unresolved", len(e.nulls))
			continue
		case 1:
			fill(e.nulls, col, e.values[0])
			rep.Add("backfilled", len(e.nulls))
			continue
		}

		w := &transformer.AmbiguousBackfill{
			Column:     col,
			Key:        e.label,
			Candidates: append([]string(nil), e.values...),
		}
		for _, r := range e.nulls {
			w.Rows = append(w.Rows, r.Seq)
		}
		rep.Add("ambiguous", len(e.nulls))
		if policy == OnAmbiguousFirst {
			w.Chosen = record.Str(e.values[0])
			fill(e.nulls, col, e.values[0])
			rep.Add("backfilled", len(e.nulls))
		} else {
			rep.Add("unresolved", len(e.nulls))
		}
		rep.Warn(w)
		log.Warn("ambiguous backfill",
			zap.String("column", col),
			zap.String("key", e.label),
			zap.Strings("candidates", w.Candidates),
			zap.Int("rows", len(w.Rows)),
			zap.String("policy", policy),
		)
	}
	return rep, nil
}

func fill(rows []*record.Layoff, col, v string) {
	for _, r := range rows {
		_ = r.SetText(col, record.Str(v))
	}
}

func hasNullKey(r *record.Layoff, keys []string) bool {
	for _, k := range keys {
		if r.IsNull(k) {
			return true
		}
	}
	return false
}

func keyLabel(r *record.Layoff, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = valueString(r.Value(k))
	}
	return strings.Join(parts, "/")
}
