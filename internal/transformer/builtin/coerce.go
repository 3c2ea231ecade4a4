package builtin

import (
	"layoffs/internal/record"
	"layoffs/internal/transformer"
)

// DateReparse converts the text date column into calendar dates.
type DateReparse struct {
	Column string // always record.ColDate; kept for error messages
	Layout string // defaults to record.SourceDateLayout
}

func (d *DateReparse) column() string {
	if d.Column == "" {
		return record.ColDate
	}
	return d.Column
}

func (d *DateReparse) layout() string {
	if d.Layout == "" {
		return record.SourceDateLayout
	}
	return d.Layout
}

// apply validates every non-NULL value first and converts only when all of
// them parse. It returns the number of converted values. NULL stays NULL.
// Reparsing an already typed table is a no-op.
func (d *DateReparse) apply(t *transformer.Table) (int, error) {
	if t.DateTyped {
		return 0, nil
	}

	layout := d.layout()
	var bad []transformer.BadValue
	for _, r := range t.Rows {
		if r.Date == nil {
			continue
		}
		if _, err := record.ParseDate(layout, *r.Date); err != nil {
			bad = append(bad, transformer.BadValue{Seq: r.Seq, Value: *r.Date})
		}
	}
	if len(bad) > 0 {
		return 0, &transformer.ParseError{Column: d.column(), Layout: layout, Rows: bad}
	}

	n := 0
	for _, r := range t.Rows {
		if r.Date == nil {
			continue
		}
		v, _ := record.ParseDate(layout, *r.Date)
		r.DateValue = &v
		n++
	}
	t.DateTyped = true
	return n, nil
}
