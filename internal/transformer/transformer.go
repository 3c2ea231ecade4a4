// Package transformer defines the in-memory working table the cleaning stages
// operate on, the Transformer contract each stage implements, and the typed
// errors stages report.
//
// Stages run sequentially over a single Table and mutate it in place. The
// pipeline persists the result only after every stage has succeeded.
package transformer

import (
	"context"
	"time"

	"layoffs/internal/record"
)

// Table is the working table: its rows in ingestion order plus the two schema
// flags the stages toggle.
type Table struct {
	Name string
	Rows []*record.Layoff

	// HasRowNum is set while the transient rank column exists.
	HasRowNum bool
	// DateTyped is set once the date column holds calendar dates.
	DateTyped bool
}

// NewTable decodes rows positioned by cols. Seq is assigned from the read
// order starting at 1.
func NewTable(name string, cols []string, rows [][]any) (*Table, error) {
	t := &Table{Name: name, Rows: make([]*record.Layoff, 0, len(rows))}
	for i, vals := range rows {
		l, err := record.FromValues(cols, vals)
		if err != nil {
			return nil, err
		}
		l.Seq = int64(i + 1)
		if l.DateValue != nil {
			t.DateTyped = true
		}
		t.Rows = append(t.Rows, l)
	}
	for _, c := range cols {
		if c == record.ColRowNum {
			t.HasRowNum = true
		}
	}
	return t, nil
}

// Columns returns the current column list: the business columns plus the
// rank column while it exists.
func (t *Table) Columns() []string {
	if !t.HasRowNum {
		return record.Columns
	}
	out := make([]string, 0, len(record.Columns)+1)
	out = append(out, record.Columns...)
	return append(out, record.ColRowNum)
}

// Values renders every row positioned by Columns.
func (t *Table) Values() [][]any {
	cols := t.Columns()
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values(cols, t.DateTyped)
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := *t
	c.Rows = make([]*record.Layoff, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = r.Clone()
	}
	return &c
}

// Report summarizes one stage execution.
type Report struct {
	Stage   string
	RowsIn  int
	RowsOut int
	// Counts holds stage specific tallies such as "duplicates_removed".
	Counts map[string]int
	// Warnings are non-fatal findings, e.g. *AmbiguousBackfill.
	Warnings []error
}

// NewReport starts a report for stage over t.
func NewReport(stage string, t *Table) Report {
	return Report{Stage: stage, RowsIn: len(t.Rows), Counts: map[string]int{}}
}

// Add increments the named count.
func (r *Report) Add(kind string, n int) {
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	r.Counts[kind] += n
}

// Warn records a non-fatal finding.
func (r *Report) Warn(err error) {
	r.Warnings = append(r.Warnings, err)
}

// Transformer is one cleaning stage.
type Transformer interface {
	// Name is the stage name used in logs, metrics and reports.
	Name() string
	// Apply mutates t in place. On error t must be left as it was found.
	Apply(ctx context.Context, t *Table) (Report, error)
}

// Observer is called after every stage with its report, error and duration.
type Observer func(rep Report, err error, elapsed time.Duration)

// Chain is an ordered list of transformers.
type Chain []Transformer

// Run applies each transformer in order and stops on the first error. The
// reports of every stage that ran, the failing one included, are returned.
func (c Chain) Run(ctx context.Context, t *Table, obs Observer) ([]Report, error) {
	reports := make([]Report, 0, len(c))
	for _, tr := range c {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		start := time.Now()
		rep, err := tr.Apply(ctx, t)
		if rep.Stage == "" {
			rep.Stage = tr.Name()
		}
		rep.RowsOut = len(t.Rows)
		if obs != nil {
			obs(rep, err, time.Since(start))
		}
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
