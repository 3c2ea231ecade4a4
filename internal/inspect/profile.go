// Package inspect profiles a layoffs table without changing it. The profile
// covers the questions asked before each cleaning step: which values repeat,
// where the blanks and NULLs sit, which labels are spelling variants of one
// another and which dates will not parse.
package inspect

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"layoffs/internal/ddl"
	"layoffs/internal/record"
	"layoffs/internal/storage"
	"layoffs/internal/transformer"
)

// Options control what the profile looks at.
type Options struct {
	// TopN bounds the most frequent values kept per column. Default 5.
	TopN int
	// DateLayout is the layout raw dates are checked against.
	DateLayout string
	// Terminators are the trailing characters looked for by the twin check.
	// Default ".".
	Terminators []string
	// ClusterColumns are searched for shared-prefix label clusters.
	// Default industry, country, stage and location.
	ClusterColumns []string
	// MinPrefix is the shortest label that may root a cluster. Default 3.
	MinPrefix int
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = 5
	}
	if o.DateLayout == "" {
		o.DateLayout = record.SourceDateLayout
	}
	if len(o.Terminators) == 0 {
		o.Terminators = []string{"."}
	}
	if len(o.ClusterColumns) == 0 {
		o.ClusterColumns = []string{record.ColIndustry, record.ColCountry, record.ColStage, record.ColLocation}
	}
	if o.MinPrefix <= 0 {
		o.MinPrefix = 3
	}
	return o
}

// ValueCount is one value and how many rows carry it.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile aggregates one column.
type ColumnProfile struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Nulls    int    `json:"nulls"`
	Empty    int    `json:"empty"`
	Padded   int    `json:"padded"` // values with leading or trailing whitespace
	Distinct int    `json:"distinct"`

	Top []ValueCount `json:"top,omitempty"`
}

// Twin is a value ending in a terminator whose bare form also occurs.
type Twin struct {
	Column string `json:"column"`
	Value  string `json:"value"`
	Bare   string `json:"bare"`
	Rows   int    `json:"rows"`
}

// Cluster groups the labels of a column that start with Root, compared
// case-insensitively. Clusters are candidates for a collapse rule.
type Cluster struct {
	Column string       `json:"column"`
	Root   string       `json:"root"`
	Values []ValueCount `json:"values"`
}

// Profile is the full report for one table.
type Profile struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`

	Columns []ColumnProfile `json:"columns"`

	DuplicateGroups int `json:"duplicate_groups"`
	DuplicateRows   int `json:"duplicate_rows"` // rows beyond the first of each group

	Twins    []Twin    `json:"twins,omitempty"`
	Clusters []Cluster `json:"clusters,omitempty"`

	DateLayout string                 `json:"date_layout"`
	DateTyped  bool                   `json:"date_typed"`
	BadDates   []transformer.BadValue `json:"bad_dates,omitempty"`
}

// Run reads table from repo and profiles it.
func Run(ctx context.Context, repo storage.Repository, table string, opt Options) (Profile, error) {
	cols := ddl.RawLayoffs(table).ColumnNames()
	rows, err := repo.ReadRows(ctx, table, cols)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "inspect: read %s", table)
	}
	t, err := transformer.NewTable(table, cols, rows)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "inspect: decode %s", table)
	}
	return Table(t, opt), nil
}

// Table profiles t.
func Table(t *transformer.Table, opt Options) Profile {
	opt = opt.withDefaults()
	p := Profile{
		Table:      t.Name,
		Rows:       len(t.Rows),
		DateLayout: opt.DateLayout,
		DateTyped:  t.DateTyped,
	}

	freq := make(map[string]map[string]int, len(record.Columns))
	for _, col := range record.Columns {
		cp, f := profileColumn(t, col, opt.TopN)
		p.Columns = append(p.Columns, cp)
		freq[col] = f
	}

	p.DuplicateGroups, p.DuplicateRows = duplicates(t.Rows)

	for _, col := range record.Columns {
		if record.Kind(col) != record.KindText || col == record.ColDate {
			continue
		}
		p.Twins = append(p.Twins, twins(col, freq[col], opt.Terminators)...)
	}
	for _, col := range opt.ClusterColumns {
		p.Clusters = append(p.Clusters, clusters(col, freq[col], opt.MinPrefix)...)
	}

	if !t.DateTyped {
		for _, r := range t.Rows {
			if r.Date == nil {
				continue
			}
			if _, err := record.ParseDate(opt.DateLayout, *r.Date); err != nil {
				p.BadDates = append(p.BadDates, transformer.BadValue{Seq: r.Seq, Value: *r.Date})
			}
		}
	}
	return p
}

func profileColumn(t *transformer.Table, col string, topN int) (ColumnProfile, map[string]int) {
	cp := ColumnProfile{Name: col, Kind: record.Kind(col)}
	if col == record.ColDate && t.DateTyped {
		cp.Kind = record.KindDate
	}
	f := map[string]int{}
	for _, r := range t.Rows {
		v := r.Value(col)
		if v == nil {
			cp.Nulls++
			continue
		}
		s := formatValue(v)
		if s == "" {
			cp.Empty++
		} else if strings.TrimFunc(s, unicode.IsSpace) != s {
			cp.Padded++
		}
		f[s]++
	}
	cp.Distinct = len(f)
	cp.Top = top(f, topN)
	return cp, f
}

// duplicates counts groups of rows equal across every business column.
func duplicates(rows []*record.Layoff) (groups, surplus int) {
	type bucket struct {
		rep  *record.Layoff
		size int
	}
	seen := map[uint64][]*bucket{}
	for _, r := range rows {
		fp := record.Fingerprint(r, record.Columns)
		var hit *bucket
		for _, b := range seen[fp] {
			if record.Equal(b.rep, r, record.Columns) {
				hit = b
				break
			}
		}
		if hit == nil {
			seen[fp] = append(seen[fp], &bucket{rep: r, size: 1})
			continue
		}
		hit.size++
		if hit.size == 2 {
			groups++
		}
		surplus++
	}
	return groups, surplus
}

func twins(col string, f map[string]int, terms []string) []Twin {
	var out []Twin
	for v, n := range f {
		for _, term := range terms {
			bare, ok := strings.CutSuffix(v, term)
			if !ok || bare == "" {
				continue
			}
			if _, exists := f[bare]; exists {
				out = append(out, Twin{Column: col, Value: v, Bare: bare, Rows: n})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// clusters finds labels sharing a case-folded prefix that is itself a label.
func clusters(col string, f map[string]int, minPrefix int) []Cluster {
	type label struct {
		orig, folded string
		n            int
	}
	fold := cases.Fold()
	labels := make([]label, 0, len(f))
	for v, n := range f {
		if v == "" {
			continue
		}
		labels = append(labels, label{orig: v, folded: fold.String(strings.TrimFunc(v, unicode.IsSpace)), n: n})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].folded != labels[j].folded {
			return labels[i].folded < labels[j].folded
		}
		return labels[i].orig < labels[j].orig
	})

	var out []Cluster
	for i := 0; i < len(labels); {
		root := labels[i]
		j := i + 1
		for j < len(labels) && strings.HasPrefix(labels[j].folded, root.folded) {
			j++
		}
		if j-i > 1 && len([]rune(root.folded)) >= minPrefix {
			c := Cluster{Column: col, Root: root.orig}
			for _, l := range labels[i:j] {
				c.Values = append(c.Values, ValueCount{Value: l.orig, Count: l.n})
			}
			out = append(out, c)
		}
		i = j
	}
	return out
}

func top(f map[string]int, n int) []ValueCount {
	out := make([]ValueCount, 0, len(f))
	for v, c := range f {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// formatValue renders a stored value the way the exporter writes it.
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(record.ISODateLayout)
	default:
		return fmt.Sprint(x)
	}
}
