package builtin

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"layoffs/internal/record"
	"layoffs/internal/transformer"
)

// Match modes for CollapseRule.
const (
	MatchPrefix = "prefix"
	MatchExact  = "exact"
)

// CollapseRule rewrites every value of Column that matches Pattern to
// Canonical.
type CollapseRule struct {
	Column    string
	Match     string // MatchPrefix (default) or MatchExact
	Pattern   string
	Canonical string
	FoldCase  bool
}

// StripRule removes one trailing Terminator from values of Column.
//
// With Prefix set, every value starting with Prefix is stripped. Without it,
// a value is only stripped when the stripped form already occurs in the
// column, which aligns "France." with an existing "France" but leaves a lone
// "Inc." alone.
type StripRule struct {
	Column     string
	Terminator string
	Prefix     string
}

// Normalize cleans field formatting. Operations run in a fixed order: trim,
// collapse, strip, date. The date reparse always runs last so the typed
// column is built from already cleaned text.
type Normalize struct {
	// Trim lists the columns whose values lose surrounding whitespace.
	Trim []string
	// NFC additionally composes trimmed values to Unicode NFC.
	NFC      bool
	Collapse []CollapseRule
	Strip    []StripRule
	// Date, when set, reparses the date column into calendar dates.
	Date *DateReparse
}

func (Normalize) Name() string { return "normalize" }

// Apply runs the configured operations on a copy of the rows and installs
// the copy only when every operation succeeded.
func (n Normalize) Apply(ctx context.Context, t *transformer.Table) (transformer.Report, error) {
	rep := transformer.NewReport(n.Name(), t)

	if err := n.check(); err != nil {
		return rep, err
	}

	work := t.Clone()

	for _, col := range n.Trim {
		rep.Add("trimmed", mapText(work, col, func(v string) string {
			v = trimValue(v)
			if n.NFC {
				v = norm.NFC.String(v)
			}
			return v
		}))
	}

	for _, r := range n.Collapse {
		rep.Add("collapsed", collapse(work, r))
	}

	for _, r := range n.Strip {
		rep.Add("stripped", strip(work, r))
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	if n.Date != nil {
		parsed, err := n.Date.apply(work)
		if err != nil {
			return rep, err
		}
		rep.Add("dates_parsed", parsed)
	}

	*t = *work
	return rep, nil
}

func (n Normalize) check() error {
	text := func(op, col string) error {
		if record.Kind(col) != record.KindText || !record.IsColumn(col) {
			return eris.Errorf("normalize: %s: %q is not a text column", op, col)
		}
		return nil
	}
	for _, c := range n.Trim {
		if err := text("trim", c); err != nil {
			return err
		}
	}
	for _, r := range n.Collapse {
		if err := text("collapse", r.Column); err != nil {
			return err
		}
		if r.Match != "" && r.Match != MatchPrefix && r.Match != MatchExact {
			return eris.Errorf("normalize: collapse: unknown match mode %q", r.Match)
		}
		if r.Pattern == "" || r.Canonical == "" {
			return eris.New("normalize: collapse: pattern and canonical are required")
		}
	}
	for _, r := range n.Strip {
		if err := text("strip_trailing", r.Column); err != nil {
			return err
		}
		if r.Terminator == "" {
			return eris.New("normalize: strip_trailing: terminator is required")
		}
	}
	if n.Date != nil && n.Date.column() != record.ColDate {
		return eris.Errorf("normalize: date: %q cannot be reparsed", n.Date.Column)
	}
	return nil
}

// trimValue turns no-break spaces into plain spaces and removes surrounding
// Unicode whitespace.
func trimValue(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, "\u00a0", " "))
}

// mapText applies fn to every non-NULL value of col and returns how many
// values changed.
func mapText(t *transformer.Table, col string, fn func(string) string) int {
	changed := 0
	for _, r := range t.Rows {
		v, _ := r.Text(col)
		if v == nil {
			continue
		}
		if nv := fn(*v); nv != *v {
			_ = r.SetText(col, record.Str(nv))
			changed++
		}
	}
	return changed
}

func collapse(t *transformer.Table, r CollapseRule) int {
	fold := func(s string) string { return s }
	if r.FoldCase {
		c := cases.Fold()
		fold = c.String
	}
	pattern := fold(r.Pattern)
	matches := func(v string) bool {
		if r.Match == MatchExact {
			return fold(v) == pattern
		}
		return strings.HasPrefix(fold(v), pattern)
	}
	return mapText(t, r.Column, func(v string) string {
		if matches(v) {
			return r.Canonical
		}
		return v
	})
}

func strip(t *transformer.Table, r StripRule) int {
	var existing map[string]bool
	if r.Prefix == "" {
		existing = map[string]bool{}
		for _, row := range t.Rows {
			if v, _ := row.Text(r.Column); v != nil {
				existing[*v] = true
			}
		}
	}
	return mapText(t, r.Column, func(v string) string {
		if !strings.HasSuffix(v, r.Terminator) {
			return v
		}
		s := strings.TrimSuffix(v, r.Terminator)
		switch {
		case r.Prefix != "" && strings.HasPrefix(v, r.Prefix):
			return s
		case r.Prefix == "" && existing[s]:
			return s
		}
		return v
	})
}
