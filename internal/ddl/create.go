// Package ddl defines a small, backend-agnostic model for the tables the
// pipeline creates and a renderer for simple CREATE TABLE statements.
//
// Backends supply the two dialect-specific pieces: how identifiers are quoted
// and how logical column kinds map onto SQL types.
package ddl

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Dialect carries the per-backend rendering hooks.
type Dialect struct {
	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(string) string
	// MapType maps a logical kind onto a SQL type.
	MapType func(kind string) string
}

// QuoteFQN quotes every dot-separated segment of a table name.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// QuoteList quotes each column name and joins them with ", ".
func (d Dialect) QuoteList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.QuoteIdent(c)
	}
	return strings.Join(out, ", ")
}

// BuildCreateTableSQL renders
//
//	CREATE TABLE <fqn> (
//	  <col> <type> [NOT NULL],
//	  ...
//	)
//
// Types come from d.MapType. No IF NOT EXISTS is emitted: callers decide
// whether an existing table is an error.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", eris.New("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", eris.New("ddl: at least one column is required")
	}
	if d.QuoteIdent == nil || d.MapType == nil {
		return "", eris.New("ddl: dialect is incomplete")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", eris.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := d.MapType(c.Type)
		if typ == "" {
			return "", eris.Errorf("ddl: column %s has unmapped type %q", name, c.Type)
		}

		col := fmt.Sprintf("%s %s", d.QuoteIdent(name), typ)
		if !c.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		d.QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

// TableName returns the last segment of a dotted table name.
func TableName(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

// SchemaName returns everything before the last dot, or "".
func SchemaName(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return fqn[:i]
	}
	return ""
}
