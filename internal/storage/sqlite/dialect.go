// Package sqlite is the default storage backend: an embedded, pure-Go SQLite
// database (modernc.org/sqlite) driven through the shared sqldb repository.
package sqlite

import (
	"fmt"
	"strings"
	"time"

	"layoffs/internal/record"
)

// Dialect implements sqldb.Dialect for SQLite.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) QuoteIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// MapType maps a logical kind onto a SQLite declared type. Dates are stored
// as ISO-8601 text under a DATE declaration.
func (Dialect) MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case record.KindInt, "integer", "bigint":
		return "INTEGER"
	case record.KindDate:
		return "DATE"
	case record.KindText, "string":
		return "TEXT"
	}
	return ""
}

func (Dialect) TableExistsQuery(table string) (string, []any) {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []any{tableName(table)}
}

func (Dialect) CreateLikeSQL(src, dst string) string {
	return fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s WHERE 0", dst, src)
}

// ScanOrder uses the implicit rowid, which follows insertion order.
func (Dialect) ScanOrder() string { return " ORDER BY rowid" }

func (d Dialect) RenameSQL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteFQN(d, from), d.QuoteIdent(to))
}

func (d Dialect) InsertSQL(table string, columns []string) (string, bool) {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteFQN(d, table), strings.Join(cols, ", "), strings.Join(marks, ", ")), false
}

// Bind stores dates as plain YYYY-MM-DD text.
func (Dialect) Bind(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(record.ISODateLayout)
	}
	return v
}

func tableName(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

func quoteFQN(d Dialect, fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}
