// Package mysql is the MySQL backend, built on github.com/go-sql-driver/mysql
// and the shared sqldb repository. MySQL DDL commits implicitly, so
// ReplaceTable is not atomic on this backend.
package mysql

import (
	"fmt"
	"strings"

	"layoffs/internal/record"
)

// Dialect implements sqldb.Dialect for MySQL.
type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) QuoteIdent(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }

func (Dialect) MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case record.KindInt, "integer", "bigint":
		return "BIGINT"
	case record.KindDate:
		return "DATE"
	case record.KindText, "string":
		return "TEXT"
	}
	return ""
}

func (Dialect) TableExistsQuery(table string) (string, []any) {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			[]any{table[:i], table[i+1:]}
	}
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		[]any{table}
}

func (Dialect) CreateLikeSQL(src, dst string) string {
	return fmt.Sprintf("CREATE TABLE %s LIKE %s", dst, src)
}

func (Dialect) ScanOrder() string { return "" }

func (d Dialect) RenameSQL(from, to string) string {
	target := d.QuoteIdent(to)
	if i := strings.LastIndex(from, "."); i >= 0 {
		target = d.QuoteIdent(from[:i]) + "." + target
	}
	return fmt.Sprintf("RENAME TABLE %s TO %s", d.fqn(from), target)
}

func (d Dialect) InsertSQL(table string, columns []string) (string, bool) {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.fqn(table), strings.Join(cols, ", "), strings.Join(marks, ", ")), false
}

func (Dialect) Bind(v any) any { return v }

func (d Dialect) fqn(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}
