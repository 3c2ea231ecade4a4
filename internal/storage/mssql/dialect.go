// Package mssql is the Microsoft SQL Server backend. Row loads go through the
// go-mssqldb bulk copy API; everything else is plain T-SQL via sqldb.
package mssql

import (
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"layoffs/internal/record"
)

// Dialect implements sqldb.Dialect for SQL Server.
type Dialect struct{}

func (Dialect) Name() string { return "mssql" }

func (Dialect) QuoteIdent(s string) string { return msIdent(s) }

// MapType maps logical kinds onto SQL Server types.
func (Dialect) MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case record.KindInt, "integer", "bigint":
		return "BIGINT"
	case record.KindDate:
		return "DATE"
	case record.KindText, "string":
		return "NVARCHAR(MAX)"
	}
	return ""
}

func (Dialect) TableExistsQuery(table string) (string, []any) {
	return "SELECT CASE WHEN OBJECT_ID(@p1, 'U') IS NULL THEN 0 ELSE 1 END", []any{table}
}

func (Dialect) CreateLikeSQL(src, dst string) string {
	return fmt.Sprintf("SELECT * INTO %s FROM %s WHERE 1 = 0", dst, src)
}

// ScanOrder is empty: heap tables without a key have no defined order, the
// natural scan is the best available approximation.
func (Dialect) ScanOrder() string { return "" }

func (Dialect) RenameSQL(from, to string) string {
	return fmt.Sprintf("EXEC sp_rename %s, %s", quoteString(from), quoteString(to))
}

// InsertSQL uses the bulk copy pseudo-statement; rows are buffered by the
// driver and flushed on the final Exec.
func (Dialect) InsertSQL(table string, columns []string) (string, bool) {
	return mssql.CopyIn(table, mssql.BulkOptions{}, columns...), true
}

func (Dialect) Bind(v any) any { return v }

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.layoffs" to
// "[dbo].[layoffs]".
func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}

func quoteString(s string) string { return "N'" + strings.ReplaceAll(s, "'", "''") + "'" }
