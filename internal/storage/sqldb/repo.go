// Package sqldb implements storage.Repository on top of database/sql. The
// SQL that differs between engines is supplied by a Dialect; the sqlite,
// mysql and mssql backends are thin Dialect implementations over this type.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"layoffs/internal/ddl"
	"layoffs/internal/storage"
)

// Dialect captures the engine-specific SQL.
type Dialect interface {
	// Name is used in error messages and logs.
	Name() string
	QuoteIdent(s string) string
	MapType(kind string) string

	// TableExistsQuery returns a query yielding a single integer, non-zero
	// when table exists.
	TableExistsQuery(table string) (string, []any)

	// CreateLikeSQL creates an empty dst with the column layout of src.
	CreateLikeSQL(src, dst string) string

	// ScanOrder is appended to full-table SELECTs so rows come back in
	// ingestion order. Empty when the engine has no stable physical order.
	ScanOrder() string

	// RenameSQL renames table from to the unqualified name to.
	RenameSQL(from, to string) string

	// InsertSQL returns the statement to prepare for row-by-row inserts. When
	// bulk is true the prepared statement buffers rows and must be flushed
	// with a final argument-less Exec.
	InsertSQL(table string, columns []string) (stmt string, bulk bool)

	// Bind converts a value before it is handed to the driver.
	Bind(v any) any
}

// Repository is a database/sql backed storage.Repository.
type Repository struct {
	db *sql.DB
	d  Dialect
}

var _ storage.Repository = (*Repository)(nil)

// Open opens driverName with dsn and pings it.
func Open(ctx context.Context, driverName, dsn string, d Dialect) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, eris.Errorf("%s: DSN must not be empty", d.Name())
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: open", d.Name())
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, eris.Wrapf(err, "%s: ping", d.Name())
	}
	return New(db, d), nil
}

// New wraps an already opened handle.
func New(db *sql.DB, d Dialect) *Repository {
	return &Repository{db: db, d: d}
}

// DB exposes the underlying handle.
func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) ddlDialect() ddl.Dialect {
	return ddl.Dialect{QuoteIdent: r.d.QuoteIdent, MapType: r.d.MapType}
}

func (r *Repository) fqn(table string) string { return r.ddlDialect().QuoteFQN(table) }

// TableExists implements storage.Repository.
func (r *Repository) TableExists(ctx context.Context, table string) (bool, error) {
	return r.tableExists(ctx, r.db, table)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) tableExists(ctx context.Context, q queryer, table string) (bool, error) {
	query, args := r.d.TableExistsQuery(table)
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, eris.Wrapf(err, "%s: table exists %s", r.d.Name(), table)
	}
	return n != 0, nil
}

// CreateTable implements storage.Repository.
func (r *Repository) CreateTable(ctx context.Context, def ddl.TableDef) error {
	stmt, err := ddl.BuildCreateTableSQL(def, r.ddlDialect())
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrapf(err, "%s: create table %s", r.d.Name(), def.FQN)
	}
	return nil
}

// DropTable implements storage.Repository.
func (r *Repository) DropTable(ctx context.Context, table string) error {
	if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+r.fqn(table)); err != nil {
		return eris.Wrapf(err, "%s: drop table %s", r.d.Name(), table)
	}
	return nil
}

// CopyFrom inserts rows inside a single transaction with a prepared
// statement.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, eris.Errorf("%s: CopyFrom: columns must not be empty", r.d.Name())
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: begin tx", r.d.Name())
	}
	n, err := r.insert(ctx, tx, table, columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return n, err
	}
	if err := tx.Commit(); err != nil {
		return n, eris.Wrapf(err, "%s: commit", r.d.Name())
	}
	return n, nil
}

func (r *Repository) insert(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmtSQL, bulk := r.d.InsertSQL(table, columns)
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: prepare insert", r.d.Name())
	}
	defer stmt.Close()

	var inserted int64
	args := make([]any, len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return inserted, eris.Errorf("%s: row length %d != columns length %d", r.d.Name(), len(row), len(columns))
		}
		for i, v := range row {
			args[i] = r.d.Bind(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return inserted, eris.Wrapf(err, "%s: insert", r.d.Name())
		}
		inserted++
	}
	if bulk {
		if _, err := stmt.ExecContext(ctx); err != nil {
			return 0, eris.Wrapf(err, "%s: bulk flush", r.d.Name())
		}
	}
	return inserted, nil
}

// Snapshot implements storage.Repository. The existence check and the copy
// run in one transaction.
func (r *Repository) Snapshot(ctx context.Context, source, target string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: begin tx", r.d.Name())
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := r.tableExists(ctx, tx, target)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, &storage.PreconditionError{Table: target}
	}
	if _, err := tx.ExecContext(ctx, r.d.CreateLikeSQL(r.fqn(source), r.fqn(target))); err != nil {
		return 0, eris.Wrapf(err, "%s: create %s like %s", r.d.Name(), target, source)
	}
	copySQL := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s%s", r.fqn(target), r.fqn(source), r.d.ScanOrder())
	res, err := tx.ExecContext(ctx, copySQL)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: copy %s into %s", r.d.Name(), source, target)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrapf(err, "%s: rows affected", r.d.Name())
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "%s: commit", r.d.Name())
	}
	zap.L().Debug("snapshot created",
		zap.String("backend", r.d.Name()),
		zap.String("source", source),
		zap.String("target", target),
		zap.Int64("rows", n))
	return n, nil
}

// ReadRows implements storage.Repository.
//
// SQLite resolves an unknown double-quoted identifier to a string literal, so
// the requested columns are checked against the table first.
func (r *Repository) ReadRows(ctx context.Context, table string, columns []string) ([][]any, error) {
	if err := r.checkColumns(ctx, table, columns); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s%s", r.ddlDialect().QuoteList(columns), r.fqn(table), r.d.ScanOrder())
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: select %s", r.d.Name(), table)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(err, "%s: scan %s", r.d.Name(), table)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "%s: iterate %s", r.d.Name(), table)
	}
	return out, nil
}

// checkColumns returns *storage.ColumnError for the first column of want
// that table lacks. Names compare case-insensitively.
func (r *Repository) checkColumns(ctx context.Context, table string, want []string) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", r.fqn(table)))
	if err != nil {
		return eris.Wrapf(err, "%s: select %s", r.d.Name(), table)
	}
	defer rows.Close()
	have, err := rows.Columns()
	if err != nil {
		return eris.Wrapf(err, "%s: columns of %s", r.d.Name(), table)
	}
	present := make(map[string]bool, len(have))
	for _, c := range have {
		present[strings.ToLower(c)] = true
	}
	for _, c := range want {
		if !present[strings.ToLower(c)] {
			return &storage.ColumnError{Table: table, Column: c}
		}
	}
	return nil
}

// ShadowSuffix names the table ReplaceTable builds before swapping it in.
const ShadowSuffix = "__next"

// ReplaceTable builds def under a shadow name, fills it, drops the original
// and renames the shadow into place. Engines without transactional DDL
// (MySQL) commit implicitly between statements.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any) error {
	shadow := def
	shadow.FQN = def.FQN + ShadowSuffix
	create, err := ddl.BuildCreateTableSQL(shadow, r.ddlDialect())
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "%s: begin tx", r.d.Name())
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{"DROP TABLE IF EXISTS " + r.fqn(shadow.FQN), create}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return eris.Wrapf(err, "%s: replace %s", r.d.Name(), def.FQN)
		}
	}
	if len(rows) > 0 {
		if _, err := r.insert(ctx, tx, shadow.FQN, def.ColumnNames(), rows); err != nil {
			return err
		}
	}
	steps = []string{
		"DROP TABLE IF EXISTS " + r.fqn(def.FQN),
		r.d.RenameSQL(shadow.FQN, ddl.TableName(def.FQN)),
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return eris.Wrapf(err, "%s: swap %s", r.d.Name(), def.FQN)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "%s: commit", r.d.Name())
	}
	return nil
}

// Exec implements storage.Repository.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrapf(err, "%s: exec", r.d.Name())
	}
	return nil
}

// Close implements storage.Repository.
func (r *Repository) Close() { _ = r.db.Close() }
