// Package postgres implements storage.Repository on pgx v5. Bulk loads use
// COPY; the rewrite of the working table is a fully transactional
// shadow-table swap.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"layoffs/internal/ddl"
	"layoffs/internal/record"
	"layoffs/internal/storage"
)

// Pool is the subset of *pgxpool.Pool the repository uses. pgxmock pools
// satisfy it as well.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Close()
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool Pool
}

var _ storage.Repository = (*Repository)(nil)

// New wraps an existing pool.
func New(pool Pool) *Repository { return &Repository{pool: pool} }

// MapType maps logical kinds onto Postgres types.
func MapType(kind string) string {
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

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return pgx.Identifier{id}.Sanitize() }

// ident splits a possibly schema-qualified name like "public.layoffs".
func ident(fqn string) pgx.Identifier { return pgx.Identifier(strings.Split(fqn, ".")) }

var dialect = ddl.Dialect{QuoteIdent: pgIdent, MapType: MapType}

// pgErr surfaces the server-side detail that pgx otherwise hides.
func pgErr(err error, op string) error {
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Detail != "" {
		return eris.Wrapf(err, "postgres: %s: %s (%s)", op, pe.Detail, pe.SQLState())
	}
	return eris.Wrapf(err, "postgres: %s", op)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const existsSQL = "SELECT to_regclass($1) IS NOT NULL"

func tableExists(ctx context.Context, q rowQuerier, table string) (bool, error) {
	var ok bool
	if err := q.QueryRow(ctx, existsSQL, table).Scan(&ok); err != nil {
		return false, pgErr(err, "table exists "+table)
	}
	return ok, nil
}

// TableExists implements storage.Repository.
func (r *Repository) TableExists(ctx context.Context, table string) (bool, error) {
	return tableExists(ctx, r.pool, table)
}

// CreateTable implements storage.Repository.
func (r *Repository) CreateTable(ctx context.Context, def ddl.TableDef) error {
	stmt, err := ddl.BuildCreateTableSQL(def, dialect)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, stmt); err != nil {
		return pgErr(err, "create table "+def.FQN)
	}
	return nil
}

// DropTable implements storage.Repository.
func (r *Repository) DropTable(ctx context.Context, table string) error {
	if _, err := r.pool.Exec(ctx, "DROP TABLE IF EXISTS "+ident(table).Sanitize()); err != nil {
		return pgErr(err, "drop table "+table)
	}
	return nil
}

// CopyFrom implements storage.Repository with COPY FROM STDIN.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, ident(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, pgErr(err, "copy into "+table)
	}
	return n, nil
}

// Snapshot implements storage.Repository.
func (r *Repository) Snapshot(ctx context.Context, source, target string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, pgErr(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	exists, err := tableExists(ctx, tx, target)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, &storage.PreconditionError{Table: target}
	}

	src, dst := ident(source).Sanitize(), ident(target).Sanitize()
	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (LIKE %s INCLUDING ALL)", dst, src)); err != nil {
		return 0, pgErr(err, "create "+target)
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s SELECT * FROM %s ORDER BY ctid", dst, src))
	if err != nil {
		return 0, pgErr(err, "copy "+source)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, pgErr(err, "commit")
	}
	zap.L().Debug("snapshot created",
		zap.String("backend", "postgres"),
		zap.String("source", source),
		zap.String("target", target),
		zap.Int64("rows", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// ReadRows implements storage.Repository. ctid order matches insertion order
// for tables that have not been updated in place.
func (r *Repository) ReadRows(ctx context.Context, table string, columns []string) ([][]any, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY ctid", dialect.QuoteList(columns), ident(table).Sanitize())
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, pgErr(err, "select "+table)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, pgErr(err, "scan "+table)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(err, "iterate "+table)
	}
	return out, nil
}

// ShadowSuffix names the table ReplaceTable builds before swapping it in.
const ShadowSuffix = "__next"

// ReplaceTable implements storage.Repository in one transaction.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any) error {
	shadow := def
	shadow.FQN = def.FQN + ShadowSuffix
	create, err := ddl.BuildCreateTableSQL(shadow, dialect)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return pgErr(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident(shadow.FQN).Sanitize()); err != nil {
		return pgErr(err, "drop shadow")
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return pgErr(err, "create shadow")
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, ident(shadow.FQN), def.ColumnNames(), pgx.CopyFromRows(rows)); err != nil {
			return pgErr(err, "copy into shadow")
		}
	}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident(def.FQN).Sanitize()); err != nil {
		return pgErr(err, "drop "+def.FQN)
	}
	rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", ident(shadow.FQN).Sanitize(), pgIdent(ddl.TableName(def.FQN)))
	if _, err := tx.Exec(ctx, rename); err != nil {
		return pgErr(err, "rename shadow")
	}
	if err := tx.Commit(ctx); err != nil {
		return pgErr(err, "commit")
	}
	return nil
}

// Exec implements storage.Repository.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return pgErr(err, "exec")
	}
	return nil
}

// Close implements storage.Repository.
func (r *Repository) Close() { r.pool.Close() }
