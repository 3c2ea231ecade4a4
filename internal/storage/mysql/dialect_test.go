package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"layoffs/internal/record"
	"layoffs/internal/storage"
	"layoffs/internal/storage/sqldb"
)

var _ sqldb.Dialect = Dialect{}

func TestDialectStatements(t *testing.T) {
	d := Dialect{}

	assert.Equal(t, "`we``ird`", d.QuoteIdent("we`ird"))
	assert.Equal(t, "CREATE TABLE `b` LIKE `a`", d.CreateLikeSQL("`a`", "`b`"))
	assert.Equal(t, "RENAME TABLE `t__next` TO `t`", d.RenameSQL("t__next", "t"))
	assert.Equal(t, "RENAME TABLE `db`.`t__next` TO `db`.`t`", d.RenameSQL("db.t__next", "t"))

	stmt, bulk := d.InsertSQL("layoffs", []string{record.ColCompany, record.ColDate})
	assert.False(t, bulk)
	assert.Equal(t, "INSERT INTO `layoffs` (`company`, `date`) VALUES (?, ?)", stmt)

	q, args := d.TableExistsQuery("world.layoffs")
	assert.Contains(t, q, "table_schema = ?")
	assert.Equal(t, []any{"world", "layoffs"}, args)

	_, args = d.TableExistsQuery("layoffs")
	assert.Equal(t, []any{"layoffs"}, args)
}

func TestDialectMapType(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, "BIGINT", d.MapType(record.KindInt))
	assert.Equal(t, "DATE", d.MapType(record.KindDate))
	assert.Equal(t, "TEXT", d.MapType(record.KindText))
	assert.Empty(t, d.MapType("json"))
}

func TestRegistrationUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	want := errors.New("no server")
	var got storage.Config
	newRepository = func(_ context.Context, cfg storage.Config) (*sqldb.Repository, error) {
		got = cfg
		return nil, want
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(db:3306)/world"})
	assert.ErrorIs(t, err, want)
	assert.Nil(t, repo)
	assert.Equal(t, "u:p@tcp(db:3306)/world", got.DSN)
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	_, err := NewRepository(context.Background(), storage.Config{DSN: "not a dsn"})
	assert.Error(t, err)
}
