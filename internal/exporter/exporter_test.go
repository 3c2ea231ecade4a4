package exporter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"layoffs/internal/ddl"
	"layoffs/internal/record"
	"layoffs/internal/storage"
	"layoffs/internal/storage/sqlite"
)

func sampleRows() [][]any {
	d := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	return [][]any{
		{"Netflix", "Los Gatos", "Media", int64(10), "3%", d, "Post-IPO", "United States", nil},
		{"Acme, Inc", nil, "Retail", nil, "10%", nil, "Seed", "Canada", int64(12)},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, record.Columns, sampleRows(), Options{BOM: true, Null: "NULL"})
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\uFEFF"))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, "\uFEFF"), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(record.Columns, ","), lines[0])
	assert.Equal(t, "Netflix,Los Gatos,Media,10,3%,2022-03-01,Post-IPO,United States,NULL", lines[1])
	assert.Equal(t, `"Acme, Inc",NULL,Retail,NULL,10%,NULL,Seed,Canada,12`, lines[2])
}

func TestWriteCSV_Semicolon(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"a", "b"}, [][]any{{"x", int64(1)}}, Options{Comma: ';'}))
	assert.Equal(t, "a;b\nx;1\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, record.Columns, sampleRows(), Options{Sheet: "clean"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"clean"}, f.GetSheetList())
	rows, err := f.GetRows("clean")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, record.Columns, rows[0])
	assert.Equal(t, "2022-03-01", rows[1][5])
	assert.Equal(t, "10", rows[1][3])
	assert.Equal(t, "", rows[2][1])
}

func TestExport_FromRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.NewRepository(ctx, storage.Config{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	require.NoError(t, repo.CreateTable(ctx, ddl.CleanedLayoffs("layoffs_staging", true, false)))
	_, err = repo.CopyFrom(ctx, "layoffs_staging", record.Columns, sampleRows())
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Export(ctx, repo, "layoffs_staging", &buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "2022-03-01")

	_, err = Export(ctx, repo, "layoffs_staging", &buf, Options{Format: "parquet"})
	assert.ErrorContains(t, err, "unsupported export.format=parquet")

	_, err = Export(ctx, repo, "missing", &buf, Options{})
	assert.Error(t, err)
}

func TestExport_TableMissingColumns(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.NewRepository(ctx, storage.Config{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	require.NoError(t, repo.Exec(ctx, `CREATE TABLE partial (company TEXT)`))
	require.NoError(t, repo.Exec(ctx, `INSERT INTO partial VALUES ('Acme')`))

	var buf bytes.Buffer
	_, err = Export(ctx, repo, "partial", &buf, Options{})
	var colErr *storage.ColumnError
	require.True(t, errors.As(err, &colErr), "err = %v", err)
	assert.Equal(t, record.ColLocation, colErr.Column)
	assert.Zero(t, buf.Len())
}
