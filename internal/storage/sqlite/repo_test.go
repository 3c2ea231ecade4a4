package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"layoffs/internal/ddl"
	"layoffs/internal/record"
	"layoffs/internal/storage"
	"layoffs/internal/storage/sqldb"
)

/*
Package-level test helpers
*/

func newRepo(tb testing.TB) *sqldb.Repository {
	tb.Helper()
	r, err := NewRepository(context.Background(), storage.Config{DSN: ":memory:"})
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(r.Close)
	return r
}

func rawRow(company string, total any, date string) []any {
	return []any{company, "SF", "Retail", total, nil, date, "Post-IPO", "United States", nil}
}

func seedRaw(tb testing.TB, r *sqldb.Repository, table string, rows ...[]any) {
	tb.Helper()
	ctx := context.Background()
	if err := r.CreateTable(ctx, ddl.RawLayoffs(table)); err != nil {
		tb.Fatalf("CreateTable: %v", err)
	}
	if _, err := r.CopyFrom(ctx, table, record.Columns, rows); err != nil {
		tb.Fatalf("CopyFrom: %v", err)
	}
}

/*
Unit tests
*/

// TestCopyFromAndReadRowsKeepOrder loads rows and reads them back in
// insertion order with NULLs preserved.
func TestCopyFromAndReadRowsKeepOrder(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	seedRaw(t, r, "layoffs",
		rawRow("Zeta", int64(5), "3/1/2022"),
		rawRow("Alpha", nil, "4/1/2022"),
		rawRow("Mid", int64(7), "5/1/2022"),
	)

	got, err := r.ReadRows(ctx, "layoffs", record.Columns)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	for i, want := range []string{"Zeta", "Alpha", "Mid"} {
		if got[i][0] != want {
			t.Fatalf("row %d company = %v, want %s", i, got[i][0], want)
		}
	}
	if got[1][3] != nil {
		t.Fatalf("NULL total_laid_off came back as %v", got[1][3])
	}
	if got[0][3] != int64(5) {
		t.Fatalf("total_laid_off = %#v, want int64(5)", got[0][3])
	}
}

// TestCopyFromRejectsRaggedRows checks the row width guard.
func TestCopyFromRejectsRaggedRows(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if err := r.CreateTable(ctx, ddl.RawLayoffs("layoffs")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CopyFrom(ctx, "layoffs", record.Columns, [][]any{{"short"}}); err == nil {
		t.Fatal("expected error for short row")
	}
	rows, err := r.ReadRows(ctx, "layoffs", record.Columns)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("failed batch must roll back, got %d rows", len(rows))
	}
}

// TestSnapshot copies the source and refuses to overwrite an existing target.
func TestSnapshot(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	seedRaw(t, r, "layoffs",
		rawRow("A", int64(1), "1/1/2022"),
		rawRow("A", int64(1), "1/1/2022"),
		rawRow("B", nil, "1/2/2022"),
	)

	n, err := r.Snapshot(ctx, "layoffs", "layoffs_staging")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if n != 3 {
		t.Fatalf("snapshot rows = %d, want 3", n)
	}

	ok, err := r.TableExists(ctx, "layoffs_staging")
	if err != nil || !ok {
		t.Fatalf("TableExists = %v, %v", ok, err)
	}
	staged, err := r.ReadRows(ctx, "layoffs_staging", record.Columns)
	if err != nil {
		t.Fatal(err)
	}
	src, err := r.ReadRows(ctx, "layoffs", record.Columns)
	if err != nil {
		t.Fatal(err)
	}
	if len(staged) != len(src) {
		t.Fatalf("staged=%d src=%d", len(staged), len(src))
	}
	for i := range src {
		for j := range src[i] {
			if src[i][j] != staged[i][j] {
				t.Fatalf("row %d col %d: %#v != %#v", i, j, staged[i][j], src[i][j])
			}
		}
	}

	_, err = r.Snapshot(ctx, "layoffs", "layoffs_staging")
	var pe *storage.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("second snapshot err = %v, want PreconditionError", err)
	}
	if pe.Table != "layoffs_staging" {
		t.Fatalf("PreconditionError.Table = %q", pe.Table)
	}
}

// TestReplaceTableRetypesDate swaps in a cleaned table whose date column is a
// DATE and checks the old contents are gone.
func TestReplaceTableRetypesDate(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	seedRaw(t, r, "layoffs_staging",
		rawRow("Old", int64(1), "1/1/2022"),
		rawRow("Old2", int64(2), "1/2/2022"),
	)

	def := ddl.CleanedLayoffs("layoffs_staging", true, false)
	d := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]any{
		{"Netflix", "SF", "Media", int64(10), "1%", d, "Post-IPO", "United States", nil},
		{"NoDate", nil, nil, int64(3), nil, nil, nil, nil, nil},
	}
	if err := r.ReplaceTable(ctx, def, rows); err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}

	got, err := r.ReadRows(ctx, "layoffs_staging", record.Columns)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	l, err := record.FromValues(record.Columns, got[0])
	if err != nil {
		t.Fatal(err)
	}
	if record.Deref(l.Date) != "2022-03-01" {
		t.Fatalf("date = %q, want 2022-03-01", record.Deref(l.Date))
	}
	if got[1][5] != nil {
		t.Fatalf("NULL date became %#v", got[1][5])
	}

	if ok, _ := r.TableExists(ctx, "layoffs_staging"+sqldb.ShadowSuffix); ok {
		t.Fatal("shadow table left behind")
	}
}

func TestDropTableIsIdempotent(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if err := r.DropTable(ctx, "missing"); err != nil {
		t.Fatalf("DropTable(missing): %v", err)
	}
	seedRaw(t, r, "t")
	if err := r.DropTable(ctx, "t"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := r.TableExists(ctx, "t"); ok {
		t.Fatal("table still present")
	}
}

// TestReadRowsUnknownColumn reads a column the table lacks. SQLite would
// otherwise return the quoted name as a literal on every row.
func TestReadRowsUnknownColumn(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seedRaw(t, r, "layoffs", rawRow("Acme", int64(1), "1/1/2023"))

	rows, err := r.ReadRows(ctx, "layoffs", []string{record.ColCompany, record.ColRowNum})
	var colErr *storage.ColumnError
	if !errors.As(err, &colErr) {
		t.Fatalf("err = %v (rows %v), want *storage.ColumnError", err, rows)
	}
	if colErr.Table != "layoffs" || colErr.Column != record.ColRowNum {
		t.Fatalf("ColumnError = %+v", colErr)
	}

	// Case differences are not missing columns.
	got, err := r.ReadRows(ctx, "layoffs", []string{"COMPANY"})
	if err != nil {
		t.Fatalf("ReadRows(COMPANY): %v", err)
	}
	if len(got) != 1 || got[0][0] != "Acme" {
		t.Fatalf("ReadRows(COMPANY) = %v", got)
	}
}

func TestDialectMapType(t *testing.T) {
	t.Parallel()

	tests := []struct{ kind, want string }{
		{record.KindInt, "INTEGER"},
		{" BIGINT ", "INTEGER"},
		{record.KindText, "TEXT"},
		{record.KindDate, "DATE"},
		{"blob", ""},
	}
	for _, tt := range tests {
		if got := (Dialect{}).MapType(tt.kind); got != tt.want {
			t.Fatalf("MapType(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
