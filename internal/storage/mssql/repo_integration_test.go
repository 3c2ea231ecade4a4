//go:build integration

package mssql

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"layoffs/internal/ddl"
	"layoffs/internal/record"
	"layoffs/internal/storage"
)

// getTestDSN reads the MSSQL_TEST_DSN environment variable.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

// TestSnapshotAndReplaceIntegration runs the snapshot and swap path against
// a real SQL Server.
func TestSnapshotAndReplaceIntegration(t *testing.T) {
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewRepository(ctx, storage.Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer repo.Close()

	src, dst := "dbo.layoffs_it", "dbo.layoffs_it_staging"
	for _, tbl := range []string{src, dst} {
		if err := repo.DropTable(ctx, tbl); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.CreateTable(ctx, ddl.RawLayoffs(src)); err != nil {
		t.Fatal(err)
	}
	rows := [][]any{{"Acme", "NYC", "Retail", int64(5), "5%", "1/2/2023", "Seed", "United States", nil}}
	if _, err := repo.CopyFrom(ctx, src, record.Columns, rows); err != nil {
		t.Fatal(err)
	}
	if n, err := repo.Snapshot(ctx, src, dst); err != nil || n != 1 {
		t.Fatalf("Snapshot = %d, %v", n, err)
	}
	var pe *storage.PreconditionError
	if _, err := repo.Snapshot(ctx, src, dst); !errors.As(err, &pe) {
		t.Fatalf("second Snapshot err = %v", err)
	}
	if err := repo.ReplaceTable(ctx, ddl.CleanedLayoffs(dst, true, false), nil); err != nil {
		t.Fatal(err)
	}
}
