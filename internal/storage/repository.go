// Package storage contains storage-agnostic contracts for the cleaning
// pipeline: the Repository interface every backend implements, a small
// factory keyed by storage kind, and a batching loader.
//
// Backends register themselves from init; import layoffs/internal/storage/all (or
// an individual backend package) for side effects to make them available.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"layoffs/internal/ddl"
)

// Repository is the minimal set of relational operations the pipeline needs.
// Rows are positional []any aligned to the requested columns; NULL is nil.
type Repository interface {
	// TableExists reports whether table is present.
	TableExists(ctx context.Context, table string) (bool, error)

	// CreateTable creates def. It fails when the table already exists.
	CreateTable(ctx context.Context, def ddl.TableDef) error

	// DropTable drops table if it exists.
	DropTable(ctx context.Context, table string) error

	// CopyFrom bulk-inserts rows into table and returns the inserted count.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Snapshot creates target with the layout of source and copies every row.
	// It returns *PreconditionError when target already exists.
	Snapshot(ctx context.Context, source, target string) (int64, error)

	// ReadRows returns every row of table in ingestion order.
	ReadRows(ctx context.Context, table string, columns []string) ([][]any, error)

	// ReplaceTable rewrites def.FQN with def's layout and exactly rows, in a
	// single transaction where the backend supports transactional DDL.
	ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any) error

	// Exec runs an arbitrary statement.
	Exec(ctx context.Context, sql string) error

	Close()
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name: "sqlite", "postgres", "mysql",
	// "mssql".
	Kind string
	// DSN is passed to the backend driver as-is.
	DSN string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, eris.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
