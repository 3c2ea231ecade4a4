package sqlite

import (
	"context"

	_ "modernc.org/sqlite"

	"layoffs/internal/storage"
	"layoffs/internal/storage/sqldb"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// NewRepository opens dsn, e.g. "layoffs.db" or "file::memory:". SQLite
// allows a single writer, so the pool is capped at one connection; this also
// keeps in-memory databases alive for the life of the repository.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	r, err := sqldb.Open(ctx, DriverName, cfg.DSN, Dialect{})
	if err != nil {
		return nil, err
	}
	r.DB().SetMaxOpenConns(1)
	return r, nil
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
