package mssql

import (
	"context"

	"github.com/microsoft/go-mssqldb/msdsn"
	"github.com/rotisserie/eris"

	"layoffs/internal/storage"
	"layoffs/internal/storage/sqldb"
)

// NewRepository validates the DSN, connects and pings.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, eris.Wrap(err, "mssql: dsn")
	}
	return sqldb.Open(ctx, "sqlserver", cfg.DSN, Dialect{})
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
