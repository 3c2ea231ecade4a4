package mysql

import (
	"context"

	drv "github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"

	"layoffs/internal/storage"
	"layoffs/internal/storage/sqldb"
)

// NewRepository parses the DSN (user:pass@tcp(host:3306)/db), connects and
// pings.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	if _, err := drv.ParseDSN(cfg.DSN); err != nil {
		return nil, eris.Wrap(err, "mysql: dsn")
	}
	return sqldb.Open(ctx, "mysql", cfg.DSN, Dialect{})
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
