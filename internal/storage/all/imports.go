// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it runs the init functions of
// each backend, which register their factories with the storage package:
//
//   - "sqlite"   (layoffs/internal/storage/sqlite), the default
//   - "postgres" (layoffs/internal/storage/postgres)
//   - "mysql"    (layoffs/internal/storage/mysql)
//   - "mssql"    (layoffs/internal/storage/mssql)
//
// Typical usage in a wiring layer:
//
//	import _ "layoffs/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: p.Storage.Kind, DSN: p.Storage.DB.DSN})
//
// A binary that needs only a subset of backends can import the individual
// packages instead.
package all

import (
	_ "layoffs/internal/storage/mssql"
	_ "layoffs/internal/storage/mysql"
	_ "layoffs/internal/storage/postgres"
	_ "layoffs/internal/storage/sqlite"
)
