// Package migrations provides the public API for registering database migrations.
// It exports the script type and the registry accessor that migration files use to
// register themselves with the global migration registry.
//
// Migration files live under {backend}/{connection}/ as a pair of SQL files plus a
// generated Go file that embeds them:
//
//	sqlite/core/20250610000000_remove_auth_tables.up.sql
//	sqlite/core/20250610000000_remove_auth_tables.down.sql
//	sqlite/core/20250610000000_remove_auth_tables.go
//
// The Go file is produced by "slidesdb build" from GoFileTemplate and looks like:
//
//	package core
//
//	import (
//		_ "embed"
//
//		"github.com/Jokerealm/ai-slides/migrations"
//	)
//
//	//go:embed 20250610000000_remove_auth_tables.up.sql
//	var removeAuthTablesUpSQL string
//
//	//go:embed 20250610000000_remove_auth_tables.down.sql
//	var removeAuthTablesDownSQL string
//
//	func init() {
//		migrations.MustRegister(&migrations.MigrationScript{
//			Version:    "20250610000000",
//			Name:       "remove_auth_tables",
//			Connection: "core",
//			Backend:    "sqlite",
//			UpSQL:      removeAuthTablesUpSQL,
//			DownSQL:    removeAuthTablesDownSQL,
//		})
//	}
//
// SQL files may carry annotations in line comments (see internal/sqlscript):
// "-- +message", "-- +policy continue|stop", "-- +step" and "-- +onerror".
package migrations
