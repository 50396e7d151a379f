// Package database handles database connections, migrations and schema
// inspection.
//
// It wraps GORM and selects the dialect from the configuration: sqlite
// (pure Go, the default, also used for in-memory tests), mysql or postgres.
//
// # Connect
//
// Connect opens the database, applies pool settings and pings it within
// the configured timeout. sqlite is pinned to a single connection.
//
// # Migrate
//
// Migrate creates or updates the diary_entries, diary_conflicts and
// diary_cache tables from core/models.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns back the integrity check, which
// compares the live schema against ExpectedColumns.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//	if err := database.Migrate(db); err != nil {
//	    log.Fatal(err)
//	}
package database
