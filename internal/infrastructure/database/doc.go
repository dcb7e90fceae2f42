// Package database provides SQLite connectivity for Armadillo Core.
//
// This package manages:
//   - Database connection with WAL mode and foreign keys enabled
//   - Embedded schema migrations (up and down)
//   - Transaction helpers shared by the fleet and telemetry stores
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the top-level migrations package and are named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql. New columns must be
// NULLABLE or carry a DEFAULT so a rollback never loses rows.
package database
