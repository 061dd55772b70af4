// Package database provides SQLite connection management for CircuitHub.
//
// It wraps database/sql with:
//   - Connection setup (WAL mode, busy timeout, foreign keys)
//   - Embedded schema migrations (versioned up/down SQL files)
//   - Health checks and lifecycle management
//
// SQLite is configured for a single writer with WAL mode so concurrent
// reads don't block telemetry inserts from the message router.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/circuithub.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
