package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	// Portable engine: pure-Go SQLite, registers driver "sqlite".
	_ "modernc.org/sqlite"
)

// engine names reported in logs and metrics.
const (
	enginePortable = "portable"
	engineNative   = "native"
)

// openEngine opens storage at path with the requested engine policy.
//
// "auto" tries the portable engine first and falls back to the native one;
// "portable" and "native" pin a single engine. Selection happens once per
// init; afterwards both engines are driven through the same database/sql
// seam so query logic is written exactly once.
func openEngine(path, policy string, logger *zap.Logger) (*sql.DB, string, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, "", fmt.Errorf("%w: creating directory %s: %v", ErrEngineUnavailable, dir, err)
		}
	}

	switch policy {
	case "portable":
		db, err := openPortable(path)
		return db, enginePortable, err
	case "native":
		db, err := openNative(path)
		return db, engineNative, err
	default: // "auto"
		db, err := openPortable(path)
		if err == nil {
			return db, enginePortable, nil
		}
		logger.Warn("portable engine failed, trying native engine", zap.Error(err))
		db, nerr := openNative(path)
		if nerr != nil {
			return nil, "", fmt.Errorf("%w: portable: %v; native: %v", ErrEngineUnavailable, err, nerr)
		}
		return db, engineNative, nil
	}
}

// openPortable opens the pure-Go SQLite engine (modernc.org/sqlite).
func openPortable(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening portable engine: %v", ErrEngineUnavailable, err)
	}
	if err := verifyEngine(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// verifyEngine proves the connection actually works before it is handed
// to the migration step. sql.Open alone does not touch the file.
func verifyEngine(db *sql.DB) error {
	// One logical writer at a time; also keeps statement caches coherent
	// across the two driver implementations.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("SELECT 1"); err != nil {
		return fmt.Errorf("%w: engine probe failed: %v", ErrEngineUnavailable, err)
	}
	return nil
}
