//go:build cgo

package store

import (
	"database/sql"
	"fmt"

	// Native engine: cgo SQLite, registers driver "sqlite3".
	_ "github.com/mattn/go-sqlite3"
)

// openNative opens the cgo SQLite engine (mattn/go-sqlite3).
func openNative(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: opening native engine: %v", ErrEngineUnavailable, err)
	}
	if err := verifyEngine(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
