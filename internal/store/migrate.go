package store

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// categoryCheckList renders the closed category set for the schema CHECK
// constraint: 'CONTEXT','DECISION',...
func categoryCheckList() string {
	quoted := make([]string, len(AllCategories))
	for i, c := range AllCategories {
		quoted[i] = "'" + string(c) + "'"
	}
	return strings.Join(quoted, ",")
}

// entriesSchema is the current logical schema for the entries table.
func entriesSchema(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL CHECK (category IN (%s)),
		timestamp TEXT NOT NULL,
		tag TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		phase TEXT,
		progress_status TEXT,
		embedding BLOB
	)`, tableName, categoryCheckList())
}

const metricsSchema = `
CREATE TABLE IF NOT EXISTS operation_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	operation TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	result_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS token_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	model TEXT NOT NULL,
	input_units INTEGER NOT NULL,
	output_units INTEGER NOT NULL,
	total_units INTEGER NOT NULL,
	status TEXT NOT NULL
);`

const indexSchema = `
CREATE INDEX IF NOT EXISTS idx_entries_category_timestamp ON entries (category, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_entries_tag ON entries (tag);`

// additiveColumns are columns added after the original schema shipped.
// All are nullable (or defaulted) so ALTER TABLE ADD COLUMN is safe on a
// populated table.
var additiveColumns = []struct {
	name string
	ddl  string
}{
	{"metadata", "ALTER TABLE entries ADD COLUMN metadata TEXT NOT NULL DEFAULT '{}'"},
	{"phase", "ALTER TABLE entries ADD COLUMN phase TEXT"},
	{"progress_status", "ALTER TABLE entries ADD COLUMN progress_status TEXT"},
	{"embedding", "ALTER TABLE entries ADD COLUMN embedding BLOB"},
}

// migrate brings the schema up to date. It runs on every init and is
// idempotent: a fully migrated store passes through untouched.
//
// Two migration shapes exist:
//   - additive: missing nullable columns are added in place
//   - structural: an entries table whose category constraint predates
//     newer category values is rebuilt, rows copied, the copy verified by
//     row count, then atomically swapped in
//
// A structural migration that cannot preserve the row count aborts before
// the destructive drop, leaving the old schema intact.
func migrate(db *sql.DB, logger *zap.Logger) error {
	exists, createSQL, err := entriesTableInfo(db)
	if err != nil {
		return fmt.Errorf("%w: inspecting schema: %v", ErrMigrationFailed, err)
	}

	if !exists {
		if _, err := db.Exec(entriesSchema("entries")); err != nil {
			return fmt.Errorf("%w: creating entries table: %v", ErrMigrationFailed, err)
		}
	} else {
		if err := applyAdditive(db, logger); err != nil {
			return err
		}
		if constraintOutdated(createSQL) {
			if err := rebuildEntries(db, logger); err != nil {
				return err
			}
		}
	}

	if _, err := db.Exec(indexSchema); err != nil {
		return fmt.Errorf("%w: creating indexes: %v", ErrMigrationFailed, err)
	}
	if _, err := db.Exec(metricsSchema); err != nil {
		return fmt.Errorf("%w: creating metrics tables: %v", ErrMigrationFailed, err)
	}
	return nil
}

// entriesTableInfo returns whether the entries table exists and its
// original CREATE statement.
func entriesTableInfo(db *sql.DB) (bool, string, error) {
	var createSQL string
	err := db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type='table' AND name='entries'",
	).Scan(&createSQL)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, createSQL, nil
}

// applyAdditive adds any missing nullable columns.
func applyAdditive(db *sql.DB, logger *zap.Logger) error {
	existing, err := tableColumns(db, "entries")
	if err != nil {
		return fmt.Errorf("%w: reading columns: %v", ErrMigrationFailed, err)
	}

	for _, col := range additiveColumns {
		if existing[col.name] {
			continue
		}
		logger.Info("applying additive migration", zap.String("column", col.name))
		if _, err := db.Exec(col.ddl); err != nil {
			return fmt.Errorf("%w: adding column %s: %v", ErrMigrationFailed, col.name, err)
		}
	}
	return nil
}

// tableColumns returns the set of column names for a table.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// constraintOutdated reports whether the stored CREATE statement's
// category constraint is missing any current category value.
func constraintOutdated(createSQL string) bool {
	for _, c := range AllCategories {
		if !strings.Contains(createSQL, "'"+string(c)+"'") {
			return true
		}
	}
	return false
}

// rebuildEntries performs the structural migration: build a replacement
// table with the updated constraint, copy all rows, verify the copied row
// count, then swap. The verification runs before anything destructive.
func rebuildEntries(db *sql.DB, logger *zap.Logger) error {
	var before int
	if err := db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&before); err != nil {
		return fmt.Errorf("%w: counting rows before rebuild: %v", ErrMigrationFailed, err)
	}

	logger.Info("rebuilding entries table for updated category constraint",
		zap.Int("rows", before))

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: starting rebuild transaction: %v", ErrMigrationFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS entries_migration"); err != nil {
		return fmt.Errorf("%w: clearing stale migration table: %v", ErrMigrationFailed, err)
	}
	if _, err := tx.Exec(entriesSchema("entries_migration")); err != nil {
		return fmt.Errorf("%w: creating replacement table: %v", ErrMigrationFailed, err)
	}
	if _, err := tx.Exec(`INSERT INTO entries_migration
		(id, category, timestamp, tag, content, metadata, phase, progress_status, embedding)
		SELECT id, category, timestamp, tag, content, metadata, phase, progress_status, embedding
		FROM entries`); err != nil {
		return fmt.Errorf("%w: copying rows: %v", ErrMigrationFailed, err)
	}

	var after int
	if err := tx.QueryRow("SELECT COUNT(*) FROM entries_migration").Scan(&after); err != nil {
		return fmt.Errorf("%w: counting copied rows: %v", ErrMigrationFailed, err)
	}
	if after != before {
		// Abort before the destructive drop. The deferred rollback
		// leaves the old schema and data intact.
		return fmt.Errorf("%w: row count mismatch after copy: had %d, copied %d", ErrMigrationFailed, before, after)
	}

	if _, err := tx.Exec("DROP TABLE entries"); err != nil {
		return fmt.Errorf("%w: dropping old table: %v", ErrMigrationFailed, err)
	}
	if _, err := tx.Exec("ALTER TABLE entries_migration RENAME TO entries"); err != nil {
		return fmt.Errorf("%w: renaming replacement table: %v", ErrMigrationFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing rebuild: %v", ErrMigrationFailed, err)
	}
	return nil
}
