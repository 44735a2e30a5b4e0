package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/store"
)

// legacySchema predates the report categories and the metadata, phase,
// progress_status and embedding columns.
const legacySchema = `CREATE TABLE entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL CHECK (category IN ('CONTEXT','DECISION','PROGRESS','PATTERN','BRIEF')),
	timestamp TEXT NOT NULL,
	tag TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT ''
)`

func createLegacyStore(t *testing.T, rows int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(legacySchema)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err = db.Exec(
			"INSERT INTO entries (category, timestamp, tag, content) VALUES (?, ?, ?, ?)",
			"DECISION", fmt.Sprintf("2024-06-%02dT00:00:00Z", i+1),
			fmt.Sprintf("DECISION:2024-06-%02d", i+1), fmt.Sprintf("decision %d", i))
		require.NoError(t, err)
	}
	return path
}

func TestMigration_PreservesRows(t *testing.T) {
	ctx := context.Background()
	const k = 7
	path := createLegacyStore(t, k)

	s := store.New(nil, store.WithEnginePolicy("portable"))
	defer s.Close()
	require.True(t, s.Init(ctx, path))

	// Exactly K entries survive with original fields intact.
	counts := s.GetEntryCounts(ctx)
	assert.Equal(t, k, counts.Total)
	assert.Equal(t, k, counts.ByCategory["DECISION"])

	results := s.QueryByType(ctx, store.CategoryDecision, k)
	require.Len(t, results, k)
	assert.Equal(t, "decision 6", results[0].Content)
	assert.Equal(t, "DECISION:2024-06-07", results[0].Tag)

	// New columns are present and usable.
	assert.Equal(t, "{}", results[0].Metadata)
	phase := store.PhaseExecution
	assert.True(t, s.UpdateEntry(ctx, results[0].ID, store.UpdateFields{Phase: &phase}))
}

func TestMigration_NewCategoriesAccepted(t *testing.T) {
	ctx := context.Background()
	path := createLegacyStore(t, 2)

	s := store.New(nil, store.WithEnginePolicy("portable"))
	defer s.Close()
	require.True(t, s.Init(ctx, path))

	// The legacy CHECK constraint excluded report categories; the
	// structural rebuild must have replaced it.
	id := s.AppendEntry(ctx, &store.Entry{
		Category: store.CategoryResearchReport,
		Content:  "findings on engine fallback",
	})
	require.NotNil(t, id)
	assert.Len(t, s.QueryByType(ctx, store.CategoryResearchReport, 10), 1)
}

func TestMigration_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := createLegacyStore(t, 3)

	s := store.New(nil, store.WithEnginePolicy("portable"))
	require.True(t, s.Init(ctx, path))
	require.NoError(t, s.Close())

	// Re-running across "process restarts" must not duplicate rows or
	// schema objects.
	for i := 0; i < 3; i++ {
		s = store.New(nil, store.WithEnginePolicy("portable"))
		require.True(t, s.Init(ctx, path))
		assert.Equal(t, 3, s.GetEntryCounts(ctx).Total)
		require.NoError(t, s.Close())
	}
}

func TestMigration_FreshStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fresh.db")

	s := store.New(nil, store.WithEnginePolicy("portable"))
	defer s.Close()
	require.True(t, s.Init(ctx, path))

	// All current categories usable from the start.
	for _, c := range store.AllCategories {
		id := s.AppendEntry(ctx, &store.Entry{Category: c, Content: "x"})
		require.NotNil(t, id, "category %s", c)
	}
	assert.Equal(t, len(store.AllCategories), s.GetEntryCounts(ctx).Total)
}
