package memory_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/config"
	"github.com/fyrsmithlabs/memoryd/internal/store"
	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "memory.db")
	cfg.Store.Engine = "portable"
	cfg.Embedding.Enabled = false
	return cfg
}

func newTestService(t *testing.T) *memory.Service {
	t.Helper()
	svc, err := memory.NewServiceWithEmbedder(testConfig(t), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNewService_NilConfig(t *testing.T) {
	_, err := memory.NewService(nil, nil)
	require.ErrorIs(t, err, memory.ErrNilConfig)
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Store.Engine = "bogus"
	_, err := memory.NewService(cfg, nil)
	require.Error(t, err)
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc, err := memory.NewServiceWithEmbedder(cfg, nil, nil)
	require.NoError(t, err)
	defer svc.Close()

	require.True(t, svc.Init(ctx, cfg.Store.Path))

	id := svc.AppendEntry(ctx, &memory.Entry{
		Category: store.CategoryDecision,
		Tag:      "engine",
		Content:  "use the portable engine by default",
	})
	require.NotNil(t, id)

	got := svc.GetEntryByID(ctx, *id)
	require.NotNil(t, got)
	assert.Equal(t, store.CategoryDecision, got.Category)
	assert.Equal(t, "engine", got.Tag)

	byType := svc.QueryByType(ctx, store.CategoryDecision, 10)
	require.Len(t, byType, 1)

	hits := svc.FullTextSearch(ctx, "portable", 10)
	require.Len(t, hits, 1)

	counts := svc.GetEntryCounts(ctx)
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, 1, counts.ByCategory[string(store.CategoryDecision)])
}

func TestService_BeforeInitIsNeutral(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	assert.Nil(t, svc.AppendEntry(ctx, &memory.Entry{
		Category: store.CategoryContext,
		Content:  "never stored",
	}))
	assert.Empty(t, svc.QueryByType(ctx, store.CategoryContext, 10))
	assert.Zero(t, svc.GetEntryCounts(ctx).Total)
}

func TestService_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc, err := memory.NewServiceWithEmbedder(cfg, nil, nil)
	require.NoError(t, err)
	defer svc.Close()
	require.True(t, svc.Init(ctx, cfg.Store.Path))

	id := svc.AppendEntry(ctx, &memory.Entry{
		Category: store.CategoryProgress,
		Content:  "initial state",
	})
	require.NotNil(t, id)

	newContent := "revised state"
	require.True(t, svc.UpdateEntry(ctx, *id, memory.UpdateFields{Content: &newContent}))
	assert.Equal(t, newContent, svc.GetEntryByID(ctx, *id).Content)

	assert.False(t, svc.UpdateEntry(ctx, *id, memory.UpdateFields{}))
	assert.False(t, svc.UpdateEntry(ctx, 99999, memory.UpdateFields{Content: &newContent}))
}

func TestService_SemanticSearchDegradesWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc, err := memory.NewServiceWithEmbedder(cfg, nil, nil)
	require.NoError(t, err)
	defer svc.Close()
	require.True(t, svc.Init(ctx, cfg.Store.Path))

	svc.AppendEntry(ctx, &memory.Entry{
		Category: store.CategoryPattern,
		Tag:      "retry",
		Content:  "wrap transient failures in exponential backoff retry",
	})
	svc.AppendEntry(ctx, &memory.Entry{
		Category: store.CategoryContext,
		Tag:      "misc",
		Content:  "unrelated note about deployment windows",
	})

	results := svc.SemanticSearch(ctx, "retry backoff", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "retry", results[0].Entry.Tag)
}

func TestService_ScoringHelpers(t *testing.T) {
	entries := []memory.Entry{
		{ID: 1, Category: store.CategoryBrief, Content: "database schema migration plan", Timestamp: time.Now()},
		{ID: 2, Category: store.CategoryProgress, Content: "unrelated", Timestamp: time.Now()},
	}

	svc := newTestService(t)
	scored := svc.ScoreEntries(entries, "schema migration")
	require.Len(t, scored, 2)

	kept := svc.FilterByThreshold(scored, 0.5)
	require.Len(t, kept, 1)
	assert.Equal(t, int64(1), kept[0].Entry.ID)

	ranked := svc.RankEntries(scored)
	assert.Equal(t, int64(1), ranked[0].Entry.ID)
}

func TestService_SelectContextForBudget(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc, err := memory.NewServiceWithEmbedder(cfg, nil, nil)
	require.NoError(t, err)
	defer svc.Close()
	require.True(t, svc.Init(ctx, cfg.Store.Path))

	for i := 0; i < 3; i++ {
		svc.AppendEntry(ctx, &memory.Entry{
			Category: store.CategoryDecision,
			Content:  "decision about cache eviction policy and sizing",
		})
	}

	sel := svc.SelectContextForBudget(ctx, "cache eviction", 500, memory.SelectOptions{})
	require.NotNil(t, sel)
	assert.NotEmpty(t, sel.Entries)
	assert.LessOrEqual(t, sel.UnitsUsed, 500)
	assert.Contains(t, sel.FormattedText, "DECISION")

	// Zero budget is an explicit request for nothing.
	empty := svc.SelectContextForBudget(ctx, "cache", 0, memory.SelectOptions{})
	require.NotNil(t, empty)
	assert.Empty(t, empty.Entries)

	// Negative budget falls back to the configured default.
	fallback := svc.SelectContextForBudget(ctx, "cache eviction", -1, memory.SelectOptions{})
	require.NotNil(t, fallback)
	assert.NotEmpty(t, fallback.Entries)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc, err := memory.NewServiceWithEmbedder(cfg, nil, nil)
	require.NoError(t, err)
	defer svc.Close()
	require.True(t, svc.Init(ctx, cfg.Store.Path))

	svc.AppendEntry(ctx, &memory.Entry{Category: store.CategoryBrief, Content: "project brief"})

	stats := svc.Stats(ctx)
	assert.Equal(t, "portable", stats.Engine)
	assert.Equal(t, cfg.Store.Path, stats.Path)
	assert.Equal(t, 1, stats.Counts.Total)
	assert.Zero(t, stats.WithEmbeddings)
}
