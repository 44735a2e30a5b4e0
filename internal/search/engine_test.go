package search_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/search"
	"github.com/fyrsmithlabs/memoryd/internal/store"
)

// hashEmbedder returns deterministic vectors: identical text always maps
// to the identical vector, so self-similarity is maximal.
type hashEmbedder struct{}

func (e *hashEmbedder) makeEmbedding(text string) []float32 {
	embedding := make([]float32, embeddings.Dimension)
	hash := 0
	for _, c := range text {
		hash = (hash*131 + int(c)) % 100003
	}
	for i := range embedding {
		hash = (hash*1103515245 + 12345) % (1 << 31)
		embedding[i] = float32(hash%2001-1000) / 1000.0
	}
	return embedding
}

func (e *hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.makeEmbedding(text), nil
}

func (e *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.makeEmbedding(t)
	}
	return out, nil
}

func (e *hashEmbedder) Dimension() int { return embeddings.Dimension }
func (e *hashEmbedder) Close() error   { return nil }

// failingEmbedder simulates an unloadable backend.
type failingEmbedder struct{}

func (e *failingEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return nil, embeddings.ErrUnavailable
}

func (e *failingEmbedder) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return nil, embeddings.ErrUnavailable
}

func (e *failingEmbedder) Dimension() int { return embeddings.Dimension }
func (e *failingEmbedder) Close() error   { return nil }

// newSettledStore builds a store with the given contents and, when an
// embedder is supplied, backfills vectors synchronously so no
// fire-and-forget goroutine races the assertions.
func newSettledStore(t *testing.T, embedder embeddings.Provider, contents []string) *store.Store {
	t.Helper()
	s := store.New(nil, store.WithEnginePolicy("portable"))
	path := filepath.Join(t.TempDir(), "search.db")
	require.True(t, s.Init(context.Background(), path))
	t.Cleanup(func() { s.Close() })

	for _, c := range contents {
		require.NotNil(t, s.AppendEntry(context.Background(), &store.Entry{
			Category: store.CategoryContext,
			Content:  c,
		}))
	}

	if embedder != nil {
		require.NoError(t, s.Close())
		s = store.New(nil,
			store.WithEnginePolicy("portable"),
			store.WithEmbedder(embedder, "test-model"))
		require.True(t, s.Init(context.Background(), path))
		t.Cleanup(func() { s.Close() })
		require.Equal(t, len(contents), s.BackfillEmbeddings(context.Background(), len(contents)))
	}
	return s
}

func TestSemanticSearch_RanksExactContentFirst(t *testing.T) {
	embedder := &hashEmbedder{}
	s := newSettledStore(t, embedder, []string{
		"postgres connection pooling strategy",
		"frontend component naming conventions",
		"notes about the release calendar",
	})
	engine := search.NewEngine(s, embedder, search.Config{}, nil)

	results := engine.SemanticSearch(context.Background(), "postgres connection pooling strategy", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "postgres connection pooling strategy", results[0].Entry.Content)
	assert.Equal(t, "semantic and keyword match", results[0].Reason)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSemanticSearch_DegradesWithoutEmbedder(t *testing.T) {
	s := newSettledStore(t, nil, []string{
		"sqlite migration rebuild",
		"unrelated lunch plans",
	})
	engine := search.NewEngine(s, nil, search.Config{}, nil)

	results := engine.SemanticSearch(context.Background(), "sqlite migration", 10)
	require.NotEmpty(t, results)
	// Keyword-only ranking still works; semantic terms are all neutral.
	assert.Equal(t, "sqlite migration rebuild", results[0].Entry.Content)
}

func TestSemanticSearch_DegradesOnEmbedFailure(t *testing.T) {
	// Vectors exist in the store, but the query embedder is broken:
	// search must return keyword-ranked results without erroring.
	s := newSettledStore(t, &hashEmbedder{}, []string{
		"budget allocator greedy walk",
		"unrelated lunch plans",
	})
	engine := search.NewEngine(s, &failingEmbedder{}, search.Config{}, nil)

	results := engine.SemanticSearch(context.Background(), "budget allocator", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "budget allocator greedy walk", results[0].Entry.Content)
}

func TestSemanticSearch_EmptyPool(t *testing.T) {
	s := newSettledStore(t, nil, nil)
	engine := search.NewEngine(s, nil, search.Config{}, nil)

	results := engine.SemanticSearch(context.Background(), "anything", 10)
	require.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSemanticSearch_LimitTruncates(t *testing.T) {
	contents := []string{
		"alpha shared keyword", "beta shared keyword", "gamma shared keyword",
		"delta shared keyword", "epsilon shared keyword",
	}
	s := newSettledStore(t, nil, contents)
	engine := search.NewEngine(s, nil, search.Config{}, nil)

	results := engine.SemanticSearch(context.Background(), "shared keyword", 2)
	assert.Len(t, results, 2)
}

func TestSemanticSearch_DiscardsLowComposite(t *testing.T) {
	s := newSettledStore(t, nil, []string{"nothing in common"})
	// Keyword-only: neutral semantic 0.5 * 0.7 = 0.35 composite even for
	// zero keyword score, so raise the floor to see the discard.
	engine := search.NewEngine(s, nil, search.Config{
		SemanticWeight:    0.0,
		KeywordWeight:     1.0,
		MinCompositeScore: 0.1,
	}, nil)

	assert.Empty(t, engine.SemanticSearch(context.Background(), "zzz qqq", 10))
}

func TestRankCandidates_UsesSuppliedPoolOnly(t *testing.T) {
	// The store holds its own entries, but ranking a supplied pool must
	// never reach past it: a caller's filtered pool stays authoritative.
	s := newSettledStore(t, nil, []string{"stored entry that must not appear"})
	engine := search.NewEngine(s, nil, search.Config{}, nil)

	pool := []store.Entry{
		{ID: 101, Category: store.CategoryDecision, Content: "cache eviction policy sizing"},
		{ID: 102, Category: store.CategoryDecision, Content: "unrelated note"},
	}
	results := engine.RankCandidates(context.Background(), "cache eviction", pool, 0)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.NotEqual(t, "stored entry that must not appear", r.Entry.Content)
	}
	assert.Equal(t, int64(101), results[0].Entry.ID)
}

func TestRankCandidates_EmptyPool(t *testing.T) {
	s := newSettledStore(t, nil, []string{"present but not supplied"})
	engine := search.NewEngine(s, nil, search.Config{}, nil)

	results := engine.RankCandidates(context.Background(), "anything", nil, 0)
	require.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSemanticSearch_PendingVectorsStillMatch(t *testing.T) {
	// Entries without vectors participate via keyword fallback with the
	// neutral semantic midpoint.
	embedder := &hashEmbedder{}
	s := newSettledStore(t, nil, []string{"pending vector but matching text"})
	engine := search.NewEngine(s, embedder, search.Config{}, nil)

	results := engine.SemanticSearch(context.Background(), "matching text", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "keyword match", results[0].Reason)
}
