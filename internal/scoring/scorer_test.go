package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/scoring"
	"github.com/fyrsmithlabs/memoryd/internal/store"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func entryAt(category store.Category, content string, age time.Duration) store.Entry {
	return store.Entry{
		Category:  category,
		Content:   content,
		Tag:       string(category) + ":2025",
		Timestamp: testNow.Add(-age),
	}
}

func TestKeywordScore(t *testing.T) {
	e := entryAt(store.CategoryDecision, "Use SQLite for storage layer", 0)

	assert.InDelta(t, 1.0, scoring.KeywordScore("sqlite storage", &e), 1e-9)
	assert.InDelta(t, 0.5, scoring.KeywordScore("sqlite postgres", &e), 1e-9)
	assert.InDelta(t, 0.0, scoring.KeywordScore("kubernetes", &e), 1e-9)
	// Empty queries score zero rather than dividing by zero.
	assert.InDelta(t, 0.0, scoring.KeywordScore("   ", &e), 1e-9)
	// Tag text participates in matching.
	assert.InDelta(t, 1.0, scoring.KeywordScore("decision", &e), 1e-9)
}

func TestScoreEntries_TypePriority(t *testing.T) {
	s := scoring.NewScorerAt(testNow)
	entries := []store.Entry{
		entryAt(store.CategoryProgress, "database connection notes", time.Hour),
		entryAt(store.CategoryBrief, "database connection notes", time.Hour),
	}

	scored := s.ScoreEntries(entries, "database")
	require.Len(t, scored, 2)
	// Same keyword and recency; brief outranks transient progress.
	assert.Greater(t, scored[1].Score, scored[0].Score)
}

func TestScoreEntries_RecencyDecay(t *testing.T) {
	s := scoring.NewScorerAt(testNow)
	ages := []time.Duration{
		24 * time.Hour,       // <7d
		15 * 24 * time.Hour,  // 7-30d
		60 * 24 * time.Hour,  // 30-90d
		365 * 24 * time.Hour, // >90d
	}
	entries := make([]store.Entry, len(ages))
	for i, age := range ages {
		entries[i] = entryAt(store.CategoryContext, "session context", age)
	}

	scored := s.ScoreEntries(entries, "session")
	require.Len(t, scored, 4)
	for i := 1; i < len(scored); i++ {
		assert.Greater(t, scored[i-1].Score, scored[i].Score, "age step %d", i)
	}
	// The oldest entry still scores above zero: never fully excluded.
	assert.Greater(t, scored[3].Score, 0.0)
}

func TestScoreEntries_Monotonic(t *testing.T) {
	s := scoring.NewScorerAt(testNow)
	weak := entryAt(store.CategoryContext, "unrelated musings", time.Hour)
	strong := entryAt(store.CategoryContext, "engine fallback design", time.Hour)

	scored := s.ScoreEntries([]store.Entry{weak, strong}, "engine fallback")
	assert.Greater(t, scored[1].Score, scored[0].Score)
}

func TestScoreEntries_Reason(t *testing.T) {
	s := scoring.NewScorerAt(testNow)
	scored := s.ScoreEntries([]store.Entry{entryAt(store.CategoryBrief, "x", time.Hour)}, "x")
	require.Len(t, scored, 1)
	assert.Contains(t, scored[0].Reason, "keyword")
	assert.Contains(t, scored[0].Reason, "recency")
}

func TestFilterByThreshold(t *testing.T) {
	scored := []scoring.ScoredCandidate{
		{Score: 0.9},
		{Score: 0.4},
		{Score: 0.05},
	}

	kept := scoring.FilterByThreshold(scored, 0.1)
	require.Len(t, kept, 2)
	assert.InDelta(t, 0.9, kept[0].Score, 1e-9)
	assert.InDelta(t, 0.4, kept[1].Score, 1e-9)
}

func TestRankEntries_StableTies(t *testing.T) {
	a := scoring.ScoredCandidate{Entry: store.Entry{ID: 1}, Score: 0.5}
	b := scoring.ScoredCandidate{Entry: store.Entry{ID: 2}, Score: 0.5}
	c := scoring.ScoredCandidate{Entry: store.Entry{ID: 3}, Score: 0.8}

	ranked := scoring.RankEntries([]scoring.ScoredCandidate{a, b, c})
	require.Len(t, ranked, 3)
	assert.Equal(t, int64(3), ranked[0].Entry.ID)
	// Ties break by original order.
	assert.Equal(t, int64(1), ranked[1].Entry.ID)
	assert.Equal(t, int64(2), ranked[2].Entry.ID)

	// Input slice untouched.
	assert.Equal(t, int64(1), a.Entry.ID)
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"two", "words"}, scoring.QueryTerms("  Two   WORDS "))
	assert.Empty(t, scoring.QueryTerms(""))
}
