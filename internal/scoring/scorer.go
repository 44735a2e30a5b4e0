// Package scoring ranks stored entries against a query without vectors:
// keyword overlap, per-category priority, and recency decay.
package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/memoryd/internal/store"
)

// ScoredCandidate pairs an entry with its score and a justification.
// Query-scoped and ephemeral; never persisted.
type ScoredCandidate struct {
	Entry  store.Entry
	Score  float64
	Reason string
}

// Component weights for the composite score. Keyword overlap dominates;
// category priority and recency modulate it. All components lie in [0,1]
// so the composite does too, and it grows monotonically with each one.
const (
	keywordWeight  = 0.5
	priorityWeight = 0.3
	recencyWeight  = 0.2
)

// typePriority weights categories by how foundational they are. Briefs
// and patterns outlive transient progress notes.
var typePriority = map[store.Category]float64{
	store.CategoryBrief:           1.0,
	store.CategoryPattern:         0.9,
	store.CategoryDecision:        0.8,
	store.CategoryContext:         0.7,
	store.CategoryResearchReport:  0.6,
	store.CategoryPlanReport:      0.6,
	store.CategoryExecutionReport: 0.5,
	store.CategoryProgress:        0.4,
}

// Scorer scores entries against queries. The zero value is not usable;
// construct with NewScorer.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// NewScorerAt creates a Scorer with a fixed clock, for deterministic tests.
func NewScorerAt(now time.Time) *Scorer {
	return &Scorer{now: func() time.Time { return now }}
}

// ScoreEntries scores every entry against the query. Output order matches
// input order; call RankEntries for descending score order.
func (s *Scorer) ScoreEntries(entries []store.Entry, query string) []ScoredCandidate {
	terms := QueryTerms(query)
	now := s.now()

	scored := make([]ScoredCandidate, 0, len(entries))
	for _, e := range entries {
		keyword := keywordOverlap(terms, &e)
		priority := typePriority[e.Category]
		recency := recencyFactor(now.Sub(e.Timestamp))

		score := keywordWeight*keyword + priorityWeight*priority + recencyWeight*recency
		scored = append(scored, ScoredCandidate{
			Entry: e,
			Score: score,
			Reason: fmt.Sprintf("keyword %.2f, priority %.2f, recency %.2f",
				keyword, priority, recency),
		})
	}
	return scored
}

// FilterByThreshold drops candidates scoring below minScore.
func FilterByThreshold(scored []ScoredCandidate, minScore float64) []ScoredCandidate {
	kept := make([]ScoredCandidate, 0, len(scored))
	for _, c := range scored {
		if c.Score >= minScore {
			kept = append(kept, c)
		}
	}
	return kept
}

// RankEntries sorts candidates by descending score. The sort is stable:
// ties keep their original order so tests stay deterministic.
func RankEntries(scored []ScoredCandidate) []ScoredCandidate {
	ranked := make([]ScoredCandidate, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// QueryTerms lower-cases and whitespace-splits a query, discarding empty
// tokens.
func QueryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// KeywordScore returns the fraction of query terms found as substrings of
// the entry's tag and content. Shared with the semantic search engine,
// which blends it with vector similarity.
func KeywordScore(query string, e *store.Entry) float64 {
	return keywordOverlap(QueryTerms(query), e)
}

func keywordOverlap(terms []string, e *store.Entry) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(e.Tag + " " + e.Content)
	matched := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// recencyFactor steps down with age but never reaches zero: old matches
// stay retrievable, just deprioritized.
func recencyFactor(age time.Duration) float64 {
	switch {
	case age < 7*24*time.Hour:
		return 1.0
	case age < 30*24*time.Hour:
		return 0.7
	case age < 90*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}
