// Package budget selects the highest-value subset of entries that fits a
// hard unit budget: a greedy, predictable approximation of knapsack
// packing over blended relevance scores.
package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/scoring"
	"github.com/fyrsmithlabs/memoryd/internal/search"
	"github.com/fyrsmithlabs/memoryd/internal/store"
)

// candidatePoolLimit bounds how many entries one allocation considers.
const candidatePoolLimit = 500

// Options tunes one allocation request.
type Options struct {
	// MinRelevanceThreshold drops candidates scoring below it.
	MinRelevanceThreshold float64

	// IncludeCategories restricts the candidate pool. Empty means all.
	IncludeCategories []store.Category

	// MaxAgeDays excludes entries older than this. Zero or negative
	// means no age limit.
	MaxAgeDays int

	// UseSemanticSearch blends vector similarity into the final score.
	// Blending failures fall back silently to keyword-only scores.
	UseSemanticSearch bool
}

// Selection is the allocator output: an ordered subsequence of entries,
// their serialized form, consumed budget and a coverage summary.
// Ephemeral; never persisted.
type Selection struct {
	Entries         []store.Entry `json:"entries"`
	FormattedText   string        `json:"formatted_text"`
	UnitsUsed       int           `json:"units_used"`
	CoverageSummary string        `json:"coverage_summary"`
	TotalScore      float64       `json:"total_score"`
}

// Config holds allocator blending parameters.
type Config struct {
	// KeywordBlend and SemanticBlend weight the final score when
	// semantic blending is requested. The shipped defaults differ from
	// the search engine's own ratio on purpose; both are configurable.
	KeywordBlend  float64
	SemanticBlend float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.KeywordBlend == 0 && c.SemanticBlend == 0 {
		c.KeywordBlend = 0.6
		c.SemanticBlend = 0.4
	}
}

// Allocator assembles budget-bounded context selections.
type Allocator struct {
	store     *store.Store
	scorer    *scoring.Scorer
	search    *search.Engine
	estimator *UnitEstimator
	config    Config
	logger    *zap.Logger
}

// NewAllocator creates an allocator. searchEngine may be nil; semantic
// blending then silently degrades to keyword-only scores.
func NewAllocator(s *store.Store, scorer *scoring.Scorer, searchEngine *search.Engine,
	estimator *UnitEstimator, cfg Config, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = scoring.NewScorer()
	}
	if estimator == nil {
		estimator = NewUnitEstimator("", nil)
	}
	cfg.ApplyDefaults()
	return &Allocator{
		store:     s,
		scorer:    scorer,
		search:    searchEngine,
		estimator: estimator,
		config:    cfg,
		logger:    logger,
	}
}

// SelectContextForBudget ranks candidates for the query and greedily
// packs them into the budget.
//
// The walk is first-fit without backtracking: it accumulates ranked
// candidates until the next one would exceed the budget, then stops.
// Predictability is the point; a smaller later candidate is never pulled
// forward. A zero budget or empty pool yields an empty selection, and a
// candidate is never truncated to fit.
func (a *Allocator) SelectContextForBudget(ctx context.Context, query string, budget int, opts Options) *Selection {
	ctx = logging.ContextWithQueryID(ctx, uuid.NewString())
	start := time.Now()

	candidates := a.gather(ctx, opts)
	total := len(candidates)

	scored := a.scorer.ScoreEntries(candidates, query)
	if opts.UseSemanticSearch {
		scored = a.blendSemantic(ctx, query, scored)
	}
	scored = scoring.FilterByThreshold(scored, opts.MinRelevanceThreshold)
	ranked := scoring.RankEntries(scored)

	selection := a.pack(ranked, budget)
	selection.CoverageSummary = fmt.Sprintf("%d/%d entries, %d/%d units",
		len(selection.Entries), total, selection.UnitsUsed, budget)

	a.logger.Debug("context selection complete",
		append(logging.ContextFields(ctx),
			zap.Int("candidates", total),
			zap.Int("selected", len(selection.Entries)),
			zap.Int("units_used", selection.UnitsUsed),
			zap.Int("budget", budget),
			zap.Duration("elapsed", time.Since(start)))...)
	return selection
}

// gather collects the candidate pool, optionally category-restricted,
// excluding entries older than MaxAgeDays.
func (a *Allocator) gather(ctx context.Context, opts Options) []store.Entry {
	var pool []store.Entry
	if len(opts.IncludeCategories) == 0 {
		pool = a.store.QueryAll(ctx, candidatePoolLimit)
	} else {
		for _, c := range opts.IncludeCategories {
			pool = append(pool, a.store.QueryByType(ctx, c, candidatePoolLimit)...)
		}
	}

	if opts.MaxAgeDays <= 0 {
		return pool
	}
	cutoff := time.Now().AddDate(0, 0, -opts.MaxAgeDays)
	fresh := pool[:0]
	for _, e := range pool {
		if !e.Timestamp.Before(cutoff) {
			fresh = append(fresh, e)
		}
	}
	return fresh
}

// blendSemantic folds the search engine's normalized scores into the
// keyword-era scores: final = keywordBlend*keyword + semanticBlend*semantic,
// with semantic defaulting to the neutral midpoint for entries the
// semantic pass discarded as low relevance. The semantic pass ranks the
// same gathered pool the keyword scores came from, so category and age
// filters hold at any store size. Any blending failure leaves the keyword
// scores untouched.
func (a *Allocator) blendSemantic(ctx context.Context, query string, scored []scoring.ScoredCandidate) []scoring.ScoredCandidate {
	if a.search == nil {
		return scored
	}

	pool := make([]store.Entry, len(scored))
	for i, c := range scored {
		pool[i] = c.Entry
	}
	results := a.search.RankCandidates(ctx, query, pool, 0)
	semantic := make(map[int64]float64, len(results))
	for _, r := range results {
		semantic[r.Entry.ID] = r.Score
	}

	blended := make([]scoring.ScoredCandidate, len(scored))
	for i, c := range scored {
		sem, ok := semantic[c.Entry.ID]
		if !ok {
			sem = 0.5
		}
		blended[i] = scoring.ScoredCandidate{
			Entry:  c.Entry,
			Score:  a.config.KeywordBlend*c.Score + a.config.SemanticBlend*sem,
			Reason: c.Reason + "; semantic blended",
		}
	}
	return blended
}

// pack greedily walks the ranked candidates into the budget.
func (a *Allocator) pack(ranked []scoring.ScoredCandidate, budget int) *Selection {
	selection := &Selection{Entries: []store.Entry{}}
	if budget <= 0 {
		selection.FormattedText = ""
		return selection
	}

	var formatted strings.Builder
	for _, c := range ranked {
		cost := a.estimator.Estimate(c.Entry.Content)
		if selection.UnitsUsed+cost > budget {
			break
		}
		selection.Entries = append(selection.Entries, c.Entry)
		selection.UnitsUsed += cost
		selection.TotalScore += c.Score
		formatEntry(&formatted, &c.Entry)
	}
	selection.FormattedText = formatted.String()
	return selection
}

// formatEntry renders one entry with the stable per-entry template:
// category+date header, tag, trimmed content, separator.
func formatEntry(b *strings.Builder, e *store.Entry) {
	fmt.Fprintf(b, "## %s (%s)\n", e.Category, e.Timestamp.Format("2006-01-02"))
	fmt.Fprintf(b, "Tag: %s\n", e.Tag)
	b.WriteString(strings.TrimSpace(e.Content))
	b.WriteString("\n---\n")
}
