// Package search blends quantized-vector similarity with keyword scoring
// to rank stored entries against a free-text query.
package search

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/scoring"
	"github.com/fyrsmithlabs/memoryd/internal/store"
)

// candidatePoolLimit bounds how many entries one search considers.
const candidatePoolLimit = 500

// neutralSemantic is the semantic score assigned when no vector exists or
// the query could not be embedded. 0.5 is the midpoint of the normalized
// similarity range: unknown, neither attracted nor repelled.
const neutralSemantic = 0.5

// Result is one ranked search hit. Reason is informational only; it never
// participates in ranking.
type Result struct {
	Entry  store.Entry `json:"entry"`
	Score  float64     `json:"score"`
	Reason string      `json:"reason"`
}

// Config holds search blending parameters.
type Config struct {
	// SemanticWeight and KeywordWeight blend the two signals.
	SemanticWeight float64
	KeywordWeight  float64
	// MinCompositeScore discards candidates at or below this score.
	MinCompositeScore float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SemanticWeight == 0 && c.KeywordWeight == 0 {
		c.SemanticWeight = 0.7
		c.KeywordWeight = 0.3
	}
	if c.MinCompositeScore == 0 {
		c.MinCompositeScore = 0.1
	}
}

// Engine ranks stored entries against queries. It degrades gracefully:
// without an embedder (or when embedding fails) every semantic term is
// fixed at the neutral midpoint and ranking falls back toward keywords.
type Engine struct {
	store    *store.Store
	embedder embeddings.Provider
	config   Config
	logger   *zap.Logger
}

// NewEngine creates a search engine. embedder may be nil.
func NewEngine(s *store.Store, embedder embeddings.Provider, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	return &Engine{
		store:    s,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}
}

// SemanticSearch returns up to limit entries ranked by the blended
// semantic+keyword score. An empty candidate pool yields an empty result,
// never an error.
func (e *Engine) SemanticSearch(ctx context.Context, query string, limit int) []Result {
	ctx = logging.ContextWithQueryID(ctx, uuid.NewString())

	// The full pool, not just embedded entries: keyword matching must
	// still reach entries whose vectors are pending.
	candidates := e.store.QueryAll(ctx, candidatePoolLimit)
	return e.rank(ctx, query, candidates, limit)
}

// RankCandidates ranks a caller-supplied candidate pool against the query
// with the same blended scoring as SemanticSearch. The store is never
// consulted, so a filtered pool stays exactly the pool the caller built.
func (e *Engine) RankCandidates(ctx context.Context, query string, candidates []store.Entry, limit int) []Result {
	return e.rank(ctx, query, candidates, limit)
}

func (e *Engine) rank(ctx context.Context, query string, candidates []store.Entry, limit int) []Result {
	start := time.Now()
	if len(candidates) == 0 {
		SearchDuration.WithLabelValues("empty").Observe(time.Since(start).Seconds())
		return []Result{}
	}

	queryVector := e.embedQuery(ctx, query)

	results := make([]Result, 0, len(candidates))
	for _, entry := range candidates {
		keyword := scoring.KeywordScore(query, &entry)
		semantic := e.semanticScore(queryVector, &entry)

		composite := e.config.SemanticWeight*semantic + e.config.KeywordWeight*keyword
		if composite <= e.config.MinCompositeScore {
			continue
		}
		results = append(results, Result{
			Entry:  entry,
			Score:  composite,
			Reason: reason(semantic, keyword),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	elapsed := time.Since(start)
	SearchDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	e.logger.Debug("semantic search complete",
		append(logging.ContextFields(ctx),
			zap.Int("candidates", len(candidates)),
			zap.Int("results", len(results)),
			zap.Bool("degraded", queryVector == nil),
			zap.Duration("elapsed", elapsed))...)
	return results
}

// embedQuery returns the query vector, or nil when embedding is
// unavailable. Search then degrades toward keyword-only: every candidate
// gets the neutral semantic score instead of an error.
func (e *Engine) embedQuery(ctx context.Context, query string) []float32 {
	if e.embedder == nil || query == "" {
		return nil
	}
	start := time.Now()
	vector, err := e.embedder.EmbedQuery(ctx, query)
	embeddings.GenerationDuration.WithLabelValues("embed_query").Observe(time.Since(start).Seconds())
	if err != nil {
		embeddings.GenerationTotal.WithLabelValues("embed_query", "error").Inc()
		DegradedSearches.Inc()
		e.logger.Debug("query embedding failed, degrading to keyword scoring", zap.Error(err))
		return nil
	}
	embeddings.GenerationTotal.WithLabelValues("embed_query", "success").Inc()
	return vector
}

// semanticScore maps cosine similarity from [-1,1] to [0,1], or returns
// the neutral midpoint when either vector is missing.
func (e *Engine) semanticScore(queryVector []float32, entry *store.Entry) float64 {
	if queryVector == nil || !entry.HasEmbedding() {
		return neutralSemantic
	}
	stored, err := embeddings.Dequantize(entry.Embedding)
	if err != nil {
		e.logger.Warn("stored embedding unreadable", zap.Int64("id", entry.ID), zap.Error(err))
		return neutralSemantic
	}
	return (embeddings.CosineSimilarity(queryVector, stored) + 1) / 2
}

// reason explains which signals carried a result. Informational only.
func reason(semantic, keyword float64) string {
	semStrong := semantic > 0.6
	keyStrong := keyword > 0
	switch {
	case semStrong && keyStrong:
		return "semantic and keyword match"
	case semStrong:
		return "semantic match"
	case keyStrong:
		return "keyword match"
	default:
		return "low relevance"
	}
}
