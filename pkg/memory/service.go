// Package memory is the collaborator-facing facade over the memoryd
// engine: a durable typed-entry store with blended semantic+keyword
// retrieval and budget-bounded context selection.
//
// Construction is explicit: one Service per process (or per test), no
// package-level singletons. The embedding backend is optional; without
// it every operation still works, degraded to keyword-only retrieval.
//
// Example usage:
//
//	cfg := config.NewDefaultConfig()
//	svc, err := memory.NewService(cfg, logger)
//	if err != nil {
//	    // Handle error
//	}
//	defer svc.Close()
//
//	if !svc.Init(ctx, cfg.Store.Path) {
//	    // Both storage engines failed; nothing else will work.
//	}
//
//	id := svc.AppendEntry(ctx, &store.Entry{
//	    Category: store.CategoryDecision,
//	    Content:  "Use the portable engine by default",
//	})
//	results := svc.SemanticSearch(ctx, "storage engine choice", 10)
package memory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/budget"
	"github.com/fyrsmithlabs/memoryd/internal/config"
	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/scoring"
	"github.com/fyrsmithlabs/memoryd/internal/search"
	"github.com/fyrsmithlabs/memoryd/internal/store"
)

// Re-exported shapes so collaborators depend on one import path.
type (
	// Entry is one persisted unit of agent memory.
	Entry = store.Entry
	// UpdateFields carries partial updates for UpdateEntry.
	UpdateFields = store.UpdateFields
	// EntryCounts aggregates per-category totals.
	EntryCounts = store.EntryCounts
	// ScoredCandidate pairs an entry with a score and justification.
	ScoredCandidate = scoring.ScoredCandidate
	// SearchResult is one ranked semantic search hit.
	SearchResult = search.Result
	// Selection is the budget allocator output.
	Selection = budget.Selection
	// SelectOptions tunes one context selection request.
	SelectOptions = budget.Options
)

// ErrNilConfig indicates NewService was called without configuration.
var ErrNilConfig = errors.New("memory: config is required")

// Stats summarizes store contents for status surfaces.
type Stats struct {
	Engine         string      `json:"engine"`
	Path           string      `json:"path"`
	Counts         EntryCounts `json:"counts"`
	WithEmbeddings int         `json:"with_embeddings"`
}

// Service wires the store, scorer, search engine and allocator together.
type Service struct {
	cfg       *config.Config
	logger    *logging.Logger
	store     *store.Store
	scorer    *scoring.Scorer
	search    *search.Engine
	allocator *budget.Allocator
	embedder  embeddings.Provider
}

// NewService constructs a Service from configuration. The embedding
// backend is loaded best-effort: an unloadable backend is logged and the
// service runs degraded, never fails construction for it.
func NewService(cfg *config.Config, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var embedder embeddings.Provider
	if cfg.Embedding.Enabled {
		provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
			Model:    cfg.Embedding.Model,
			CacheDir: cfg.Embedding.CacheDir,
		})
		if err != nil {
			logger.Warn(context.Background(), "embedding backend unavailable, running keyword-only",
				zap.String("model", cfg.Embedding.Model), zap.Error(err))
		} else {
			embedder = provider
		}
	}

	return newService(cfg, logger, embedder), nil
}

// NewServiceWithEmbedder constructs a Service with an injected embedding
// provider (nil for none). Used by tests and by hosts that manage the
// backend themselves.
func NewServiceWithEmbedder(cfg *config.Config, logger *logging.Logger, embedder embeddings.Provider) (*Service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return newService(cfg, logger, embedder), nil
}

func newService(cfg *config.Config, logger *logging.Logger, embedder embeddings.Provider) *Service {
	zlog := logger.Underlying()

	st := store.New(zlog.Named("store"),
		store.WithEnginePolicy(cfg.Store.Engine),
		store.WithEmbedder(embedder, cfg.Embedding.Model))

	scorer := scoring.NewScorer()

	searchEngine := search.NewEngine(st, embedder, search.Config{
		SemanticWeight:    cfg.Search.SemanticWeight,
		KeywordWeight:     cfg.Search.KeywordWeight,
		MinCompositeScore: cfg.Search.MinCompositeScore,
	}, zlog.Named("search"))

	estimator := budget.NewUnitEstimator(cfg.Budget.TokenizerModel, zlog.Named("budget"))
	allocator := budget.NewAllocator(st, scorer, searchEngine, estimator, budget.Config{
		KeywordBlend:  cfg.Budget.KeywordBlend,
		SemanticBlend: cfg.Budget.SemanticBlend,
	}, zlog.Named("budget"))

	return &Service{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		scorer:    scorer,
		search:    searchEngine,
		allocator: allocator,
		embedder:  embedder,
	}
}

// Init opens or creates storage at path and migrates the schema.
// Idempotent; returns false only when both engines or migration failed.
func (s *Service) Init(ctx context.Context, path string) bool {
	return s.store.Init(ctx, path)
}

// AppendEntry inserts an entry and returns its id, or nil when the store
// is not ready. Embedding generation happens in the background.
func (s *Service) AppendEntry(ctx context.Context, e *Entry) *int64 {
	return s.store.AppendEntry(ctx, e)
}

// UpdateEntry mutates only the supplied fields; content changes
// regenerate the embedding.
func (s *Service) UpdateEntry(ctx context.Context, id int64, fields UpdateFields) bool {
	return s.store.UpdateEntry(ctx, id, fields)
}

// GetEntryByID returns an entry or nil.
func (s *Service) GetEntryByID(ctx context.Context, id int64) *Entry {
	return s.store.GetEntryByID(ctx, id)
}

// QueryByType returns up to limit entries of one category, newest first.
func (s *Service) QueryByType(ctx context.Context, category store.Category, limit int) []Entry {
	return s.store.QueryByType(ctx, category, limit)
}

// QueryByDateRange returns category entries created in [start, end].
func (s *Service) QueryByDateRange(ctx context.Context, category store.Category, start, end time.Time) []Entry {
	return s.store.QueryByDateRange(ctx, category, start, end)
}

// QueryByPhase returns up to limit entries in a workflow phase.
func (s *Service) QueryByPhase(ctx context.Context, phase store.Phase, limit int) []Entry {
	return s.store.QueryByPhase(ctx, phase, limit)
}

// FullTextSearch returns entries whose tag or content contains substring.
func (s *Service) FullTextSearch(ctx context.Context, substring string, limit int) []Entry {
	return s.store.FullTextSearch(ctx, substring, limit)
}

// QueryEntriesWithEmbeddings returns entries carrying a stored vector.
func (s *Service) QueryEntriesWithEmbeddings(ctx context.Context, limit int) []Entry {
	return s.store.QueryEntriesWithEmbeddings(ctx, limit)
}

// GetEntryCounts returns total and per-category counts.
func (s *Service) GetEntryCounts(ctx context.Context) EntryCounts {
	return s.store.GetEntryCounts(ctx)
}

// CountEntriesWithEmbeddings returns how many entries have vectors.
func (s *Service) CountEntriesWithEmbeddings(ctx context.Context) int {
	return s.store.CountEntriesWithEmbeddings(ctx)
}

// ScoreEntries scores entries against a query, keyword-style.
func (s *Service) ScoreEntries(entries []Entry, query string) []ScoredCandidate {
	return s.scorer.ScoreEntries(entries, query)
}

// FilterByThreshold drops candidates scoring below minScore.
func (s *Service) FilterByThreshold(scored []ScoredCandidate, minScore float64) []ScoredCandidate {
	return scoring.FilterByThreshold(scored, minScore)
}

// RankEntries sorts candidates by descending score, stable on ties.
func (s *Service) RankEntries(scored []ScoredCandidate) []ScoredCandidate {
	return scoring.RankEntries(scored)
}

// SemanticSearch returns up to limit blended-rank search hits.
func (s *Service) SemanticSearch(ctx context.Context, query string, limit int) []SearchResult {
	return s.search.SemanticSearch(ctx, query, limit)
}

// SelectContextForBudget assembles a budget-bounded context selection.
// A negative budget falls back to the configured default; zero yields an
// empty selection.
func (s *Service) SelectContextForBudget(ctx context.Context, query string, budgetUnits int, opts SelectOptions) *Selection {
	if budgetUnits < 0 {
		budgetUnits = s.cfg.Budget.DefaultUnits
	}
	if opts.MaxAgeDays == 0 {
		opts.MaxAgeDays = s.cfg.Budget.MaxAgeDays
	}
	return s.allocator.SelectContextForBudget(ctx, query, budgetUnits, opts)
}

// BackfillEmbeddings generates vectors for entries lacking one; the loop
// stops between entries on ctx cancellation.
func (s *Service) BackfillEmbeddings(ctx context.Context, limit int) int {
	return s.store.BackfillEmbeddings(ctx, limit)
}

// Stats summarizes the store for status surfaces.
func (s *Service) Stats(ctx context.Context) Stats {
	return Stats{
		Engine:         s.store.Engine(),
		Path:           s.store.Path(),
		Counts:         s.store.GetEntryCounts(ctx),
		WithEmbeddings: s.store.CountEntriesWithEmbeddings(ctx),
	}
}

// Close drains background work and releases the store and embedder.
func (s *Service) Close() error {
	err := s.store.Close()
	if s.embedder != nil {
		if cerr := s.embedder.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
