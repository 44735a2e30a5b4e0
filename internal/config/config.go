// Package config provides configuration loading for memoryd.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. Every field has a working default so a zero-setup
// start is always possible.
package config

import (
	"errors"
	"fmt"
)

// Config holds the complete memoryd configuration.
type Config struct {
	Store     StoreConfig     `koanf:"store"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Search    SearchConfig    `koanf:"search"`
	Budget    BudgetConfig    `koanf:"budget"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// StoreConfig holds persistent entry store configuration.
type StoreConfig struct {
	// Path is the storage file location. The containing directory is
	// created on init if absent.
	Path string `koanf:"path"`

	// Engine selects the storage engine: "auto" (portable first, native
	// fallback), "portable" (pure-Go sqlite) or "native" (cgo sqlite).
	Engine string `koanf:"engine"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	// Enabled toggles embedding generation. When false (or when the
	// provider cannot load), writes proceed without vectors and search
	// degrades to keyword-only.
	Enabled bool `koanf:"enabled"`

	// Model is the embedding model name. The default 384-dimension model
	// matches the store's quantized vector width.
	Model string `koanf:"model"`

	// CacheDir is the model file cache directory.
	CacheDir string `koanf:"cache_dir"`
}

// SearchConfig holds semantic search blending configuration.
type SearchConfig struct {
	// SemanticWeight and KeywordWeight blend the two ranking signals.
	// They should sum to 1.0.
	SemanticWeight float64 `koanf:"semantic_weight"`
	KeywordWeight  float64 `koanf:"keyword_weight"`

	// MinCompositeScore discards candidates at or below this composite
	// score before ranking.
	MinCompositeScore float64 `koanf:"min_composite_score"`
}

// BudgetConfig holds context budget allocator configuration.
type BudgetConfig struct {
	// KeywordBlend and SemanticBlend weight the final allocator score.
	// Kept separate from SearchConfig weights: the upstream system shipped
	// different ratios in the two places, so both are configurable here.
	KeywordBlend  float64 `koanf:"keyword_blend"`
	SemanticBlend float64 `koanf:"semantic_blend"`

	// DefaultUnits is the budget used when a caller passes none.
	DefaultUnits int `koanf:"default_units"`

	// MaxAgeDays excludes entries older than this from allocation.
	MaxAgeDays int `koanf:"max_age_days"`

	// TokenizerModel selects the tiktoken encoding used for unit cost
	// estimation. When the encoding cannot load, a chars/4 approximation
	// is used instead.
	TokenizerModel string `koanf:"tokenizer_model"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:   ".memoryd/memory.db",
			Engine: "auto",
		},
		Embedding: EmbeddingConfig{
			Enabled:  true,
			Model:    "BAAI/bge-small-en-v1.5",
			CacheDir: ".memoryd/models",
		},
		Search: SearchConfig{
			SemanticWeight:    0.7,
			KeywordWeight:     0.3,
			MinCompositeScore: 0.1,
		},
		Budget: BudgetConfig{
			KeywordBlend:   0.6,
			SemanticBlend:  0.4,
			DefaultUnits:   4000,
			MaxAgeDays:     90,
			TokenizerModel: "cl100k_base",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	switch c.Store.Engine {
	case "auto", "portable", "native":
	default:
		return fmt.Errorf("invalid store.engine %q (supported: auto, portable, native)", c.Store.Engine)
	}
	if c.Search.SemanticWeight < 0 || c.Search.KeywordWeight < 0 {
		return errors.New("search weights must be non-negative")
	}
	if sum := c.Search.SemanticWeight + c.Search.KeywordWeight; sum <= 0 {
		return errors.New("search weights must sum to a positive value")
	}
	if c.Budget.KeywordBlend < 0 || c.Budget.SemanticBlend < 0 {
		return errors.New("budget blend weights must be non-negative")
	}
	if c.Budget.DefaultUnits < 0 {
		return errors.New("budget.default_units must be non-negative")
	}
	if c.Budget.MaxAgeDays < 0 {
		return errors.New("budget.max_age_days must be non-negative")
	}
	return nil
}
