package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces memoryd environment variables.
const envPrefix = "MEMORYD_"

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (MEMORYD_STORE_PATH, MEMORYD_SEARCH_SEMANTIC_WEIGHT, ...)
//  2. YAML config file (configPath, skipped when empty or missing)
//  3. Built-in defaults
//
// Environment variables map section-first:
//
//	MEMORYD_STORE_PATH              -> store.path
//	MEMORYD_EMBEDDING_CACHE_DIR     -> embedding.cache_dir
//	MEMORYD_BUDGET_MAX_AGE_DAYS     -> budget.max_age_days
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if content, err := os.ReadFile(configPath); err == nil {
			// Use rawbytes provider so the file is read exactly once
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// MEMORYD_STORE_PATH -> store.path
		// Split on the first underscore after the prefix: section, then
		// field name with its internal underscores preserved.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills fields that unmarshalling may have zeroed out.
func applyDefaults(cfg *Config) {
	def := NewDefaultConfig()
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Store.Engine == "" {
		cfg.Store.Engine = def.Store.Engine
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.CacheDir == "" {
		cfg.Embedding.CacheDir = def.Embedding.CacheDir
	}
	if cfg.Search.SemanticWeight == 0 && cfg.Search.KeywordWeight == 0 {
		cfg.Search.SemanticWeight = def.Search.SemanticWeight
		cfg.Search.KeywordWeight = def.Search.KeywordWeight
	}
	if cfg.Budget.KeywordBlend == 0 && cfg.Budget.SemanticBlend == 0 {
		cfg.Budget.KeywordBlend = def.Budget.KeywordBlend
		cfg.Budget.SemanticBlend = def.Budget.SemanticBlend
	}
	if cfg.Budget.DefaultUnits == 0 {
		cfg.Budget.DefaultUnits = def.Budget.DefaultUnits
	}
	if cfg.Budget.TokenizerModel == "" {
		cfg.Budget.TokenizerModel = def.Budget.TokenizerModel
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}
