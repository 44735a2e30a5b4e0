package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".memoryd/memory.db", cfg.Store.Path)
	assert.Equal(t, "auto", cfg.Store.Engine)
	assert.True(t, cfg.Embedding.Enabled)
	assert.InDelta(t, 0.7, cfg.Search.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.KeywordWeight, 1e-9)
	assert.InDelta(t, 0.6, cfg.Budget.KeywordBlend, 1e-9)
	assert.InDelta(t, 0.4, cfg.Budget.SemanticBlend, 1e-9)
	assert.Equal(t, 4000, cfg.Budget.DefaultUnits)
	assert.Equal(t, "cl100k_base", cfg.Budget.TokenizerModel)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
store:
  path: /data/agent.db
  engine: portable
search:
  semantic_weight: 0.5
  keyword_weight: 0.5
budget:
  max_age_days: 30
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/agent.db", cfg.Store.Path)
	assert.Equal(t, "portable", cfg.Store.Engine)
	assert.InDelta(t, 0.5, cfg.Search.SemanticWeight, 1e-9)
	assert.Equal(t, 30, cfg.Budget.MaxAgeDays)
	// Untouched sections keep defaults.
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embedding.Model)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: /from/file.db\n"), 0o600))

	t.Setenv("MEMORYD_STORE_PATH", "/from/env.db")
	t.Setenv("MEMORYD_BUDGET_DEFAULT_UNITS", "2500")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env.db", cfg.Store.Path)
	assert.Equal(t, 2500, cfg.Budget.DefaultUnits)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Store.Engine)
}

func TestLoad_InvalidEngine(t *testing.T) {
	t.Setenv("MEMORYD_STORE_ENGINE", "floppy")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.engine")
}

func TestValidate_Weights(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Search.SemanticWeight = -1
	require.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Search.SemanticWeight = 0
	cfg.Search.KeywordWeight = 0
	require.Error(t, cfg.Validate())
}
