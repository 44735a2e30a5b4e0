// Package embeddings provides embedding generation and the quantized
// vector codec used by the entry store.
package embeddings

import (
	"context"
	"errors"
)

// Sentinel errors for embedding operations.
var (
	// ErrUnavailable indicates the embedding backend could not be loaded.
	// Callers recover locally: writes proceed without a vector and search
	// degrades to keyword-only. Never a hard write-path failure.
	ErrUnavailable = errors.New("embedding backend unavailable")

	// ErrEmptyInput indicates empty or nil input text.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbeddingFailed indicates a single embed call failed.
	ErrEmbeddingFailed = errors.New("failed to generate embedding")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embedding configuration")
)

// Provider is the interface for embedding providers.
type Provider interface {
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Model is the embedding model name.
	Model string
	// CacheDir is the model cache directory.
	CacheDir string
	// MaxLength is the maximum input sequence length (default 512).
	MaxLength int
}

// NewProvider creates an embedding provider based on the configuration.
// Returns ErrUnavailable (wrapped) when the local ONNX backend cannot
// load; callers treat that as a degraded-but-valid state.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	return NewFastEmbedProvider(FastEmbedConfig{
		Model:     cfg.Model,
		CacheDir:  cfg.CacheDir,
		MaxLength: cfg.MaxLength,
	})
}
