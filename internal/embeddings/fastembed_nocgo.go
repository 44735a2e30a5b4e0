//go:build !cgo

package embeddings

import (
	"context"
	"fmt"
)

// FastEmbedConfig holds configuration for the FastEmbed provider.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// FastEmbedProvider is a stub for non-CGO builds. The ONNX runtime needs
// CGO; without it every embed call reports ErrUnavailable and the rest of
// the system degrades to keyword-only retrieval.
type FastEmbedProvider struct{}

// NewFastEmbedProvider returns ErrUnavailable when CGO is not available.
func NewFastEmbedProvider(_ FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, fmt.Errorf("%w: binary built without CGO support", ErrUnavailable)
}

// EmbedQuery returns ErrUnavailable when CGO is not available.
func (p *FastEmbedProvider) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrUnavailable
}

// EmbedDocuments returns ErrUnavailable when CGO is not available.
func (p *FastEmbedProvider) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

// Dimension returns the default dimension so size calculations stay valid.
func (p *FastEmbedProvider) Dimension() int {
	return Dimension
}

// Close is a no-op when CGO is not available.
func (p *FastEmbedProvider) Close() error {
	return nil
}
