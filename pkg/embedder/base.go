// Package embedder defines the text embedding capability used to build and
// query per-user semantic indexes.
package embedder

import "context"

// Provider is the interface all embedding backends implement.
type Provider interface {
	// Embed converts a single text to a vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts to vectors in one call; the result
	// order matches the input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the vector dimension this provider produces.
	Dimensions() int

	// Close releases any resources held by the provider.
	Close() error
}
