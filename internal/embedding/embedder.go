// Package embedding turns text into fixed-dimension unit vectors, via a
// local ONNX model when available or a deterministic fallback.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations return
// unit-normalized vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
