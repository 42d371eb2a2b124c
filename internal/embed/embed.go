// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package embed defines the embedding provider capability. Embedding is an
// external service; this package only names the contract the pipeline
// depends on.
package embed

import "context"

// Embedder converts text into a fixed-length vector. Implementations declare
// their dimensionality up front so it can be validated against the store's
// configured dimensionality before any document is ingested.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the length of every vector Embed produces.
	Dimensions() int

	// Model returns the embedding model identifier.
	Model() string
}
