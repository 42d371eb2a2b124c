// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package store provides a lifecycle-safe handle over a vector-database
// backend. A Handle owns exactly one backend connection and guarantees it is
// released deterministically: explicitly via Close, structurally via With,
// or, as a non-deterministic last resort, by a garbage-collection cleanup.
//
// Score convention: every Result carries a similarity score where higher
// means more relevant and 1.0 is an exact match. Backends that natively
// report distances convert at their boundary; nothing above the Backend
// interface ever sees a distance.
package store

import "context"

// Backend is one open connection to an external vector database, scoped to a
// single collection. Implementations register themselves through
// RegisterBackend and are substitutable without touching Handle logic.
type Backend interface {
	// Init creates the collection if it is absent and returns the actual
	// collection info. Init must never alter an existing collection; a
	// dimensionality conflict is detected by the Handle from the returned
	// info, not by the backend.
	Init(ctx context.Context, dimensions int) (CollectionInfo, error)

	// Upsert inserts or replaces records by ID. At-least-once semantics:
	// replaying records after a partial failure is safe.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to k results ordered by descending similarity,
	// ties in the insertion order of the underlying store. A non-nil
	// filter restricts results to records whose payload matches every
	// key/value pair.
	Search(ctx context.Context, query []float32, k int, filter map[string]any) ([]Result, error)

	// Info reports the current collection info without mutating state.
	Info(ctx context.Context) (CollectionInfo, error)

	Close() error
}

// Record is a single vector record: a unique ID, a vector whose length must
// equal the collection dimensionality, and an arbitrary payload.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Result is a single search hit.
type Result struct {
	ID      string
	Score   float64 // Similarity: higher = more relevant; 1.0 = exact match.
	Payload map[string]any
}

// CollectionInfo describes a collection's identity and size.
type CollectionInfo struct {
	Name       string
	Records    int64
	Dimensions int
}
