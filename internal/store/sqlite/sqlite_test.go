// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragkit-dev/ragkit/internal/store"
	"github.com/ragkit-dev/ragkit/internal/store/sqlite"
)

func newBackend(t *testing.T, location string, dims int) store.Backend {
	t.Helper()
	b, err := sqlite.New(location, "docs")
	require.NoError(t, err)

	_, err = b.Init(context.Background(), dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, t.TempDir(), 3) // 3-dimensional embeddings for testing

	err := b.Upsert(ctx, []store.Record{
		{ID: "v1", Vector: []float32{1, 0, 0}, Payload: map[string]any{"source": "test1"}},
		{ID: "v2", Vector: []float32{0, 1, 0}, Payload: map[string]any{"source": "test2"}},
		{ID: "v3", Vector: []float32{0.9, 0.1, 0}, Payload: map[string]any{"source": "test3"}},
	})
	require.NoError(t, err)

	results, err := b.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "v1", results[0].ID) // exact match should be first
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "v3", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, "test1", results[0].Payload["source"])
}

func TestUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, t.TempDir(), 3)

	require.NoError(t, b.Upsert(ctx, []store.Record{
		{ID: "v1", Vector: []float32{1, 0, 0}, Payload: map[string]any{"version": float64(1)}},
	}))

	// Upsert with new embedding and payload.
	require.NoError(t, b.Upsert(ctx, []store.Record{
		{ID: "v1", Vector: []float32{0, 1, 0}, Payload: map[string]any{"version": float64(2)}},
	}))

	info, err := b.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Records)

	results, err := b.Search(ctx, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
	assert.Equal(t, float64(2), results[0].Payload["version"])
}

func TestSearchFilter(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, t.TempDir(), 3)

	require.NoError(t, b.Upsert(ctx, []store.Record{
		{ID: "v1", Vector: []float32{1, 0, 0}, Payload: map[string]any{"tag": "a"}},
		{ID: "v2", Vector: []float32{0.99, 0.01, 0}, Payload: map[string]any{"tag": "b"}},
	}))

	results, err := b.Search(ctx, []float32{1, 0, 0}, 5, map[string]any{"tag": "b"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].ID)
}

func TestManifestPersistsDimensions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b1 := newBackend(t, dir, 3)
	require.NoError(t, b1.Upsert(ctx, []store.Record{{ID: "v1", Vector: []float32{1, 0, 0}}}))
	require.NoError(t, b1.Close())

	// Re-opening with a different requested dimensionality must report the
	// stored one and leave the collection untouched.
	b2, err := sqlite.New(dir, "docs")
	require.NoError(t, err)
	defer func() { _ = b2.Close() }()

	info, err := b2.Init(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Dimensions)
	assert.Equal(t, int64(1), info.Records)

	results, err := b2.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b1, err := sqlite.New(dir, "alpha")
	require.NoError(t, err)
	defer func() { _ = b1.Close() }()
	_, err = b1.Init(ctx, 3)
	require.NoError(t, err)

	b2, err := sqlite.New(dir, "beta")
	require.NoError(t, err)
	defer func() { _ = b2.Close() }()
	_, err = b2.Init(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, b1.Upsert(ctx, []store.Record{{ID: "v1", Vector: []float32{1, 0, 0}}}))

	info, err := b2.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Records)
}

func TestCloseIsRepeatable(t *testing.T) {
	b := newBackend(t, t.TempDir(), 3)
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestEmptyCollectionSearch(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, t.TempDir(), 3)

	results, err := b.Search(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
