// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragkit-dev/ragkit/internal/store"
	_ "github.com/ragkit-dev/ragkit/internal/store/memory" // register memory backend
	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

// memOpts returns options for a fresh memory-backed collection unique to the
// test, so process-local collections never leak between tests.
func memOpts(t *testing.T, dims int) store.Options {
	t.Helper()
	return store.Options{
		Backend:    "memory",
		Location:   t.Name(),
		Collection: "docs",
		Dimensions: dims,
	}
}

func mustOpen(t *testing.T, opts store.Options) *store.Handle {
	t.Helper()
	h, err := store.Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestOpenRejectsInvalidOptions(t *testing.T) {
	ctx := context.Background()

	_, err := store.Open(ctx, store.Options{Backend: "memory", Location: t.Name(), Dimensions: 3})
	require.Error(t, err)
	assert.True(t, ragerr.IsConfiguration(err), "empty collection should be a configuration error")

	_, err = store.Open(ctx, store.Options{Backend: "memory", Location: t.Name(), Collection: "docs"})
	require.Error(t, err)
	assert.True(t, ragerr.IsConfiguration(err), "zero dimensions should be a configuration error")
}

func TestOpenUnsupportedBackend(t *testing.T) {
	_, err := store.Open(context.Background(), store.Options{
		Backend: "etcd", Location: t.Name(), Collection: "docs", Dimensions: 3,
	})
	require.Error(t, err)
	assert.True(t, ragerr.IsBackend(err))
	assert.True(t, ragerr.HasCode(err, ragerr.CodeStoreBackendUnsupported))
}

func TestOpenNeverFailsWithClosedError(t *testing.T) {
	h, err := store.Open(context.Background(), memOpts(t, 3))
	require.NoError(t, err)
	assert.False(t, ragerr.IsClosed(err))
	require.NoError(t, h.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	h := mustOpen(t, memOpts(t, 3))

	for i := 0; i < 5; i++ {
		assert.NoError(t, h.Close())
		assert.True(t, h.Closed())
	}
}

func TestOperationsAfterCloseFailWithClosedError(t *testing.T) {
	ctx := context.Background()
	h := mustOpen(t, memOpts(t, 3))
	require.NoError(t, h.Close())

	err := h.Upsert(ctx, []store.Record{{ID: "a", Vector: []float32{1, 0, 0}}})
	assert.True(t, ragerr.IsClosed(err))

	_, err = h.Search(ctx, []float32{1, 0, 0}, 1, nil)
	assert.True(t, ragerr.IsClosed(err))

	_, err = h.Stats(ctx)
	assert.True(t, ragerr.IsClosed(err))
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	h := mustOpen(t, memOpts(t, 3))

	require.NoError(t, h.Upsert(ctx, []store.Record{{ID: "a", Vector: []float32{1, 0, 0}}}))

	cases := []struct {
		name    string
		records []store.Record
	}{
		{"short vector", []store.Record{{ID: "b", Vector: []float32{1, 0}}}},
		{"long vector", []store.Record{{ID: "b", Vector: []float32{1, 0, 0, 0}}}},
		{"empty id", []store.Record{{ID: "", Vector: []float32{1, 0, 0}}}},
		{"valid then invalid", []store.Record{
			{ID: "b", Vector: []float32{0, 1, 0}},
			{ID: "c", Vector: []float32{0, 1}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := h.Upsert(ctx, tc.records)
			require.Error(t, err)
			assert.True(t, ragerr.IsValidation(err))

			// Record count must be unchanged after a rejected upsert.
			info, err := h.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), info.Records)
		})
	}
}

func TestSearchValidation(t *testing.T) {
	ctx := context.Background()
	h := mustOpen(t, memOpts(t, 3))

	_, err := h.Search(ctx, []float32{1, 0, 0}, 0, nil)
	require.Error(t, err)
	assert.True(t, ragerr.IsValidation(err))

	_, err = h.Search(ctx, []float32{1, 0, 0}, -2, nil)
	require.Error(t, err)
	assert.True(t, ragerr.IsValidation(err))

	_, err = h.Search(ctx, []float32{1, 0}, 1, nil)
	require.Error(t, err)
	assert.True(t, ragerr.IsValidation(err))
}

func TestSearchOrderingAndTopK(t *testing.T) {
	ctx := context.Background()
	h := mustOpen(t, memOpts(t, 3))

	require.NoError(t, h.Upsert(ctx, []store.Record{
		{ID: "far", Vector: []float32{0, 1, 0}},
		{ID: "near", Vector: []float32{0.9, 0.1, 0}},
		{ID: "exact", Vector: []float32{1, 0, 0}},
	}))

	results, err := h.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].ID)
	assert.Equal(t, "near", results[1].ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	// top_k larger than the record count returns everything, still ordered.
	results, err = h.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestExactMatchScoresMaximum(t *testing.T) {
	ctx := context.Background()
	h := mustOpen(t, memOpts(t, 3))

	require.NoError(t, h.Upsert(ctx, []store.Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]any{}},
	}))

	results, err := h.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestReopenWithDifferentDimensionsFails(t *testing.T) {
	ctx := context.Background()
	opts := memOpts(t, 3)

	h := mustOpen(t, opts)
	require.NoError(t, h.Upsert(ctx, []store.Record{{ID: "a", Vector: []float32{1, 0, 0}}}))
	require.NoError(t, h.Close())

	mismatched := opts
	mismatched.Dimensions = 4
	_, err := store.Open(ctx, mismatched)
	require.Error(t, err)
	assert.True(t, ragerr.IsConfiguration(err))
	assert.True(t, ragerr.HasCode(err, ragerr.CodeStoreDimensionMismatch))

	// The collection must be untouched: reopening with the original
	// dimensionality still sees the stored record.
	h2 := mustOpen(t, opts)
	info, err := h2.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Records)
	assert.Equal(t, 3, info.Dimensions)
}

func TestStatsReportsCountAndDimensions(t *testing.T) {
	ctx := context.Background()
	h := mustOpen(t, memOpts(t, 3))

	info, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Records)
	assert.Equal(t, 3, info.Dimensions)
	assert.Equal(t, "docs", info.Name)

	require.NoError(t, h.Upsert(ctx, []store.Record{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{0, 1, 0}},
	}))

	info, err = h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Records)
}

func TestWithClosesOnError(t *testing.T) {
	var captured *store.Handle
	sentinel := errors.New("boom")

	err := store.With(context.Background(), memOpts(t, 3), func(h *store.Handle) error {
		captured = h
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	require.NotNil(t, captured)
	assert.True(t, captured.Closed())
}

func TestWithClosesOnPanic(t *testing.T) {
	var captured *store.Handle

	assert.Panics(t, func() {
		_ = store.With(context.Background(), memOpts(t, 3), func(h *store.Handle) error {
			captured = h
			panic("boom")
		})
	})

	require.NotNil(t, captured)
	assert.True(t, captured.Closed())
}

func TestWithReturnsOpenError(t *testing.T) {
	err := store.With(context.Background(), store.Options{
		Backend: "memory", Location: t.Name(), Collection: "", Dimensions: 3,
	}, func(*store.Handle) error {
		t.Fatal("fn must not run when open fails")
		return nil
	})
	require.Error(t, err)
	assert.True(t, ragerr.IsConfiguration(err))
}
