// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package store

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

// Options configures Open.
type Options struct {
	Backend    string // registered backend name; empty selects "sqlite"
	Location   string // storage location passed through to the backend
	Collection string
	Dimensions int          // must match the configured embedding provider
	Logger     *slog.Logger // nil uses slog.Default()
}

// Handle owns one backend connection and mediates every call to it. The
// lifecycle is OPEN → CLOSED: Open returns an open handle, Close transitions
// it unconditionally and idempotently, and any other operation on a closed
// handle fails with a closed-handle error. A closed handle cannot be
// reopened; construct a new one.
//
// A garbage-collection cleanup releases the backend if the handle is dropped
// without Close. Its timing is not guaranteed; callers must not rely on it
// and should prefer With or an explicit deferred Close.
type Handle struct {
	mu      sync.RWMutex
	closed  bool
	backend Backend

	name       string // backend name, for logging
	collection string
	dims       int
	log        *slog.Logger
	cleanup    runtime.Cleanup
}

// Open establishes a backend connection, creates the collection if absent,
// and validates that an existing collection's dimensionality matches
// opts.Dimensions. On mismatch the connection is released, the collection is
// left untouched, and a configuration error is returned.
func Open(ctx context.Context, opts Options) (*Handle, error) {
	if opts.Collection == "" {
		return nil, ragerr.New(ragerr.CodeConfigValidateInvalidValue, "store: collection must not be empty")
	}
	if opts.Dimensions <= 0 {
		return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "store: dimensions must be greater than 0, got %d", opts.Dimensions)
	}

	factory, err := resolveFactory(opts.Backend)
	if err != nil {
		return nil, err
	}

	backend, err := factory(opts.Location, opts.Collection)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeStoreBackendFailure, "opening backend",
			ragerr.FieldBackend(opts.Backend), ragerr.FieldCollection(opts.Collection))
	}

	info, err := backend.Init(ctx, opts.Dimensions)
	if err != nil {
		_ = backend.Close()
		return nil, ragerr.Wrap(err, ragerr.CodeStoreBackendFailure, "initialising collection",
			ragerr.FieldCollection(opts.Collection))
	}

	if info.Dimensions != opts.Dimensions {
		_ = backend.Close()
		return nil, ragerr.Errorf(ragerr.CodeStoreDimensionMismatch,
			"store: collection %q has dimensionality %d, configured %d",
			opts.Collection, info.Dimensions, opts.Dimensions)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	h := &Handle{
		backend:    backend,
		name:       opts.Backend,
		collection: opts.Collection,
		dims:       opts.Dimensions,
		log:        log,
	}
	// Leak-reduction backstop only: releases the connection if the handle
	// becomes unreachable without Close. Stopped by an explicit Close.
	h.cleanup = runtime.AddCleanup(h, func(b Backend) { _ = b.Close() }, backend)

	return h, nil
}

// With opens a handle, invokes fn, and guarantees Close on every exit path,
// including an error return or a panic inside fn. This is the recommended
// usage pattern for bounded work.
func With(ctx context.Context, opts Options, fn func(*Handle) error) (err error) {
	h, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(h)
}

// Collection returns the collection identifier.
func (h *Handle) Collection() string { return h.collection }

// Dimensions returns the fixed vector dimensionality.
func (h *Handle) Dimensions() int { return h.dims }

// Upsert validates and persists records. Every vector must have length equal
// to the handle's dimensionality and every ID must be non-empty; a violation
// fails before anything reaches the backend, leaving the record count
// unchanged. Persisting is at-least-once: replaying records after a partial
// failure is safe.
func (h *Handle) Upsert(ctx context.Context, records []Record) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return h.closedErr()
	}

	for i, rec := range records {
		if rec.ID == "" {
			return ragerr.Errorf(ragerr.CodeStoreUpsertInvalid, "store: record %d has an empty id", i)
		}
		if len(rec.Vector) != h.dims {
			return ragerr.New(ragerr.CodeStoreUpsertInvalid, "store: vector length mismatch",
				ragerr.FieldRecordID(rec.ID),
				ragerr.Field("vector_len", len(rec.Vector)),
				ragerr.Field("dimensions", h.dims))
		}
	}

	if err := h.backend.Upsert(ctx, records); err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreBackendFailure, "upserting records",
			ragerr.FieldCollection(h.collection))
	}
	return nil
}

// Search returns at most topK results ordered by strictly non-increasing
// similarity, ties in the insertion order of the underlying store. filter,
// when non-nil, restricts results to records whose payload matches every
// key/value pair.
func (h *Handle) Search(ctx context.Context, query []float32, topK int, filter map[string]any) ([]Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, h.closedErr()
	}

	if topK <= 0 {
		return nil, ragerr.Errorf(ragerr.CodeStoreSearchInvalid, "store: top_k must be greater than 0, got %d", topK)
	}
	if len(query) != h.dims {
		return nil, ragerr.Errorf(ragerr.CodeStoreSearchInvalid,
			"store: query vector length %d does not match dimensionality %d", len(query), h.dims)
	}

	results, err := h.backend.Search(ctx, query, topK, filter)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeStoreBackendFailure, "searching vectors",
			ragerr.FieldCollection(h.collection))
	}

	// Enforce the similarity ordering invariant here rather than trusting
	// each backend's native convention. Stable sort preserves backend
	// insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Stats reports the current record count and dimensionality. It never
// mutates state.
func (h *Handle) Stats(ctx context.Context) (CollectionInfo, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return CollectionInfo{}, h.closedErr()
	}

	info, err := h.backend.Info(ctx)
	if err != nil {
		return CollectionInfo{}, ragerr.Wrap(err, ragerr.CodeStoreBackendFailure, "reading collection info",
			ragerr.FieldCollection(h.collection))
	}
	return info, nil
}

// Closed reports whether the handle has been closed.
func (h *Handle) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Close releases the backend connection. It is idempotent: the first call
// transitions to CLOSED and returns any release failure (also logged); every
// later call is a no-op returning nil. Close waits for in-flight operations
// to finish before releasing.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.cleanup.Stop()

	if err := h.backend.Close(); err != nil {
		h.log.Warn("closing vector store backend failed",
			"backend", h.name, "collection", h.collection, "error", err)
		return ragerr.Wrap(err, ragerr.CodeStoreBackendFailure, "closing backend",
			ragerr.FieldCollection(h.collection))
	}
	return nil
}

func (h *Handle) closedErr() error {
	return ragerr.New(ragerr.CodeStoreHandleClosed, "store: handle is closed",
		ragerr.FieldCollection(h.collection))
}
