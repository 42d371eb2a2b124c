// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package memory provides a process-local vector store backend. Collections
// are keyed by location and name and survive reopening within the same
// process, which makes the backend a drop-in stand-in for the sqlite backend
// in tests and a demonstration that backends are substitutable.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ragkit-dev/ragkit/internal/store"
)

func init() {
	store.RegisterBackend("memory", New)
}

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

// collection is the shared in-process state behind one (location, name) pair.
type collection struct {
	mu    sync.RWMutex
	name  string
	dims  int // 0 until the first successful Init
	order []string
	recs  map[string]store.Record
}

var (
	registryMu sync.Mutex
	registry   = map[string]*collection{}
)

// Backend implements store.Backend over an in-process collection.
type Backend struct {
	mu     sync.Mutex
	closed bool
	coll   *collection
}

// New opens a backend for the collection at location. The location has no
// filesystem meaning; it namespaces collections within the process.
func New(location, name string) (store.Backend, error) {
	if name == "" {
		return nil, fmt.Errorf("memory: collection name must not be empty")
	}

	key := location + "\x00" + name
	registryMu.Lock()
	coll, ok := registry[key]
	if !ok {
		coll = &collection{name: name, recs: map[string]store.Record{}}
		registry[key] = coll
	}
	registryMu.Unlock()

	return &Backend{coll: coll}, nil
}

func (b *Backend) Init(_ context.Context, dimensions int) (store.CollectionInfo, error) {
	if err := b.open(); err != nil {
		return store.CollectionInfo{}, err
	}

	b.coll.mu.Lock()
	defer b.coll.mu.Unlock()
	if b.coll.dims == 0 {
		b.coll.dims = dimensions
	}
	// An existing collection is reported as-is; the handle decides whether
	// the dimensionality is acceptable.
	return b.infoLocked(), nil
}

func (b *Backend) Upsert(_ context.Context, records []store.Record) error {
	if err := b.open(); err != nil {
		return err
	}

	b.coll.mu.Lock()
	defer b.coll.mu.Unlock()
	for _, rec := range records {
		if _, exists := b.coll.recs[rec.ID]; !exists {
			b.coll.order = append(b.coll.order, rec.ID)
		}
		b.coll.recs[rec.ID] = store.Record{
			ID:      rec.ID,
			Vector:  append([]float32(nil), rec.Vector...),
			Payload: clonePayload(rec.Payload),
		}
	}
	return nil
}

func (b *Backend) Search(_ context.Context, query []float32, k int, filter map[string]any) ([]store.Result, error) {
	if err := b.open(); err != nil {
		return nil, err
	}

	b.coll.mu.RLock()
	defer b.coll.mu.RUnlock()

	var results []store.Result
	for _, id := range b.coll.order {
		rec := b.coll.recs[id]
		if !store.MatchesFilter(rec.Payload, filter) {
			continue
		}
		results = append(results, store.Result{
			ID:      rec.ID,
			Score:   cosineSimilarity(query, rec.Vector),
			Payload: clonePayload(rec.Payload),
		})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (b *Backend) Info(_ context.Context) (store.CollectionInfo, error) {
	if err := b.open(); err != nil {
		return store.CollectionInfo{}, err
	}

	b.coll.mu.RLock()
	defer b.coll.mu.RUnlock()
	return b.infoLocked(), nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Backend) open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("memory: backend is closed")
	}
	return nil
}

// infoLocked requires coll.mu to be held.
func (b *Backend) infoLocked() store.CollectionInfo {
	return store.CollectionInfo{
		Name:       b.coll.name,
		Records:    int64(len(b.coll.recs)),
		Dimensions: b.coll.dims,
	}
}

// cosineSimilarity returns a similarity in [-1, 1]; 1.0 is an exact
// direction match, 0 when either vector is zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
