// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package pipeline coordinates an embedding provider and a vector store to
// answer natural-language queries and ingest documents. A Pipeline
// exclusively owns the store handle and cache it is constructed with and is
// the only component allowed to close them.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ragkit-dev/ragkit/internal/cache"
	"github.com/ragkit-dev/ragkit/internal/chunk"
	"github.com/ragkit-dev/ragkit/internal/embed"
	"github.com/ragkit-dev/ragkit/internal/store"
	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

// DefaultTopK is used when a query asks for zero results.
const DefaultTopK = 3

// Store is the subset of the store handle the pipeline depends on.
// *store.Handle satisfies it.
type Store interface {
	Upsert(ctx context.Context, records []store.Record) error
	Search(ctx context.Context, query []float32, topK int, filter map[string]any) ([]store.Result, error)
	Stats(ctx context.Context) (store.CollectionInfo, error)
	Dimensions() int
	Close() error
}

// Pipeline owns one store handle and optionally one query cache. The
// lifecycle is OPEN → CLOSED: Close transitions unconditionally, closes
// every owned child exactly once, and any other operation on a closed
// pipeline fails with a closed-handle error.
type Pipeline struct {
	mu     sync.RWMutex
	closed bool

	store    Store
	embedder embed.Embedder
	cache    *cache.QueryCache // nil when caching is disabled
	chunking chunk.Options
	log      *slog.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithCache attaches a query cache. The pipeline takes ownership and closes
// it together with the store.
func WithCache(c *cache.QueryCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger sets the logger used for close-path diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithChunking overrides the document chunking options used by Ingest.
func WithChunking(opts chunk.Options) Option {
	return func(p *Pipeline) { p.chunking = opts }
}

// New builds a pipeline around an already-open store handle and an embedding
// provider. The embedder's declared dimensionality must match the store's;
// a mismatch is a configuration error. The pipeline never opens a second
// store handle: the one passed here is its only connection to the
// collection.
func New(s Store, e embed.Embedder, opts ...Option) (*Pipeline, error) {
	if s == nil {
		return nil, ragerr.New(ragerr.CodeConfigValidateInvalidValue, "pipeline: store must not be nil")
	}
	if e == nil {
		return nil, ragerr.New(ragerr.CodeConfigValidateInvalidValue, "pipeline: embedder must not be nil")
	}
	if e.Dimensions() != s.Dimensions() {
		return nil, ragerr.Errorf(ragerr.CodePipelineDimensionMismatch,
			"pipeline: embedder %q produces %d dimensions, store expects %d",
			e.Model(), e.Dimensions(), s.Dimensions())
	}

	p := &Pipeline{store: s, embedder: e, chunking: chunk.DefaultOptions()}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p, nil
}

// Query embeds text and returns up to topK results ordered by descending
// similarity. A cache hit for an equivalent query skips the embedding call
// and the search. topK defaults to DefaultTopK when 0.
func (p *Pipeline) Query(ctx context.Context, text string, topK int) ([]store.Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, p.closedErr()
	}

	if text == "" {
		return nil, ragerr.New(ragerr.CodePipelineInputInvalid, "pipeline: query text must not be empty")
	}
	if topK == 0 {
		topK = DefaultTopK
	}

	key := cache.Key(text, topK)
	if p.cache != nil {
		if results, ok := p.cache.Get(key); ok {
			return results, nil
		}
	}

	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeEmbedUpstreamFailure, "embedding query",
			ragerr.Field("model", p.embedder.Model()))
	}

	results, err := p.store.Search(ctx, vector, topK, nil)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Add(key, results)
	}
	return results, nil
}

// Ingest chunks the text read from r, embeds every chunk, and upserts the
// resulting records. Each record carries a fresh UUID, so re-ingesting the
// same document adds rather than replaces; at-least-once semantics are
// acceptable here. Returns the number of records written.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, source string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return 0, p.closedErr()
	}

	text, err := io.ReadAll(r)
	if err != nil {
		return 0, ragerr.Wrap(err, ragerr.CodeIngestReadFailure, "reading document",
			ragerr.Field("source", source))
	}

	chunks := chunk.Split(string(text), p.chunking)
	if len(chunks) == 0 {
		return 0, nil
	}

	records := make([]store.Record, 0, len(chunks))
	for i, c := range chunks {
		vector, err := p.embedder.Embed(ctx, c)
		if err != nil {
			return 0, ragerr.Wrap(err, ragerr.CodeEmbedUpstreamFailure, "embedding chunk",
				ragerr.Field("model", p.embedder.Model()),
				ragerr.Field("chunk", i))
		}
		records = append(records, store.Record{
			ID:     uuid.NewString(),
			Vector: vector,
			Payload: map[string]any{
				"text":     c,
				"chunk_id": i,
				"source":   source,
			},
		})
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// IngestFile ingests the document at path.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, ragerr.Wrap(err, ragerr.CodeIngestReadFailure, "opening document",
			ragerr.Field("path", path))
	}
	defer func() { _ = f.Close() }()

	return p.Ingest(ctx, f, filepath.Base(path))
}

// Stats reports the owned collection's info.
func (p *Pipeline) Stats(ctx context.Context) (store.CollectionInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return store.CollectionInfo{}, p.closedErr()
	}

	return p.store.Stats(ctx)
}

// Closed reports whether the pipeline has been closed.
func (p *Pipeline) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Close closes the owned store handle and then the owned cache. Both are
// always attempted: a failure closing the store is logged and does not stop
// the cache from being released. The first call returns the joined
// failures, if any; later calls are no-ops returning nil.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if err := p.store.Close(); err != nil {
		p.log.Warn("closing store handle failed", "error", err)
		errs = append(errs, err)
	}
	if p.cache != nil {
		if err := p.cache.Close(); err != nil {
			p.log.Warn("closing query cache failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return ragerr.Join(errs...)
	}
	return nil
}

func (p *Pipeline) closedErr() error {
	return ragerr.New(ragerr.CodePipelineHandleClosed, "pipeline: handle is closed")
}
