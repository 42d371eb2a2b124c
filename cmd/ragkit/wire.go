// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package main

import (
	"context"

	"github.com/spf13/viper"

	"github.com/ragkit-dev/ragkit/internal/cache"
	"github.com/ragkit-dev/ragkit/internal/chunk"
	"github.com/ragkit-dev/ragkit/internal/config"
	"github.com/ragkit-dev/ragkit/internal/embed"
	openaiembed "github.com/ragkit-dev/ragkit/internal/embed/openai"
	"github.com/ragkit-dev/ragkit/internal/pipeline"
	"github.com/ragkit-dev/ragkit/internal/store"
	_ "github.com/ragkit-dev/ragkit/internal/store/memory" // register memory backend
	_ "github.com/ragkit-dev/ragkit/internal/store/sqlite" // register sqlite backend
)

// buildPipeline wires a pipeline from the global configuration. The caller
// owns the returned pipeline and must Close it; closing it releases the
// store handle and cache it was built with.
func buildPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	handle, err := store.Open(ctx, store.Options{
		Backend:    cfg.Storage.Backend,
		Location:   cfg.Storage.Path,
		Collection: cfg.Storage.Collection,
		Dimensions: cfg.Storage.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	embedder, err := openaiembed.New(openaiembed.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.Endpoint,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Storage.Dimensions,
	})
	if err != nil {
		_ = handle.Close()
		return nil, err
	}

	var qc *cache.QueryCache
	if cfg.Cache.Enabled {
		qc, err = cache.New(cfg.Cache.Size)
		if err != nil {
			_ = handle.Close()
			return nil, err
		}
	}

	return assemblePipeline(handle, embedder, qc, cfg)
}

// assemblePipeline builds the pipeline from already-constructed parts. On
// failure it closes everything it was handed; the caller owns nothing
// afterwards.
func assemblePipeline(handle *store.Handle, embedder embed.Embedder, qc *cache.QueryCache, cfg *config.Config) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithChunking(chunk.Options{
			Size:      cfg.Chunking.Size,
			Overlap:   cfg.Chunking.Overlap,
			MinLength: cfg.Chunking.MinLength,
		}),
	}
	if qc != nil {
		opts = append(opts, pipeline.WithCache(qc))
	}

	p, err := pipeline.New(handle, embedder, opts...)
	if err != nil {
		_ = handle.Close()
		if qc != nil {
			_ = qc.Close()
		}
		return nil, err
	}
	return p, nil
}
