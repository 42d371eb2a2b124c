// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package openai implements embed.Embedder using the OpenAI embeddings API.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ragkit-dev/ragkit/internal/embed"
	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-3-small"

// DefaultDimensions matches DefaultModel's native output size.
const DefaultDimensions = 1536

// Config holds OpenAI embedder configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string // defaults to DefaultModel
	Dimensions int    // defaults to DefaultDimensions
}

// Compile-time interface check.
var _ embed.Embedder = (*Embedder)(nil)

// Embedder implements embed.Embedder over the OpenAI API.
type Embedder struct {
	client openaisdk.Client
	model  string
	dims   int
}

// New creates an OpenAI embedder. The API key is required.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, ragerr.New(ragerr.CodeEmbedMissingKey, "openai: missing api_key in config")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	return &Embedder{
		client: openaisdk.NewClient(opts...),
		model:  model,
		dims:   dims,
	}, nil
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Dimensions() int { return e.dims }

// Embed requests an embedding for text. API failures surface as embedding
// errors; a response whose vector length does not match the declared
// dimensionality is rejected rather than passed downstream.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model: openaisdk.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeEmbedUpstreamFailure, "requesting embedding",
			ragerr.Field("model", e.model))
	}

	if len(resp.Data) == 0 {
		return nil, ragerr.New(ragerr.CodeEmbedResponseInvalid, "openai: embedding response contains no data",
			ragerr.Field("model", e.model))
	}

	raw := resp.Data[0].Embedding
	if len(raw) != e.dims {
		return nil, ragerr.New(ragerr.CodeEmbedResponseInvalid, "openai: embedding length mismatch",
			ragerr.Field("model", e.model),
			ragerr.Field("got", len(raw)),
			ragerr.Field("want", e.dims))
	}

	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return vector, nil
}
