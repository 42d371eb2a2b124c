// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/ragkit-dev/ragkit/internal/chunk"
	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

// Config is the top-level ragkit configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
}

// StorageConfig selects the vector store backend and collection.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	Collection string `mapstructure:"collection"`
	Dimensions int    `mapstructure:"dimensions"`
}

// EmbeddingConfig holds credentials and model selection for the embedding
// provider.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// CacheConfig controls the query-result cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Size    int  `mapstructure:"size"`
}

// ChunkingConfig controls document chunking during ingest.
type ChunkingConfig struct {
	Size      int `mapstructure:"size"`
	Overlap   int `mapstructure:"overlap"`
	MinLength int `mapstructure:"min_length"`
}

// SetDefaults installs the default configuration values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.collection", "rag_collection")
	v.SetDefault("storage.dimensions", 1536)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	// Registered so AutomaticEnv picks these up during Unmarshal even when
	// no config file sets them.
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.endpoint", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 256)
	v.SetDefault("chunking.size", chunk.DefaultSize)
	v.SetDefault("chunking.overlap", chunk.DefaultOverlap)
	v.SetDefault("chunking.min_length", chunk.DefaultMinLength)
}

// SetupEnv binds environment variables with the RAGKIT_ prefix, e.g.
// RAGKIT_EMBEDDING_API_KEY overrides embedding.api_key.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("RAGKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults when path is
// empty) with environment variable overrides. It is the entry point for
// programs embedding ragkit as a library; the CLI instead layers flag
// bindings and config-file discovery onto a shared viper and goes through
// FromViper directly.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting all issues rather than
// stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validateChunking()...)

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.Collection == "" {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "config: storage.collection must not be empty"))
	}

	if c.Storage.Dimensions <= 0 {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue,
			"config: storage.dimensions must be greater than 0, got %d",
			c.Storage.Dimensions,
		))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	validProviders := map[string]bool{"openai": true}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue,
			"config: embedding.provider must be one of [openai], got %q",
			c.Embedding.Provider,
		))
	}

	if c.Embedding.Model == "" {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "config: embedding.model must not be empty"))
	}

	return errs
}

func (c *Config) validateCache() []error {
	var errs []error

	if c.Cache.Enabled && c.Cache.Size <= 0 {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue,
			"config: cache.size must be greater than 0 when the cache is enabled, got %d",
			c.Cache.Size,
		))
	}

	return errs
}

func (c *Config) validateChunking() []error {
	var errs []error

	if c.Chunking.Size <= 0 {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue,
			"config: chunking.size must be greater than 0, got %d",
			c.Chunking.Size,
		))
	}

	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue,
			"config: chunking.overlap must be in [0, chunking.size), got %d",
			c.Chunking.Overlap,
		))
	}

	if c.Chunking.MinLength < 0 {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue,
			"config: chunking.min_length must not be negative, got %d",
			c.Chunking.MinLength,
		))
	}

	return errs
}
