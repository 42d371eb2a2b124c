// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package store

import (
	"sync"

	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

// Factory opens a backend connection for one collection at a storage
// location. The location is backend-specific: a directory for embedded
// backends, an endpoint for remote ones.
type Factory func(location, collection string) (Backend, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend. Backend
// packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// resolveFactory returns the factory for name, defaulting to "sqlite".
func resolveFactory(name string) (Factory, error) {
	if name == "" {
		name = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, ragerr.Errorf(ragerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", name)
	}
	return factory, nil
}
