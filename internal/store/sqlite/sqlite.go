// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package sqlite implements the default vector store backend on SQLite with
// the sqlite-vec extension. Each collection lives in its own database file
// under the storage location directory.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ragkit-dev/ragkit/internal/store"
)

func init() {
	sqlite_vec.Auto()
	store.RegisterBackend("sqlite", New)
}

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

// Backend implements store.Backend backed by SQLite with sqlite-vec.
//
// The vec0 virtual table uses the cosine distance metric; distances are
// converted to similarities (1 - distance) before leaving this package, so
// an exact match scores 1.0.
type Backend struct {
	db         *sql.DB
	collection string
}

// New opens (or creates) the database file for collection under the location
// directory. Table creation is deferred to Init, which knows the
// dimensionality.
func New(location, collection string) (store.Backend, error) {
	if collection == "" {
		return nil, fmt.Errorf("sqlite: collection name must not be empty")
	}
	if location == "" {
		location = "."
	}

	if err := os.MkdirAll(location, 0o700); err != nil {
		return nil, fmt.Errorf("creating storage directory %s: %w", location, err)
	}

	dbPath := filepath.Join(location, collection+".db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	return &Backend{db: db, collection: collection}, nil
}

// Init creates the collection tables if they do not exist and records the
// dimensionality in a manifest row. An existing collection is reported
// unchanged: the stored dimensionality is returned as-is and no DDL runs
// against it.
func (b *Backend) Init(ctx context.Context, dimensions int) (store.CollectionInfo, error) {
	storedDims, err := b.manifestDims(ctx)
	if err != nil {
		return store.CollectionInfo{}, err
	}

	if storedDims == 0 {
		if err := b.migrate(ctx, dimensions); err != nil {
			return store.CollectionInfo{}, err
		}
		storedDims = dimensions
	}

	count, err := b.count(ctx)
	if err != nil {
		return store.CollectionInfo{}, err
	}

	return store.CollectionInfo{Name: b.collection, Records: count, Dimensions: storedDims}, nil
}

// manifestDims returns the dimensionality recorded for this collection, or 0
// when the collection has not been created yet.
func (b *Backend) manifestDims(ctx context.Context) (int, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS collection_manifest (
	name       TEXT PRIMARY KEY,
	dimensions INTEGER NOT NULL
)`
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("creating collection manifest: %w", err)
	}

	var dims int
	err := b.db.QueryRowContext(ctx,
		`SELECT dimensions FROM collection_manifest WHERE name = ?`, b.collection).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection manifest: %w", err)
	}
	return dims, nil
}

func (b *Backend) migrate(ctx context.Context, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := b.db.ExecContext(ctx, vecDDL); err != nil {
		return fmt.Errorf("creating vectors virtual table: %w", err)
	}

	const payloadDDL = `
CREATE TABLE IF NOT EXISTS vector_payload (
	id      TEXT PRIMARY KEY,
	payload TEXT NOT NULL DEFAULT '{}'
)`
	if _, err := b.db.ExecContext(ctx, payloadDDL); err != nil {
		return fmt.Errorf("creating vector_payload table: %w", err)
	}

	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO collection_manifest(name, dimensions) VALUES (?, ?)`, b.collection, dimensions); err != nil {
		return fmt.Errorf("recording collection manifest: %w", err)
	}
	return nil
}

// Upsert inserts or replaces records and their payloads in one transaction
// per batch. Replaying a batch after a partial failure is safe.
func (b *Backend) Upsert(ctx context.Context, records []store.Record) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range records {
		blob, err := sqlite_vec.SerializeFloat32(rec.Vector)
		if err != nil {
			return fmt.Errorf("serializing embedding %s: %w", rec.ID, err)
		}

		payloadJSON := []byte("{}")
		if len(rec.Payload) > 0 {
			payloadJSON, err = json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("marshalling payload %s: %w", rec.ID, err)
			}
		}

		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, rec.ID); err != nil {
			return fmt.Errorf("deleting existing vector %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(id, embedding) VALUES (?, ?)`, rec.ID, blob); err != nil {
			return fmt.Errorf("inserting vector %s: %w", rec.ID, err)
		}

		const payloadQ = `INSERT INTO vector_payload(id, payload) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`
		if _, err := tx.ExecContext(ctx, payloadQ, rec.ID, string(payloadJSON)); err != nil {
			return fmt.Errorf("upserting vector payload %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Search performs a k-nearest-neighbor search. With a filter, a larger
// candidate set is fetched and reduced by payload equality, since vec0
// cannot filter on the joined payload inside the KNN query.
func (b *Backend) Search(ctx context.Context, query []float32, k int, filter map[string]any) ([]store.Result, error) {
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	candidates := k
	if len(filter) > 0 {
		candidates = k * 8
	}

	const q = `SELECT v.id, v.distance, COALESCE(p.payload, '{}')
FROM vectors v
LEFT JOIN vector_payload p ON p.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`

	rows, err := b.db.QueryContext(ctx, q, blob, candidates)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []store.Result
	for rows.Next() {
		var (
			id         string
			distance   float64
			payloadStr string
		)
		if err := rows.Scan(&id, &distance, &payloadStr); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}

		var payload map[string]any
		if payloadStr != "" && payloadStr != "{}" {
			if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
				return nil, fmt.Errorf("unmarshalling payload %s: %w", id, err)
			}
		}

		if !store.MatchesFilter(payload, filter) {
			continue
		}

		results = append(results, store.Result{ID: id, Score: 1 - distance, Payload: payload})
		if len(results) == k {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}

// Info reports the collection name, record count, and stored dimensionality.
func (b *Backend) Info(ctx context.Context) (store.CollectionInfo, error) {
	dims, err := b.manifestDims(ctx)
	if err != nil {
		return store.CollectionInfo{}, err
	}
	count, err := b.count(ctx)
	if err != nil {
		return store.CollectionInfo{}, err
	}
	return store.CollectionInfo{Name: b.collection, Records: count, Dimensions: dims}, nil
}

func (b *Backend) count(ctx context.Context) (int64, error) {
	var count int64
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_payload`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// Close closes the underlying database connection. Safe to call repeatedly.
func (b *Backend) Close() error {
	return b.db.Close()
}
