// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package errors_test

import (
	stderrors "errors"
	"testing"

	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := ragerr.New(
		ragerr.CodeStoreUpsertInvalid,
		"vector length mismatch",
		ragerr.FieldCollection("docs"),
		ragerr.FieldRecordID("rec-1"),
	)

	require.Error(t, err)
	assert.Equal(t, ragerr.CodeStoreUpsertInvalid, ragerr.CodeOf(err))
	assert.True(t, ragerr.HasCode(err, ragerr.CodeStoreUpsertInvalid))

	fields := ragerr.FieldsOf(err)
	assert.Equal(t, "docs", fields["collection"])
	assert.Equal(t, "rec-1", fields["record_id"])
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := ragerr.Errorf(ragerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", "etcd")
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeStoreBackendUnsupported, ragerr.CodeOf(err))
	assert.Contains(t, err.Error(), `unsupported storage backend: "etcd"`)
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("database is locked")
	err := ragerr.Errorf(ragerr.CodeStoreBackendFailure, "upserting records: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ragerr.CodeStoreBackendFailure, ragerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("connection refused")
	err := ragerr.Wrap(
		root,
		ragerr.CodeEmbedUpstreamFailure,
		"embedding query",
		ragerr.Field("model", "text-embedding-3-small"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, ragerr.CodeEmbedUpstreamFailure, ragerr.CodeOf(err))
	assert.True(t, ragerr.IsEmbedding(err))
	assert.Equal(t, "text-embedding-3-small", ragerr.FieldsOf(err)["model"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, ragerr.Wrap(nil, ragerr.CodeStoreBackendFailure, "ignored"))
	assert.NoError(t, ragerr.Wrapf(nil, ragerr.CodeStoreBackendFailure, "ignored %s", "arg"))
}

// ---------------------------------------------------------------------------
// Kind helpers
// ---------------------------------------------------------------------------

func TestKindHelpersAreDisjoint(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{"configuration/dimension", ragerr.New(ragerr.CodeStoreDimensionMismatch, "dims"), ragerr.IsConfiguration},
		{"configuration/missing-key", ragerr.New(ragerr.CodeEmbedMissingKey, "key"), ragerr.IsConfiguration},
		{"configuration/config-area", ragerr.New(ragerr.CodeConfigValidateInvalidValue, "cfg"), ragerr.IsConfiguration},
		{"validation/upsert", ragerr.New(ragerr.CodeStoreUpsertInvalid, "vec"), ragerr.IsValidation},
		{"validation/search", ragerr.New(ragerr.CodeStoreSearchInvalid, "top_k"), ragerr.IsValidation},
		{"closed/store", ragerr.New(ragerr.CodeStoreHandleClosed, "closed"), ragerr.IsClosed},
		{"closed/pipeline", ragerr.New(ragerr.CodePipelineHandleClosed, "closed"), ragerr.IsClosed},
		{"embedding/upstream", ragerr.New(ragerr.CodeEmbedUpstreamFailure, "api"), ragerr.IsEmbedding},
		{"embedding/response", ragerr.New(ragerr.CodeEmbedResponseInvalid, "shape"), ragerr.IsEmbedding},
		{"backend/failure", ragerr.New(ragerr.CodeStoreBackendFailure, "db"), ragerr.IsBackend},
		{"backend/unsupported", ragerr.New(ragerr.CodeStoreBackendUnsupported, "name"), ragerr.IsBackend},
	}

	kinds := map[string]func(error) bool{
		"configuration": ragerr.IsConfiguration,
		"validation":    ragerr.IsValidation,
		"closed":        ragerr.IsClosed,
		"embedding":     ragerr.IsEmbedding,
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want(tc.err))
			// No error may satisfy two of the mutually exclusive kinds.
			matched := 0
			for _, is := range kinds {
				if is(tc.err) {
					matched++
				}
			}
			assert.LessOrEqual(t, matched, 1)
		})
	}
}

func TestKindHelpersOnForeignError(t *testing.T) {
	err := stderrors.New("plain")
	assert.False(t, ragerr.IsConfiguration(err))
	assert.False(t, ragerr.IsValidation(err))
	assert.False(t, ragerr.IsClosed(err))
	assert.False(t, ragerr.IsEmbedding(err))
	assert.False(t, ragerr.IsBackend(err))
	assert.Equal(t, ragerr.Code(""), ragerr.CodeOf(err))
	assert.Equal(t, ragerr.Code(""), ragerr.CodeOf(nil))
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("store close failed")
	b := stderrors.New("cache close failed")

	err := ragerr.Join(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)

	assert.NoError(t, ragerr.Join(nil, nil))
}
