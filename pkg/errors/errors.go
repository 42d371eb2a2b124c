// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. Codes follow the
// `area.operation.reason` convention; the trailing reason segment determines
// the error kind (configuration, validation, closed-state, embedding,
// backend) exposed through the Is* helpers below.
type Code string

const (
	CodeStoreDimensionMismatch  Code = "store.open.dimension_mismatch"
	CodeStoreUpsertInvalid      Code = "store.upsert.invalid_input"
	CodeStoreSearchInvalid      Code = "store.search.invalid_input"
	CodeStoreHandleClosed       Code = "store.handle.closed"
	CodeStoreBackendFailure     Code = "store.backend.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodePipelineHandleClosed      Code = "pipeline.handle.closed"
	CodePipelineDimensionMismatch Code = "pipeline.build.dimension_mismatch"
	CodePipelineInputInvalid      Code = "pipeline.query.invalid_input"

	CodeEmbedMissingKey      Code = "embed.config.missing_key"
	CodeEmbedUpstreamFailure Code = "embed.request.upstream_failure"
	CodeEmbedResponseInvalid Code = "embed.response.invalid_format"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLISetupFailure   Code = "cli.setup.failure"
	CodeCLIInputInvalid   Code = "cli.input.invalid"
	CodeIngestReadFailure Code = "ingest.read.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldCollection(value string) Attr {
	return Field("collection", value)
}

func FieldBackend(value string) Attr {
	return Field("backend", value)
}

func FieldRecordID(value string) Attr {
	return Field("record_id", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsConfiguration reports whether err is a configuration error: a
// dimensionality mismatch, a missing required setting, or an invalid
// configuration value.
func IsConfiguration(err error) bool {
	code := CodeOf(err)
	if area(code) == "config" {
		return code != ""
	}
	r := reason(code)
	return r == "dimension_mismatch" || r == "missing_key"
}

// IsValidation reports whether err was caused by malformed caller input
// (bad records, wrong vector length, non-positive top_k).
func IsValidation(err error) bool {
	code := CodeOf(err)
	// Config and embed areas carry their own kinds even when the reason
	// segment looks like an input problem.
	if area(code) == "config" || area(code) == "embed" {
		return false
	}
	r := reason(code)
	return r == "invalid" || r == "invalid_input" || r == "invalid_format"
}

// IsClosed reports whether err was caused by an operation on a closed handle.
func IsClosed(err error) bool {
	return reason(CodeOf(err)) == "closed"
}

// IsEmbedding reports whether err came from the external embedding provider.
func IsEmbedding(err error) bool {
	code := CodeOf(err)
	return area(code) == "embed" && reason(code) != "missing_key"
}

// IsBackend reports whether err is a wrapped failure of the underlying
// vector-database client.
func IsBackend(err error) bool {
	return strings.Contains(string(CodeOf(err)), "backend")
}

func Join(errs ...error) error {
	err := stderrors.Join(errs...)
	if err == nil {
		return nil
	}
	return oops.Code(CodeStoreBackendFailure).Wrap(err)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}

func area(code Code) string {
	raw := string(code)
	idx := strings.Index(raw, ".")
	if idx <= 0 {
		return raw
	}
	return raw[:idx]
}
