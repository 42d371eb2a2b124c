// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package main

import (
	"fmt"
	"os"

	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

// userMessage prefixes err with its kind so callers can tell a bad flag from
// a failing backend without reading error codes.
func userMessage(err error) string {
	switch {
	case ragerr.IsConfiguration(err):
		return "configuration error: " + err.Error()
	case ragerr.IsValidation(err):
		return "invalid input: " + err.Error()
	case ragerr.IsClosed(err):
		return "handle closed: " + err.Error()
	case ragerr.IsEmbedding(err):
		return "embedding provider error: " + err.Error()
	case ragerr.IsBackend(err):
		return "vector store error: " + err.Error()
	default:
		return err.Error()
	}
}
