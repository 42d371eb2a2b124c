// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ragerr "github.com/ragkit-dev/ragkit/pkg/errors"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the collection for text similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().IntP("top-k", "k", 3, "number of results to return")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		return ragerr.Errorf(ragerr.CodeCLIInputInvalid, "top-k must be greater than 0, got %d", topK)
	}

	p, err := buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	results, err := p.Query(cmd.Context(), args[0], topK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "No results.")
		return nil
	}

	for i, res := range results {
		text, _ := res.Payload["text"].(string)
		_, _ = fmt.Fprintf(out, "%d. [%.4f] %s\n", i+1, res.Score, text)
	}
	return nil
}
