// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Chunk, embed, and store a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	count, err := p.IngestFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	info, err := p.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Ingested %d chunks from %s\n", count, args[0])
	_, _ = fmt.Fprintf(out, "Collection %q now holds %d records\n", info.Name, info.Records)
	return nil
}
