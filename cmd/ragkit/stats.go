// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	p, err := buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	info, err := p.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Collection:  %s\n", info.Name)
	_, _ = fmt.Fprintf(out, "Backend:     %s\n", viper.GetString("storage.backend"))
	_, _ = fmt.Fprintf(out, "Records:     %d\n", info.Records)
	_, _ = fmt.Fprintf(out, "Dimensions:  %d\n", info.Dimensions)
	return nil
}
