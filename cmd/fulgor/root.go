// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "fulgor",
	Short: "Build and inspect differential color-class compression indexes",
	Long: `fulgor builds a compressed color-class index from a plain-text list
of color classes, and provides a standalone clustering tool for
experimenting with the sketch and k-means stages in isolation.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(clusterCmd)
}
