// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulgor-go/fulgor/index"
	"github.com/fulgor-go/fulgor/store"
)

var (
	buildInput        string
	buildOutput       string
	buildLeft         float64
	buildRight        float64
	buildThreads      int
	buildMinCluster   int
	buildMeta         bool
	buildVerifyRounds bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a differential color-class index from a plain-text color list",
	RunE:  runBuild,
}

func init() {
	flags := buildCmd.Flags()
	flags.StringVarP(&buildInput, "input", "i", "", "input color list filename (required)")
	flags.StringVarP(&buildOutput, "output", "o", "", "output index filename (required)")
	flags.Float64VarP(&buildLeft, "left", "l", -1, "density filter lower bound, exclusive")
	flags.Float64VarP(&buildRight, "right", "r", 1, "density filter upper bound, inclusive")
	flags.IntVarP(&buildThreads, "threads", "t", 0, "sketch worker count (default GOMAXPROCS)")
	flags.IntVar(&buildMinCluster, "min-cluster-size", 0, "minimum accepted k-means split size (default canonical)")
	flags.BoolVar(&buildMeta, "meta", false, "build a two-level meta-differential index instead of a flat one")
	flags.BoolVar(&buildVerifyRounds, "test", false, "after building, verify every class round-trips exactly")
	buildCmd.MarkFlagRequired("input")
	buildCmd.MarkFlagRequired("output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	src, err := readColorSource(buildInput)
	if err != nil {
		return err
	}

	kind := index.KindFull
	if buildMeta {
		kind = index.KindMeta
	}
	cfg := index.DefaultConfig(kind)
	cfg.Differential.Sketch.Left = buildLeft
	cfg.Differential.Sketch.Right = buildRight
	cfg.Differential.Sketch.Threads = buildThreads
	cfg.MetaDifferential.Meta.Sketch.Left = buildLeft
	cfg.MetaDifferential.Meta.Sketch.Right = buildRight
	cfg.MetaDifferential.Meta.Sketch.Threads = buildThreads
	cfg.MetaDifferential.Differential.Sketch.Left = buildLeft
	cfg.MetaDifferential.Differential.Sketch.Right = buildRight
	cfg.MetaDifferential.Differential.Sketch.Threads = buildThreads
	if buildMinCluster > 0 {
		cfg.Differential.Cluster.MinClusterSize = buildMinCluster
		cfg.MetaDifferential.Meta.Cluster.MinClusterSize = buildMinCluster
		cfg.MetaDifferential.Differential.Cluster.MinClusterSize = buildMinCluster
	}

	idx, err := index.Build(context.Background(), src, index.Collaborators{}, cfg)
	if err != nil {
		return err
	}

	if buildVerifyRounds {
		if idx.Kind != index.KindFull {
			fmt.Println("--test only verifies full (non-meta) indexes, since meta indexes reconstruct doc ids in permuted space; skipping")
		} else if err := verifyRoundTrip(src, idx); err != nil {
			return err
		} else {
			fmt.Printf("verified %d color classes round-trip exactly\n", idx.NumColorClasses())
		}
	}

	if idx.Kind != index.KindFull {
		fmt.Printf("built meta index with %d color classes over %d docs; serialization for --meta is not yet supported, skipping write of %s\n",
			idx.NumColorClasses(), idx.NumDocs(), buildOutput)
		return nil
	}
	if err := index.WriteFile(idx, buildOutput); err != nil {
		return err
	}
	fmt.Printf("wrote %s: %d color classes, %d docs\n", buildOutput, idx.NumColorClasses(), idx.NumDocs())
	return nil
}

// verifyRoundTrip compares every class's reconstructed list against src,
// mirroring the --test path of the original clustering tool.
func verifyRoundTrip(src *store.Hybrid, idx interface {
	NumColorClasses() int
	Colors(id int) store.ListIterator
}) error {
	n := src.NumColorClasses()
	if n != idx.NumColorClasses() {
		return fmt.Errorf("fulgor: verify: class count mismatch: source has %d, index has %d", n, idx.NumColorClasses())
	}
	for i := 0; i < n; i++ {
		want := store.Materialize(src.Colors(i))
		got := store.Materialize(idx.Colors(i))
		if len(want) != len(got) {
			return fmt.Errorf("fulgor: verify: class %d size mismatch: want %d, got %d", i, len(want), len(got))
		}
		for j := range want {
			if want[j] != got[j] {
				return fmt.Errorf("fulgor: verify: class %d differs at position %d: want %d, got %d", i, j, want[j], got[j])
			}
		}
	}
	return nil
}
