// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulgor-go/fulgor/cluster"
	"github.com/fulgor-go/fulgor/sketch"
	"github.com/fulgor-go/fulgor/store"
)

var (
	clusterInput   string
	clusterOutput  string
	clusterLeft    float64
	clusterRight   float64
	clusterThreads int
	clusterTest    bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Sketch and cluster a color list without building a full differential index",
	Long: `cluster runs the sketch and divisive k-means stages standalone, the
same two-stage pipeline the full build uses, and reports cluster
membership without encoding edits. With --test it uses the predefined
density bands (0-25%, 25-75%, 75-100%) instead of -l/-r, and also prints
the size of a front-list reference for each cluster.`,
	RunE: runCluster,
}

func init() {
	flags := clusterCmd.Flags()
	flags.StringVarP(&clusterInput, "input", "i", "", "input color list filename (required)")
	flags.StringVarP(&clusterOutput, "output", "o", "", "output filename where to write cluster assignments (required)")
	flags.Float64VarP(&clusterLeft, "left", "l", 0, "minimum density of the lists to be clustered [0,1]")
	flags.Float64VarP(&clusterRight, "right", "r", 1, "maximum density of the lists to be clustered [0,1]")
	flags.IntVarP(&clusterThreads, "threads", "t", 1, "number of sketch worker threads")
	flags.BoolVar(&clusterTest, "test", false, "cluster with predefined density bands (0-25-75-100) instead of -l/-r")
	clusterCmd.MarkFlagRequired("input")
	clusterCmd.MarkFlagRequired("output")
}

type densityBand struct{ left, right float64 }

func runCluster(cmd *cobra.Command, args []string) error {
	src, err := readColorSource(clusterInput)
	if err != nil {
		return err
	}

	bands := []densityBand{{clusterLeft, clusterRight}}
	if clusterTest {
		bands = []densityBand{{0, 0.25}, {0.25, 0.75}, {0.75, 1}}
	}

	out, err := os.Create(clusterOutput)
	if err != nil {
		return fmt.Errorf("fulgor: create %s: %w", clusterOutput, err)
	}
	defer out.Close()

	ctx := context.Background()
	globalClusterOffset := 0
	for bandIdx, band := range bands {
		sk := sketch.New(src, sketch.Config{P: 10, Left: band.left, Right: band.right, Threads: clusterThreads})
		set, err := sk.Run(ctx)
		if err != nil {
			return fmt.Errorf("fulgor: sketch band %d: %w", bandIdx, err)
		}
		if set.NumPoints() == 0 {
			continue
		}

		points := make([][]byte, set.NumPoints())
		copy(points, set.Sketches)
		km := cluster.New(points, cluster.DefaultConfig())
		assignment, err := km.Run(ctx)
		if err != nil {
			return fmt.Errorf("fulgor: k-means band %d: %w", bandIdx, err)
		}
		perm := cluster.BuildPermutation(assignment)

		if clusterTest {
			reportTestFixture(src, set, assignment, perm, bandIdx)
		}

		for i, classID := range set.ClassIDs {
			clusterID := globalClusterOffset + assignment.Clusters[i]
			fmt.Fprintf(out, "%d %d %d\n", classID, clusterID, bandIdx)
		}
		globalClusterOffset += assignment.NumClusters
	}

	fmt.Printf("wrote cluster assignments for %d bands to %s\n", len(bands), clusterOutput)
	return nil
}

// reportTestFixture exercises the legacy front-list reference heuristic
// against each cluster's members purely for diagnostic output, the way
// the predefined-bands --test path is meant to sanity-check clustering
// without running the full differential encode.
func reportTestFixture(src *store.Hybrid, set *sketch.Set, assignment *cluster.Assignment, perm *cluster.Permutation, bandIdx int) {
	var strategy cluster.FrontListStrategy
	for c := 0; c+1 < len(perm.Boundaries); c++ {
		begin, end := perm.Boundaries[c], perm.Boundaries[c+1]
		if begin == end {
			continue
		}
		members := make([][]uint32, 0, end-begin)
		for slot := begin; slot < end; slot++ {
			classID := set.ClassIDs[perm.Order[slot]]
			members = append(members, store.Materialize(src.Colors(int(classID))))
		}
		ref := strategy.Synthesize(members)
		fmt.Printf("band %d cluster %d: %d members, front-list reference size %d\n", bandIdx, c, len(members), len(ref))
	}
}
