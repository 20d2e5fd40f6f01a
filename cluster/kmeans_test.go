// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisjointListsSplitWithSmallMinSize(t *testing.T) {
	points := [][]byte{
		{255, 0, 0, 0},
		{255, 0, 0, 0},
		{0, 0, 0, 255},
		{0, 0, 0, 255},
	}
	cfg := DefaultConfig()
	cfg.MinClusterSize = 1
	km := New(points, cfg)
	got, err := km.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, got.NumClusters)
	require.Equal(t, got.Clusters[0], got.Clusters[1])
	require.Equal(t, got.Clusters[2], got.Clusters[3])
	require.NotEqual(t, got.Clusters[0], got.Clusters[2])
}

func TestSmallInputStaysOneClusterUnderDefaultMinSize(t *testing.T) {
	points := [][]byte{
		{1, 2, 3},
		{1, 2, 4},
		{9, 9, 9},
	}
	km := New(points, DefaultConfig()) // MinClusterSize defaults to 50
	got, err := km.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, got.NumClusters)
	for _, c := range got.Clusters {
		require.Equal(t, 0, c)
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	points := make([][]byte, 0, 120)
	for i := 0; i < 60; i++ {
		points = append(points, []byte{byte(i % 17), 0, 0})
	}
	for i := 0; i < 60; i++ {
		points = append(points, []byte{0, 0, byte(200 + i%17)})
	}
	cfg := DefaultConfig()
	cfg.MinClusterSize = 10

	km1 := New(points, cfg)
	a1, err := km1.Run(context.Background())
	require.NoError(t, err)

	km2 := New(points, cfg)
	a2, err := km2.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, a1.NumClusters, a2.NumClusters)
	require.Equal(t, a1.Clusters, a2.Clusters)
}

func TestPermutationGroupsByCluster(t *testing.T) {
	assignment := &Assignment{Clusters: []int{1, 0, 1, 0, 0}, NumClusters: 2}
	perm := BuildPermutation(assignment)

	require.Equal(t, []int{0, 3, 5}, perm.Boundaries)
	for i, cl := range assignment.Clusters {
		slot := perm.Perm[i]
		require.True(t, slot >= perm.Boundaries[cl] && slot < perm.Boundaries[cl+1])
		require.Equal(t, i, perm.Order[slot])
	}
}

func TestMajorityVoteStrategy(t *testing.T) {
	members := [][]uint32{
		{0, 2, 4, 6},
		{0, 2, 5, 6},
		{1, 2, 4, 6},
	}
	ref := MajorityVoteStrategy{}.Synthesize(members)
	require.Equal(t, []uint32{2, 6}, ref)
}

func TestMajorityVoteNoMajority(t *testing.T) {
	members := [][]uint32{{}, {0}, {7}}
	ref := MajorityVoteStrategy{}.Synthesize(members)
	require.Empty(t, ref)
}
