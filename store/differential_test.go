// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fulgor-go/fulgor/cluster"
)

func buildDifferentialSource(t *testing.T, numDocs uint32, lists [][]uint32) *Hybrid {
	t.Helper()
	b := NewHybridBuilder(numDocs)
	for _, l := range lists {
		b.ProcessColors(l)
	}
	return b.Build()
}

// colorsOf looks up class originalIdx's reconstructed list via the
// builder's returned permutation, translating from pre-build insertion
// order into the store's cluster-grouped storage order.
func colorsOf(store *Differential, perm *cluster.Permutation, originalIdx int) []uint32 {
	storageID := perm.Perm[originalIdx]
	return Materialize(store.Colors(storageID))
}

func TestDifferentialScenario1IdenticalLists(t *testing.T) {
	src := buildDifferentialSource(t, 8, [][]uint32{{0, 1, 2}, {0, 1, 2}})
	b := DefaultDifferentialBuilder()
	got, perm, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, got.NumClusters())

	require.Equal(t, []uint32{0, 1, 2}, colorsOf(got, perm, 0))
	require.Equal(t, []uint32{0, 1, 2}, colorsOf(got, perm, 1))
}

func TestDifferentialScenario2MajorityReference(t *testing.T) {
	src := buildDifferentialSource(t, 8, [][]uint32{{0, 1, 2}, {0, 1, 3}, {0, 1, 4}})
	b := DefaultDifferentialBuilder()
	got, perm, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, got.NumClusters())

	require.Equal(t, []uint32{0, 1, 2}, colorsOf(got, perm, 0))
	require.Equal(t, []uint32{0, 1, 3}, colorsOf(got, perm, 1))
	require.Equal(t, []uint32{0, 1, 4}, colorsOf(got, perm, 2))
}

func TestDifferentialScenario3DisjointListsMinClusterSizeOne(t *testing.T) {
	src := buildDifferentialSource(t, 8, [][]uint32{{0, 1, 2, 3}, {4, 5, 6, 7}})
	b := DefaultDifferentialBuilder()
	b.Cluster.MinClusterSize = 1
	got, perm, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 2, got.NumClusters())
	require.NotEqual(t, got.ClusterOf(perm.Perm[0]), got.ClusterOf(perm.Perm[1]))

	require.Equal(t, []uint32{0, 1, 2, 3}, colorsOf(got, perm, 0))
	require.Equal(t, []uint32{4, 5, 6, 7}, colorsOf(got, perm, 1))
}

func TestDifferentialScenario4NoMajorityEmptyReference(t *testing.T) {
	src := buildDifferentialSource(t, 8, [][]uint32{{}, {0}, {7}})
	b := DefaultDifferentialBuilder()
	got, perm, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, got.NumClusters())

	require.Empty(t, colorsOf(got, perm, 0))
	require.Equal(t, []uint32{0}, colorsOf(got, perm, 1))
	require.Equal(t, []uint32{7}, colorsOf(got, perm, 2))
}

func TestDifferentialScenario5StrictMajorityTie(t *testing.T) {
	src := buildDifferentialSource(t, 8, [][]uint32{{0, 2, 4, 6}, {0, 2, 5, 6}, {1, 2, 4, 6}})
	b := DefaultDifferentialBuilder()
	got, perm, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, got.NumClusters())

	require.Equal(t, []uint32{0, 2, 4, 6}, colorsOf(got, perm, 0))
	require.Equal(t, []uint32{0, 2, 5, 6}, colorsOf(got, perm, 1))
	require.Equal(t, []uint32{1, 2, 4, 6}, colorsOf(got, perm, 2))
}

// TestRoundTripMonotonicityAndClusterBijection exercises §8 properties 1, 3
// and 4
// over a larger synthetic input with two well-separated clusters.
func TestRoundTripMonotonicityAndClusterBijection(t *testing.T) {
	lists := make([][]uint32, 0, 40)
	want := make([][]uint32, 0, 40)
	for i := 0; i < 20; i++ {
		l := []uint32{0, 1, uint32(2 + i%5)}
		lists = append(lists, l)
		want = append(want, l)
	}
	for i := 0; i < 20; i++ {
		l := []uint32{10, 11, uint32(12 + i%5)}
		lists = append(lists, l)
		want = append(want, l)
	}
	src := buildDifferentialSource(t, 16, lists)
	b := DefaultDifferentialBuilder()
	b.Cluster.MinClusterSize = 5
	got, perm, err := b.Build(context.Background(), src)
	require.NoError(t, err)

	for i, expect := range want {
		list := colorsOf(got, perm, i)
		require.Equal(t, expect, list, "class %d", i)
		for idx, v := range list {
			require.Less(t, v, uint32(got.NumDocs()))
			if idx > 0 {
				require.Greater(t, v, list[idx-1])
			}
		}
	}

	for id := 0; id < got.NumColorClasses(); id++ {
		c := got.ClusterOf(id)
		require.True(t, c >= 0 && c < got.NumClusters())
	}
}

// TestDeterministicBuild verifies §8 property 7 at the in-memory level:
// two builds over identical input with identical parameters produce
// identical offset tables and bit-vector contents.
func TestDeterministicBuild(t *testing.T) {
	lists := [][]uint32{{0, 1, 2}, {0, 1, 3}, {4, 5}, {4, 6}, {0, 1, 2, 3}}
	src1 := buildDifferentialSource(t, 8, lists)
	src2 := buildDifferentialSource(t, 8, lists)

	b := DefaultDifferentialBuilder()
	got1, perm1, err := b.Build(context.Background(), src1)
	require.NoError(t, err)
	got2, perm2, err := b.Build(context.Background(), src2)
	require.NoError(t, err)

	require.Equal(t, perm1.Perm, perm2.Perm)
	require.Equal(t, perm1.Order, perm2.Order)
	require.Equal(t, got1.referenceOffsets, got2.referenceOffsets)
	require.Equal(t, got1.listOffsets, got2.listOffsets)
	require.Equal(t, got1.vector.Len(), got2.vector.Len())
	for i := 0; i < got1.vector.Len(); i++ {
		require.Equal(t, got1.vector.Get(i), got2.vector.Get(i), "bit %d", i)
	}
}

func TestDifferentialColorsPanicsOutOfRange(t *testing.T) {
	src := buildDifferentialSource(t, 8, [][]uint32{{0, 1}, {2, 3}})
	b := DefaultDifferentialBuilder()
	b.Cluster.MinClusterSize = 1
	got, _, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	require.Panics(t, func() { got.Colors(-1) })
	require.Panics(t, func() { got.Colors(got.NumColorClasses()) })
}
