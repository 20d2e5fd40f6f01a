// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// permutedExpected applies a Meta's document permutation to a raw input
// list and returns it sorted ascending, matching Colors(id)'s output space.
func permutedExpected(perm []uint32, list []uint32) []uint32 {
	out := make([]uint32, len(list))
	for i, d := range list {
		out[i] = perm[d]
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TestMetaRoundTrip exercises §4.7's build end to end on the D=6, 3-list
// fixture from §8 scenario 6. Because our clustering runs over a live HLL
// sketch of the transposed doc/class incidence (rather than the paper's
// hand-picked vectors), the exact partition shape isn't asserted — only
// the round-trip and tiling invariants; globalization is checked by
// TestMetaGlobalization.
func TestMetaRoundTrip(t *testing.T) {
	lists := [][]uint32{{0, 1, 4}, {2, 5}, {0, 2, 3, 4}}
	src := buildDifferentialSource(t, 6, lists)

	b := DefaultMetaBuilder()
	b.Cluster.MinClusterSize = 1
	got, err := b.Build(context.Background(), src)
	require.NoError(t, err)

	require.True(t, got.NumPartitions() >= 1)
	require.EqualValues(t, 0, got.PartitionBegin(0))
	require.EqualValues(t, got.NumDocs(), got.PartitionBegin(got.NumPartitions()))

	perm := got.DocPermutation()
	for i, want := range lists {
		expect := permutedExpected(perm, want)
		gotList := Materialize(got.Colors(i))
		require.Equal(t, expect, gotList, "class %d", i)
	}
}

// TestMetaGlobalization checks §8 property 8: every meta entry's globalized
// id indexes a valid partial color in its partition, and the local id it
// decomposes to is within that partition's bounds.
func TestMetaGlobalization(t *testing.T) {
	lists := [][]uint32{{0, 1, 4}, {2, 5}, {0, 2, 3, 4}, {1, 3, 5}}
	src := buildDifferentialSource(t, 6, lists)

	b := DefaultMetaBuilder()
	b.Cluster.MinClusterSize = 1
	m, err := b.Build(context.Background(), src)
	require.NoError(t, err)

	for classID, entries := range m.entries {
		prevPartition := -1
		for _, e := range entries {
			require.True(t, int(e.PartitionID) >= prevPartition, "class %d partition ids must be ascending", classID)
			prevPartition = int(e.PartitionID)

			local := int(e.PartialColorID) - int(m.numPartialsBefore[e.PartitionID])
			require.True(t, local >= 0 && local < m.partitions[e.PartitionID].NumColorClasses())
		}
	}
}

func TestMetaColorsPanicsOutOfRange(t *testing.T) {
	src := buildDifferentialSource(t, 6, [][]uint32{{0, 1}, {2, 3}})
	b := DefaultMetaBuilder()
	b.Cluster.MinClusterSize = 1
	m, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	require.Panics(t, func() { m.Colors(-1) })
	require.Panics(t, func() { m.Colors(m.NumColorClasses()) })
}

func TestTransposeIsIncidenceView(t *testing.T) {
	src := buildDifferentialSource(t, 4, [][]uint32{{0, 2}, {1, 2, 3}})
	view := transpose(src)
	require.Equal(t, 4, view.NumColorClasses()) // one "class" per original doc
	require.Equal(t, 2, view.NumDocs())         // one "doc" per original class

	require.Equal(t, []uint32{0}, Materialize(view.Colors(0)))
	require.Equal(t, []uint32{1}, Materialize(view.Colors(1)))
	require.Equal(t, []uint32{0, 1}, Materialize(view.Colors(2)))
	require.Equal(t, []uint32{1}, Materialize(view.Colors(3)))
}
