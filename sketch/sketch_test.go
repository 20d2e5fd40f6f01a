// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package sketch

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fulgor-go/fulgor/store"
)

func buildSource(t *testing.T, lists [][]uint32, numDocs uint32) store.ColorSource {
	t.Helper()
	b := store.NewHybridBuilder(numDocs)
	for _, l := range lists {
		b.ProcessColors(l)
	}
	return b.Build()
}

func TestSketcherFiltersByDensity(t *testing.T) {
	lists := [][]uint32{
		{0},          // size 1 of 10 docs -> 0.1
		{0, 1, 2, 3}, // size 4 of 10 -> 0.4
		{0, 1, 2, 3, 4, 5, 6, 7, 8}, // size 9 -> 0.9
	}
	src := buildSource(t, lists, 10)
	sk := New(src, Config{P: 6, Threads: 2, Left: 0.2, Right: 0.8})
	set, err := sk.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, set.NumPoints())
	require.Equal(t, uint32(1), set.ClassIDs[0])
}

func TestIdenticalListsProduceIdenticalSketches(t *testing.T) {
	lists := [][]uint32{
		{0, 1, 2},
		{0, 1, 2},
		{5, 6, 7},
	}
	src := buildSource(t, lists, 8)
	sk := New(src, Config{P: 8, Threads: 4, Left: 0, Right: 1})
	set, err := sk.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, set.NumPoints())
	require.True(t, bytes.Equal(set.Sketches[0], set.Sketches[1]))
	require.False(t, bytes.Equal(set.Sketches[0], set.Sketches[2]))
}

func TestSpillFileRoundTrip(t *testing.T) {
	lists := [][]uint32{{0, 1}, {2, 3, 4}, {}}
	src := buildSource(t, lists, 6)
	sk := New(src, Config{P: 6, Threads: 2, Left: -1, Right: 2})
	set, err := sk.Run(context.Background())
	require.NoError(t, err)

	sf, err := NewSpillFile(t.TempDir(), set)
	require.NoError(t, err)
	defer sf.Close()

	got, err := sf.Load()
	require.NoError(t, err)
	require.Equal(t, set.NumBytesPerPoint, got.NumBytesPerPoint)
	require.Equal(t, set.NumDocs, got.NumDocs)
	require.Equal(t, set.ClassIDs, got.ClassIDs)
	require.Equal(t, set.Sketches, got.Sketches)
}
