// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHybridRoundTrip(t *testing.T) {
	lists := [][]uint32{
		{0, 1, 2},
		{},
		{7},
		{0, 2, 4, 6},
	}
	b := NewHybridBuilder(8)
	for _, l := range lists {
		b.ProcessColors(l)
	}
	h := b.Build()

	require.Equal(t, len(lists), h.NumColorClasses())
	require.Equal(t, 8, h.NumDocs())

	for i, want := range lists {
		it := h.Colors(i)
		require.Equal(t, len(want), it.Size())
		got := Materialize(it)
		if len(want) == 0 {
			require.Empty(t, got)
		} else {
			require.Equal(t, want, got)
		}
		// Restartable: rewinding yields the same sequence again.
		it.Rewind()
		got2 := Materialize(it)
		require.Equal(t, got, got2)
	}
}

func TestHybridOutOfRangePanics(t *testing.T) {
	b := NewHybridBuilder(4)
	b.ProcessColors([]uint32{0})
	h := b.Build()
	require.Panics(t, func() { h.Colors(5) })
}

func TestHybridSerializationRoundTrip(t *testing.T) {
	lists := [][]uint32{{0, 1, 2}, {}, {7}, {1, 2, 3, 4}}
	b := NewHybridBuilder(8)
	for _, l := range lists {
		b.ProcessColors(l)
	}
	h := b.Build()

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf))

	got, err := ReadHybrid(&buf)
	require.NoError(t, err)
	require.Equal(t, h.NumDocs(), got.NumDocs())
	require.Equal(t, h.NumColorClasses(), got.NumColorClasses())
	for i, want := range lists {
		require.Equal(t, want, Materialize(got.Colors(i)))
	}
}
