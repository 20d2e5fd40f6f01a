// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeltaRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 3, 7, 8, 15, 16, 255, 256, 1 << 20, 1<<32 - 1}
	w := NewWriter(0)
	for _, v := range values {
		before := w.Len()
		WriteDelta(w, v)
		require.Equal(t, DeltaSize(v), w.Len()-before)
	}
	r := NewReader(w.Freeze(), 0)
	for _, want := range values {
		require.Equal(t, want, ReadDelta(r))
	}
}

func TestSortedListRoundTrip(t *testing.T) {
	cases := [][]uint32{
		{},
		{0},
		{0, 1, 2},
		{5, 6, 100, 101, 102, 9999},
	}
	for _, list := range cases {
		w := NewWriter(0)
		WriteSortedList(w, list)
		r := NewReader(w.Freeze(), 0)
		got := ReadSortedList(r, nil)
		if len(list) == 0 {
			require.Empty(t, got)
		} else {
			require.Equal(t, list, got)
		}
	}
}

func TestEmptyListIsDeltaZero(t *testing.T) {
	w := NewWriter(0)
	WriteSortedList(w, nil)
	require.Equal(t, DeltaSize(0), w.Len())
}
