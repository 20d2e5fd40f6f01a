// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package bits

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankVectorAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	w := NewWriter(0)
	n := 2000
	bitsSet := make([]int, n)
	for i := 0; i < n; i++ {
		b := uint64(0)
		if rng.Intn(3) == 0 {
			b = 1
		}
		bitsSet[i] = int(b)
		w.WriteBit(b)
	}
	rv := NewRankVector(w.Freeze())

	want := 0
	for i := 0; i <= n; i++ {
		require.Equal(t, want, rv.Rank1(i), "rank1(%d)", i)
		if i < n {
			want += bitsSet[i]
		}
	}
}

func TestWriteBitsPreservesValue(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0b1011, 4)
	r := NewReader(w.Freeze(), 0)
	require.Equal(t, uint64(0b1011), r.ReadBits(4))
}
