// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package cluster

// Permutation groups points by cluster id via a stable counting sort —
// §4.5 steps 1-3. This is the same histogram-then-prefix-sum discipline the
// teacher's contrib/algo.PrefixSum and contrib/sort radix pass use for
// numeric bucketing, specialized here to NumClusters buckets instead of 256.
type Permutation struct {
	// Boundaries has length NumClusters+1; Boundaries[c] is the first
	// permuted slot belonging to cluster c, Boundaries[c+1] its end
	// (exclusive), and Boundaries[NumClusters] == n.
	Boundaries []int
	// Perm[i] is the permuted-order slot that original index i lands in.
	Perm []int
	// Order[slot] is the original index occupying that permuted-order slot;
	// the inverse of Perm.
	Order []int
}

// BuildPermutation computes the permutation described by an Assignment.
func BuildPermutation(a *Assignment) *Permutation {
	n := len(a.Clusters)
	c := a.NumClusters

	boundaries := make([]int, c+1)
	for _, cl := range a.Clusters {
		boundaries[cl]++
	}
	// Exclusive prefix sum: boundaries[c] becomes cluster c's start offset.
	total := 0
	for i, count := range boundaries {
		boundaries[i] = total
		total += count
	}

	cursor := append([]int(nil), boundaries...)
	perm := make([]int, n)
	order := make([]int, n)
	for i, cl := range a.Clusters {
		slot := cursor[cl]
		perm[i] = slot
		order[slot] = i
		cursor[cl]++
	}

	return &Permutation{Boundaries: boundaries, Perm: perm, Order: order}
}

// ClusterOf returns the cluster id owning permuted slot within [0, n). It is
// a linear scan over cluster boundaries — the Differential store itself
// uses rank1 on a bit vector instead (§9), which is why this helper lives
// here rather than being exposed as the runtime lookup path.
func (p *Permutation) ClusterOf(slot int) int {
	for c := 0; c+1 < len(p.Boundaries); c++ {
		if slot < p.Boundaries[c+1] {
			return c
		}
	}
	return len(p.Boundaries) - 2
}
