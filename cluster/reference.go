// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package cluster

import "sort"

// ReferenceStrategy picks a cluster's synthetic reference list from its
// members' color lists. MajorityVoteStrategy is the canonical choice
// (§4.5 step 4, §9); FrontListStrategy is the legacy greedy heuristic from
// original_source/include/cluster_builder.hpp, kept for the CLI's --test
// fixtures (SPEC_FULL §8) and never the default.
type ReferenceStrategy interface {
	Synthesize(members [][]uint32) []uint32
}

// MajorityVoteStrategy selects every doc id present in strictly more than
// ceil(size/2) of the cluster's member lists. A doc with exactly
// ceil(size/2) votes is excluded (spec.md §9: the strict ">" variant is
// canonical, not "≥").
type MajorityVoteStrategy struct{}

// Synthesize implements ReferenceStrategy.
func (MajorityVoteStrategy) Synthesize(members [][]uint32) []uint32 {
	size := len(members)
	if size == 0 {
		return nil
	}
	threshold := (size + 1) / 2 // ceil(size/2)

	votes := make(map[uint32]int)
	for _, list := range members {
		for _, doc := range list {
			votes[doc]++
		}
	}

	ref := make([]uint32, 0, len(votes))
	for doc, count := range votes {
		if count > threshold {
			ref = append(ref, doc)
		}
	}
	sort.Slice(ref, func(i, j int) bool { return ref[i] < ref[j] })
	return ref
}

// FrontListStrategy picks the first member list encountered as the
// reference verbatim, the greedy heuristic original_source used before
// falling back to majority vote on small fixtures. Not used by default.
type FrontListStrategy struct{}

// Synthesize implements ReferenceStrategy.
func (FrontListStrategy) Synthesize(members [][]uint32) []uint32 {
	if len(members) == 0 {
		return nil
	}
	out := make([]uint32, len(members[0]))
	copy(out, members[0])
	return out
}

// SynthesizeReferences walks the permuted order cluster by cluster
// (§4.5 step 4), building one reference per cluster with strategy. get
// fetches the materialized sorted doc list for an original (pre-permutation)
// point index.
func SynthesizeReferences(perm *Permutation, get func(originalIdx int) []uint32, strategy ReferenceStrategy) [][]uint32 {
	numClusters := len(perm.Boundaries) - 1
	refs := make([][]uint32, numClusters)
	for c := 0; c < numClusters; c++ {
		start, end := perm.Boundaries[c], perm.Boundaries[c+1]
		members := make([][]uint32, 0, end-start)
		for slot := start; slot < end; slot++ {
			members = append(members, get(perm.Order[slot]))
		}
		refs[c] = strategy.Synthesize(members)
	}
	return refs
}
