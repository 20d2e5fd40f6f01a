// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBalancedRangesCoversAllIndices(t *testing.T) {
	weights := []int{10, 1, 1, 1, 1, 1, 1, 1, 1, 10}
	ranges := BalancedRanges(weights, 3)

	total := 0
	for _, r := range ranges {
		require.True(t, r.Start < r.End)
		total += r.End - r.Start
	}
	require.Equal(t, len(weights), total)
	require.Equal(t, 0, ranges[0].Start)
	require.Equal(t, len(weights), ranges[len(ranges)-1].End)
}

func TestBalancedRangesNeverExceedsRequestedGroups(t *testing.T) {
	weights := []int{1, 1, 1, 1, 1}
	ranges := BalancedRanges(weights, 2)
	require.LessOrEqual(t, len(ranges), 2)
}

func TestBalancedRangesClampsGroupsToLength(t *testing.T) {
	weights := []int{1, 1}
	ranges := BalancedRanges(weights, 10)
	require.Len(t, ranges, 2)
}

func TestBalancedRangesEmptyWeights(t *testing.T) {
	require.Nil(t, BalancedRanges(nil, 4))
}
