// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

// Package cluster implements the divisive k-means clusterer (§4.4), the
// counting-sort permutation that groups points by cluster (§4.5 steps 1-3),
// and the majority-vote reference synthesizer (§4.5 step 4).
//
// Clustering is single-threaded by design (§5): the source data (sketches)
// is small relative to the color lists it was derived from, and determinism
// depends on a single seeded RNG consumed in a fixed order.
package cluster

import (
	"context"
	"math/rand"
)

// Config holds the divisive k-means parameters of §4.4. DefaultConfig
// matches the values fulgor's cluster_builder hard-codes.
type Config struct {
	MinDelta       float64
	MaxIter        int
	MinClusterSize int
	Seed           int64
}

// DefaultConfig returns the canonical parameters from §4.4.
func DefaultConfig() Config {
	return Config{
		MinDelta:       1e-4,
		MaxIter:        10,
		MinClusterSize: 50,
		Seed:           42,
	}
}

// Assignment is the output of a KMeans run: one cluster id per input point,
// plus the total number of clusters produced.
type Assignment struct {
	Clusters    []int // Clusters[i] is the cluster id of points[i]
	NumClusters int
}

// KMeans runs the divisive clustering of §4.4 over a set of fixed-length
// byte vectors (HLL sketch registers).
type KMeans struct {
	points [][]byte
	cfg    Config
}

// New builds a KMeans clusterer over points, each of the same length.
func New(points [][]byte, cfg Config) *KMeans {
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 10
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = 1
	}
	return &KMeans{points: points, cfg: cfg}
}

type clusterNode struct {
	id      int
	members []int // indices into points
}

// Run performs the divisive split loop of §4.4:
//
//	start with one cluster containing all points; repeatedly pick the
//	largest remaining splittable cluster (lower id wins ties), run 2-means
//	on it until convergence or MaxIter, and accept the split iff both
//	children reach MinClusterSize; otherwise the cluster is final.
func (k *KMeans) Run(ctx context.Context) (*Assignment, error) {
	n := len(k.points)
	assignment := &Assignment{Clusters: make([]int, n)}
	if n == 0 {
		return assignment, nil
	}

	rng := rand.New(rand.NewSource(k.cfg.Seed))

	root := &clusterNode{id: 0, members: allIndices(n)}
	pending := []*clusterNode{root}
	var finished []*clusterNode
	nextID := 1

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		idx := pickLargest(pending)
		node := pending[idx]
		pending = append(pending[:idx], pending[idx+1:]...)

		left, right := k.twoMeans(node.members, rng)
		if len(left) >= k.cfg.MinClusterSize && len(right) >= k.cfg.MinClusterSize {
			pending = append(pending,
				&clusterNode{id: nextID, members: left},
				&clusterNode{id: nextID + 1, members: right},
			)
			nextID += 2
			continue
		}
		finished = append(finished, node)
	}

	for finalID, node := range finished {
		for _, pointIdx := range node.members {
			assignment.Clusters[pointIdx] = finalID
		}
	}
	assignment.NumClusters = len(finished)
	return assignment, nil
}

// pickLargest returns the index within pending of the cluster with the most
// members, breaking ties by lower node id (§4.4's fixed split-ordering
// discipline).
func pickLargest(pending []*clusterNode) int {
	best := 0
	for i := 1; i < len(pending); i++ {
		if len(pending[i].members) > len(pending[best].members) {
			best = i
			continue
		}
		if len(pending[i].members) == len(pending[best].members) && pending[i].id < pending[best].id {
			best = i
		}
	}
	return best
}

// twoMeans runs 2-means on the subset of points named by members, returning
// the two resulting member-index groups. Distance is Euclidean over the
// byte register vectors (§4.4).
func (k *KMeans) twoMeans(members []int, rng *rand.Rand) (left, right []int) {
	m := len(members)
	if m < 2 {
		return members, nil
	}

	dim := len(k.points[members[0]])
	perm := rng.Perm(m)
	centroids := [2][]float64{
		bytesToFloat(k.points[members[perm[0]]]),
		bytesToFloat(k.points[members[perm[1]]]),
	}

	assign := make([]int, m)
	for iter := 0; iter < k.cfg.MaxIter; iter++ {
		for i, pointIdx := range members {
			d0 := floatDistance(k.points[pointIdx], centroids[0])
			d1 := floatDistance(k.points[pointIdx], centroids[1])
			a := 0
			if d1 < d0 {
				a = 1
			}
			assign[i] = a
		}

		newCentroids := recomputeCentroids(k.points, members, assign, dim, centroids)
		shift := vecDistance(centroids[0], newCentroids[0]) + vecDistance(centroids[1], newCentroids[1])
		centroids = newCentroids
		if shift < k.cfg.MinDelta {
			break
		}
	}

	for i, pointIdx := range members {
		if assign[i] == 0 {
			left = append(left, pointIdx)
		} else {
			right = append(right, pointIdx)
		}
	}
	return left, right
}

func recomputeCentroids(points [][]byte, members []int, assign []int, dim int, prev [2][]float64) [2][]float64 {
	var sums [2][]float64
	var counts [2]int
	sums[0] = make([]float64, dim)
	sums[1] = make([]float64, dim)

	for i, pointIdx := range members {
		a := assign[i]
		counts[a]++
		for d, b := range points[pointIdx] {
			sums[a][d] += float64(b)
		}
	}

	var out [2][]float64
	for a := 0; a < 2; a++ {
		if counts[a] == 0 {
			out[a] = prev[a] // empty cluster: keep previous centroid, avoid NaN
			continue
		}
		out[a] = make([]float64, dim)
		inv := 1.0 / float64(counts[a])
		for d := range out[a] {
			out[a][d] = sums[a][d] * inv
		}
	}
	return out
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
