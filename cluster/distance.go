// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package cluster

import "math"

func bytesToFloat(b []byte) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		out[i] = float64(v)
	}
	return out
}

func floatDistance(point []byte, centroid []float64) float64 {
	var sumSq float64
	for i, c := range centroid {
		d := float64(point[i]) - c
		sumSq += d * d
	}
	return math.Sqrt(sumSq)
}

func vecDistance(a, b []float64) float64 {
	var sumSq float64
	for i := range a {
		d := a[i] - b[i]
		sumSq += d * d
	}
	return math.Sqrt(sumSq)
}
