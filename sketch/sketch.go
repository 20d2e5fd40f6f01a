// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package sketch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fulgor-go/fulgor/internal/workerpool"
	"github.com/fulgor-go/fulgor/store"
)

// Set is the in-memory result of a sketch run: one HLL per filtered class,
// in filtered order, alongside the original class ids those sketches came
// from. It is exactly the payload of the spill file (§6).
type Set struct {
	NumBytesPerPoint int
	NumDocs          int
	ClassIDs         []uint32
	Sketches         [][]byte // len(Sketches) == len(ClassIDs), each len == NumBytesPerPoint
}

// NumPoints reports the number of sketches in the set.
func (s *Set) NumPoints() int { return len(s.ClassIDs) }

// Config parameterizes a sketch run.
type Config struct {
	P       uint    // sketch precision: 2^P byte registers per point
	Threads int     // worker count; <=0 means GOMAXPROCS
	Left    float64 // density filter lower bound, exclusive
	Right   float64 // density filter upper bound, inclusive
}

// Sketcher computes one HLL sketch per (density-filtered) color class of a
// ColorSource, using a fork-join goroutine group to parallelize by
// load-balanced slices of total list-size workload (§4.3).
type Sketcher struct {
	src store.ColorSource
	cfg Config
}

// New builds a Sketcher over src.
func New(src store.ColorSource, cfg Config) *Sketcher {
	if cfg.P < 4 {
		cfg.P = 4
	}
	if cfg.P > 16 {
		cfg.P = 16
	}
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.GOMAXPROCS(0)
	}
	return &Sketcher{src: src, cfg: cfg}
}

// Run computes the sketch Set. Steps follow §4.3 verbatim:
//  1. select filtered classes,
//  2. split into at most threads-many contiguous, workload-balanced slices,
//  3/4. each worker computes sketches for its own slice directly in place
//     (the "owned slice, merge by concatenation" variant of §4.3/§9 — no
//     cross-worker merge step is needed since slices never overlap each
//     other within the shared output array),
//  5. the caller serializes via WriteSpill.
func (s *Sketcher) Run(ctx context.Context) (*Set, error) {
	n := s.src.NumColorClasses()
	d := s.src.NumDocs()

	type filtered struct {
		classID uint32
		size    int
	}
	var picked []filtered
	for id := 0; id < n; id++ {
		it := s.src.Colors(id)
		size := it.Size()
		if isDense(size, d, s.cfg.Left, s.cfg.Right) {
			picked = append(picked, filtered{classID: uint32(id), size: size})
		}
	}

	set := &Set{
		NumBytesPerPoint: 1 << s.cfg.P,
		NumDocs:          d,
		ClassIDs:         make([]uint32, len(picked)),
		Sketches:         make([][]byte, len(picked)),
	}
	if len(picked) == 0 {
		return set, nil
	}
	weights := make([]int, len(picked))
	for i, f := range picked {
		set.ClassIDs[i] = f.classID
		weights[i] = f.size
		if weights[i] == 0 {
			weights[i] = 1 // a zero-weight slice would starve BalancedRanges
		}
	}

	ranges := workerpool.BalancedRanges(weights, s.cfg.Threads)

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		r := r
		g.Go(func() error {
			for i := r.Start; i < r.End; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				h := NewHLL(s.cfg.P)
				it := s.src.Colors(int(set.ClassIDs[i]))
				for it.Next() {
					h.Add(it.Value())
				}
				set.Sketches[i] = h.Registers()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sketch: %w", err)
	}
	return set, nil
}

func isDense(size, numDocs int, left, right float64) bool {
	if numDocs == 0 {
		return false
	}
	frac := float64(size) / float64(numDocs)
	return frac > left && frac <= right
}
