// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/fulgor-go/fulgor/bits"
	"github.com/fulgor-go/fulgor/cluster"
	"github.com/fulgor-go/fulgor/sketch"
)

// Differential is the core compressed color store of §4.6: every class is
// encoded as the symmetric difference against its cluster's synthesized
// reference. Class ids here are in the store's own cluster-grouped order —
// the permutation returned alongside a Differential by
// DifferentialBuilder.Build is
// what a caller uses to translate to/from pre-build insertion order.
type Differential struct {
	numDocs          uint32
	vector           *bits.Vector
	referenceOffsets []int // len numClusters+1
	listOffsets      []int // len N+1
	clusterBoundary  *bits.RankVector
}

// NumColorClasses returns N.
func (d *Differential) NumColorClasses() int { return len(d.listOffsets) - 1 }

// NumDocs returns D.
func (d *Differential) NumDocs() int { return int(d.numDocs) }

// NumClusters returns the number of clusters in the store.
func (d *Differential) NumClusters() int { return len(d.referenceOffsets) - 1 }

// ClusterOf returns the cluster index owning class id, via rank1 on the
// cluster-boundary bit vector (§9: "uses rank1(class_id) ... rather than
// storing a per-class cluster id").
func (d *Differential) ClusterOf(id int) int {
	return d.clusterBoundary.Rank1(id)
}

// Colors returns a restartable iterator over class id's reconstructed
// document list, merging the cluster reference with the edit list in
// ascending order (§4.6). Panics on an out-of-range id (contract
// violation, §4.6/§7).
func (d *Differential) Colors(id int) ListIterator {
	n := d.NumColorClasses()
	if id < 0 || id >= n {
		panic(fmt.Sprintf("store: color class id %d out of range [0,%d)", id, n))
	}
	clusterIdx := d.ClusterOf(id)
	it := &differentialIterator{
		vector:    d.vector,
		refStart:  d.referenceOffsets[clusterIdx],
		editStart: d.listOffsets[id],
		numDocs:   d.numDocs,
	}
	it.Rewind()
	return it
}

// differentialIterator implements the merge-cancel state machine of §4.6:
// on each Next, if the two current heads are equal they cancel (both
// advance, silently); otherwise the smaller is yielded and its stream
// advances. Re-entrant value semantics: Rewind re-derives both heads from
// the two absolute bit offsets captured at construction, so restarting
// never re-touches the store.
type differentialIterator struct {
	vector    *bits.Vector
	refStart  int
	editStart int
	numDocs   uint32

	refReader  bits.Reader
	editReader bits.Reader

	refSize, editSize   int
	refIdx, editIdx     int
	refVal, editVal     uint32
	refValid, editValid bool
	refPrev, editPrev   uint32

	size int
	cur  uint32
}

func (it *differentialIterator) Rewind() {
	it.refReader = *bits.NewReader(it.vector, it.refStart)
	it.editReader = *bits.NewReader(it.vector, it.editStart)
	it.refSize = int(bits.ReadDelta(&it.refReader))
	it.editSize = int(bits.ReadDelta(&it.editReader))
	it.refIdx, it.editIdx = 0, 0
	it.refPrev, it.editPrev = 0, 0
	it.refValid = it.advanceRef()
	it.editValid = it.advanceEdit()
	it.size = -1 // computed lazily on first full drain if needed
	it.cur = 0
}

func (it *differentialIterator) advanceRef() bool {
	if it.refIdx >= it.refSize {
		it.refVal = it.numDocs
		return false
	}
	gap := bits.ReadDelta(&it.refReader)
	if it.refIdx == 0 {
		it.refVal = uint32(gap)
	} else {
		it.refVal = it.refPrev + uint32(gap) + 1
	}
	it.refPrev = it.refVal
	it.refIdx++
	return true
}

func (it *differentialIterator) advanceEdit() bool {
	if it.editIdx >= it.editSize {
		it.editVal = it.numDocs
		return false
	}
	gap := bits.ReadDelta(&it.editReader)
	if it.editIdx == 0 {
		it.editVal = uint32(gap)
	} else {
		it.editVal = it.editPrev + uint32(gap) + 1
	}
	it.editPrev = it.editVal
	it.editIdx++
	return true
}

// Size drains nothing; it reports the number of remaining distinct values,
// which requires knowing the symmetric-difference cardinality. Since that
// isn't stored directly, Size materializes the iterator once (into a
// throwaway copy) the first time it's asked for — callers on the hot path
// should prefer Next()/Value() directly and avoid Size() unless needed.
func (it *differentialIterator) Size() int {
	if it.size >= 0 {
		return it.size
	}
	clone := *it
	count := 0
	for clone.Next() {
		count++
	}
	it.size = count
	return count
}

func (it *differentialIterator) Value() uint32 { return it.cur }

func (it *differentialIterator) Next() bool {
	for it.refValid && it.editValid && it.refVal == it.editVal {
		it.refValid = it.advanceRef()
		it.editValid = it.advanceEdit()
	}
	switch {
	case it.refValid && (!it.editValid || it.refVal < it.editVal):
		it.cur = it.refVal
		it.refValid = it.advanceRef()
		return true
	case it.editValid:
		it.cur = it.editVal
		it.editValid = it.advanceEdit()
		return true
	default:
		it.cur = it.numDocs
		return false
	}
}

// DifferentialBuilder drives the build pipeline of §4.4-§4.6: sketch every
// class, cluster the sketches, synthesize one reference per cluster, then
// delta-encode every class against its cluster's reference.
type DifferentialBuilder struct {
	Sketch   sketch.Config
	Cluster  cluster.Config
	Strategy cluster.ReferenceStrategy
	// SpillDir is the directory the sketch spill file is created in
	// (os.TempDir() if empty, §6).
	SpillDir string
}

// DefaultDifferentialBuilder returns a builder configured with the
// canonical parameters of §4.3/§4.4 and full class coverage (Left/Right
// chosen so that every class, including empty ones, is sketched).
func DefaultDifferentialBuilder() DifferentialBuilder {
	return DifferentialBuilder{
		Sketch:   sketch.Config{P: 10, Left: -1, Right: 1},
		Cluster:  cluster.DefaultConfig(),
		Strategy: cluster.MajorityVoteStrategy{},
	}
}

// Build runs the full pipeline over src and returns the encoded store
// alongside the permutation mapping src's original class ids to the
// store's cluster-grouped ids (Permutation.Perm[originalID] == storeID).
func (b DifferentialBuilder) Build(ctx context.Context, src ColorSource) (*Differential, *cluster.Permutation, error) {
	n := src.NumColorClasses()
	sketcher := sketch.New(src, b.Sketch)
	set, err := sketcher.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("store: sketch phase: %w", err)
	}

	// Hand the sketch phase's output to the clusterer through a scoped
	// spill file rather than directly in memory (§5: "only synchronous
	// file I/O (sketch spill file)" is the pipeline's blocking resource).
	spill, err := sketch.NewSpillFile(b.SpillDir, set)
	if err != nil {
		return nil, nil, fmt.Errorf("store: spill sketches: %w", err)
	}
	defer spill.Close()
	slog.Debug("spilled sketches", "path", spill.Name(), "points", set.NumPoints())
	set, err = spill.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("store: reload spilled sketches: %w", err)
	}

	if set.NumPoints() != n {
		return nil, nil, fmt.Errorf("store: density filter must cover all %d classes for a differential build, got %d", n, set.NumPoints())
	}

	km := cluster.New(set.Sketches, b.Cluster)
	assignment, err := km.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("store: cluster phase: %w", err)
	}
	perm := cluster.BuildPermutation(assignment)

	// set.ClassIDs[i] is the original class id of sketch point i; Order
	// gives permuted-order -> point index, so translate through it.
	originalIDOfPoint := set.ClassIDs
	materialized := make([][]uint32, n) // cache, indexed by original class id
	getByPoint := func(pointIdx int) []uint32 {
		id := int(originalIDOfPoint[pointIdx])
		if materialized[id] == nil {
			materialized[id] = Materialize(src.Colors(id))
			if materialized[id] == nil {
				materialized[id] = []uint32{}
			}
		}
		return materialized[id]
	}
	refs := cluster.SynthesizeReferences(perm, getByPoint, b.Strategy)

	w := bits.NewWriter(0)
	refOffsets := make([]int, len(refs)+1)
	for c, ref := range refs {
		refOffsets[c] = w.Len()
		bits.WriteSortedList(w, ref)
	}
	refOffsets[len(refs)] = w.Len()

	listOffsets := make([]int, n+1)
	boundaryWriter := bits.NewWriter(n + len(refs))
	for c := 0; c < assignment.NumClusters; c++ {
		start, end := perm.Boundaries[c], perm.Boundaries[c+1]
		ref := refs[c]
		for slot := start; slot < end; slot++ {
			pointIdx := perm.Order[slot]
			classList := getByPoint(pointIdx)
			edit := symmetricDifference(classList, ref)

			listOffsets[slot] = w.Len()
			bits.WriteSortedList(w, edit)

			if slot == end-1 {
				boundaryWriter.Append1()
			} else {
				boundaryWriter.Append0()
			}
		}
	}
	listOffsets[n] = w.Len()

	store := &Differential{
		numDocs:          uint32(src.NumDocs()),
		vector:           w.Freeze(),
		referenceOffsets: refOffsets,
		listOffsets:      listOffsets,
		clusterBoundary:  bits.NewRankVector(boundaryWriter.Freeze()),
	}
	return store, perm, nil
}

// WriteTo serializes the store in the §6 final-artifact layout for
// `differential` (u32 num_docs; reference_offsets; list_offsets; raw bit
// vector m_colors; ranked bit vector m_clusters), followed by perm's three
// arrays so the façade can recover the original-class-id -> storage-id
// mapping on load — an addition beyond §6's literal listed fields, since
// without it a reloaded store could only be queried by storage id.
func (d *Differential) WriteTo(w io.Writer, perm *cluster.Permutation) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(d.numDocs)); err != nil {
		return fmt.Errorf("store: write num_docs: %w", err)
	}
	if err := bits.WriteIntSlice(w, d.referenceOffsets); err != nil {
		return fmt.Errorf("store: write reference_offsets: %w", err)
	}
	if err := bits.WriteIntSlice(w, d.listOffsets); err != nil {
		return fmt.Errorf("store: write list_offsets: %w", err)
	}
	if _, err := d.vector.WriteTo(w); err != nil {
		return fmt.Errorf("store: write m_colors: %w", err)
	}
	if _, err := d.clusterBoundary.WriteTo(w); err != nil {
		return fmt.Errorf("store: write m_clusters: %w", err)
	}
	if err := bits.WriteIntSlice(w, perm.Boundaries); err != nil {
		return fmt.Errorf("store: write permutation boundaries: %w", err)
	}
	if err := bits.WriteIntSlice(w, perm.Perm); err != nil {
		return fmt.Errorf("store: write permutation perm: %w", err)
	}
	if err := bits.WriteIntSlice(w, perm.Order); err != nil {
		return fmt.Errorf("store: write permutation order: %w", err)
	}
	return nil
}

// ReadDifferential is the inverse of Differential.WriteTo.
func ReadDifferential(r io.Reader) (*Differential, *cluster.Permutation, error) {
	var numDocs uint32
	if err := binary.Read(r, binary.LittleEndian, &numDocs); err != nil {
		return nil, nil, fmt.Errorf("store: read num_docs: %w", err)
	}
	refOffsets, err := bits.ReadIntSlice(r)
	if err != nil {
		return nil, nil, fmt.Errorf("store: read reference_offsets: %w", err)
	}
	listOffsets, err := bits.ReadIntSlice(r)
	if err != nil {
		return nil, nil, fmt.Errorf("store: read list_offsets: %w", err)
	}
	vector, err := bits.ReadVector(r)
	if err != nil {
		return nil, nil, fmt.Errorf("store: read m_colors: %w", err)
	}
	clusters, err := bits.ReadRankVector(r)
	if err != nil {
		return nil, nil, fmt.Errorf("store: read m_clusters: %w", err)
	}
	boundaries, err := bits.ReadIntSlice(r)
	if err != nil {
		return nil, nil, fmt.Errorf("store: read permutation boundaries: %w", err)
	}
	permArr, err := bits.ReadIntSlice(r)
	if err != nil {
		return nil, nil, fmt.Errorf("store: read permutation perm: %w", err)
	}
	order, err := bits.ReadIntSlice(r)
	if err != nil {
		return nil, nil, fmt.Errorf("store: read permutation order: %w", err)
	}

	store := &Differential{
		numDocs:          uint32(numDocs),
		vector:           vector,
		referenceOffsets: refOffsets,
		listOffsets:      listOffsets,
		clusterBoundary:  clusters,
	}
	perm := &cluster.Permutation{Boundaries: boundaries, Perm: permArr, Order: order}
	return store, perm, nil
}

// symmetricDifference returns the sorted symmetric difference of two sorted,
// deduplicated slices: the union of (a\b) and (b\a), which is exactly the
// edit-list encoding invariant of §4.6.
func symmetricDifference(a, b []uint32) []uint32 {
	out := make([]uint32, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
