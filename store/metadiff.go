// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/fulgor-go/fulgor/cluster"
)

// MetaDifferential applies the differential pipeline twice (§4.8, §9: "the
// composition of two instantiations of the same differential builder"):
// once per partition over its deduplicated partial colors (inner), and once
// over the meta-color sequences themselves, treating each class's sorted
// list of global partial-color ids as an ordinary color list (outer).
//
// The design notes' auxiliary partial-color-id vector is redundant with
// what's already recoverable from the outer differential decode plus the
// partition boundary table (§9 flags this as probable instrumentation
// residue and permits keeping one canonical store); here the split of a
// global id into (partition, local id) is done by binary search over
// numPartialsBefore instead of serializing it a second time.
type MetaDifferential struct {
	numDocs     uint32
	meta        *Meta
	innerStores []*Differential
	innerPerms  []*cluster.Permutation
	outerStore  *Differential
	outerPerm   *cluster.Permutation
}

// NumColorClasses returns N.
func (m *MetaDifferential) NumColorClasses() int { return len(m.meta.entries) }

// NumDocs returns D.
func (m *MetaDifferential) NumDocs() int { return int(m.numDocs) }

// partitionOf splits a globalized partial-color id into its owning
// partition and that partition's local id, via binary search over the
// cumulative partial-color counts.
func (m *MetaDifferential) partitionOf(global uint32) (partition int, local uint32) {
	before := m.meta.numPartialsBefore
	p := sort.Search(len(before)-1, func(i int) bool { return before[i+1] > global })
	return p, global - before[p]
}

// Colors returns an iterator over original class id's reconstructed
// (permuted, per Meta's doc relabeling) doc list.
func (m *MetaDifferential) Colors(classID int) ListIterator {
	n := m.NumColorClasses()
	if classID < 0 || classID >= n {
		panic(fmt.Sprintf("store: color class id %d out of range [0,%d)", classID, n))
	}
	outerStorageID := m.outerPerm.Perm[classID]
	it := &metaDiffIterator{md: m, outerStorageID: outerStorageID}
	it.Rewind()
	return it
}

type metaDiffIterator struct {
	md             *MetaDifferential
	outerStorageID int

	outer          ListIterator
	inner          ListIterator
	partitionBegin uint32
	cur            uint32
}

func (it *metaDiffIterator) Rewind() {
	it.outer = it.md.outerStore.Colors(it.outerStorageID)
	it.inner = nil
	it.cur = 0
	it.advanceOuter()
}

// advanceOuter opens the next global partial-color id's inner iterator,
// or clears it.inner if the outer sequence is exhausted.
func (it *metaDiffIterator) advanceOuter() {
	for it.outer.Next() {
		g := it.outer.Value()
		p, local := it.md.partitionOf(g)
		storageLocal := it.md.innerPerms[p].Perm[int(local)]
		inner := it.md.innerStores[p].Colors(storageLocal)
		if inner.Size() == 0 {
			continue // empty partial color: skip straight to the next global id
		}
		it.inner = inner
		it.partitionBegin = it.md.meta.partitionBegin[p]
		return
	}
	it.inner = nil
}

func (it *metaDiffIterator) Size() int {
	freshOuter := it.md.outerStore.Colors(it.outerStorageID)
	total := 0
	for freshOuter.Next() {
		p, local := it.md.partitionOf(freshOuter.Value())
		storageLocal := it.md.innerPerms[p].Perm[int(local)]
		total += it.md.innerStores[p].Colors(storageLocal).Size()
	}
	return total
}

func (it *metaDiffIterator) Value() uint32 { return it.cur }

func (it *metaDiffIterator) Next() bool {
	for {
		if it.inner == nil {
			it.cur = it.md.numDocs
			return false
		}
		if it.inner.Next() {
			it.cur = it.partitionBegin + it.inner.Value()
			return true
		}
		it.advanceOuter()
	}
}

// MetaDifferentialBuilder drives the two-level build of §4.8 by composing a
// MetaBuilder with two instantiations of DifferentialBuilder.
type MetaDifferentialBuilder struct {
	Meta         MetaBuilder
	Differential DifferentialBuilder
}

// DefaultMetaDifferentialBuilder returns the canonical parameterization.
func DefaultMetaDifferentialBuilder() MetaDifferentialBuilder {
	return MetaDifferentialBuilder{
		Meta:         DefaultMetaBuilder(),
		Differential: DefaultDifferentialBuilder(),
	}
}

// Build runs the meta build, then differentially encodes every partition's
// partial-color store (inner) and the meta-color sequences (outer).
func (b MetaDifferentialBuilder) Build(ctx context.Context, src ColorSource) (*MetaDifferential, error) {
	meta, err := b.Meta.Build(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("store: meta phase: %w", err)
	}

	innerStores := make([]*Differential, meta.NumPartitions())
	innerPerms := make([]*cluster.Permutation, meta.NumPartitions())
	for p := 0; p < meta.NumPartitions(); p++ {
		st, perm, err := b.Differential.Build(ctx, meta.partitions[p])
		if err != nil {
			return nil, fmt.Errorf("store: inner differential phase (partition %d): %w", p, err)
		}
		innerStores[p] = st
		innerPerms[p] = perm
	}

	outerSrc := newMetaColorSource(meta)
	outerStore, outerPerm, err := b.Differential.Build(ctx, outerSrc)
	if err != nil {
		return nil, fmt.Errorf("store: outer differential phase: %w", err)
	}

	return &MetaDifferential{
		numDocs:     uint32(src.NumDocs()),
		meta:        meta,
		innerStores: innerStores,
		innerPerms:  innerPerms,
		outerStore:  outerStore,
		outerPerm:   outerPerm,
	}, nil
}

// metaColorSource exposes each class's meta-color sequence (the sorted list
// of globalized partial-color ids, §4.8) as an ordinary ColorSource so the
// outer pass can reuse DifferentialBuilder unchanged.
type metaColorSource struct {
	meta      *Meta
	numGlobal int
}

func newMetaColorSource(m *Meta) *metaColorSource {
	return &metaColorSource{meta: m, numGlobal: int(m.numPartialsBefore[len(m.numPartialsBefore)-1])}
}

func (s *metaColorSource) NumColorClasses() int { return len(s.meta.entries) }

func (s *metaColorSource) NumDocs() int { return s.numGlobal }

func (s *metaColorSource) Colors(id int) ListIterator {
	entries := s.meta.entries[id]
	vals := make([]uint32, len(entries))
	for i, e := range entries {
		vals[i] = e.PartialColorID
	}
	it := newSliceIterator(vals, uint32(s.numGlobal))
	it.Rewind()
	return it
}
