// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

// Package store implements the color-class stores: the flat Hybrid store,
// the Differential store (reference + symmetric-difference edits), the
// two-level Meta store, and the recursive MetaDifferential store.
package store

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fulgor-go/fulgor/bits"
)

// ColorSource is the read contract every store implements, and the contract
// the sketcher and clusterer consume: an opaque collection of N sorted
// integer lists over [0, D).
type ColorSource interface {
	NumColorClasses() int
	NumDocs() int
	Colors(id int) ListIterator
}

// ListIterator enumerates one color class's document ids in ascending
// order. It is a restartable value type: Rewind returns it to its starting
// position without re-deriving it from the store.
type ListIterator interface {
	Size() int
	Value() uint32
	Next() bool
	Rewind()
}

// Hybrid is the flat delta-gap-coded color store: a single bit vector
// holding the concatenation of every class's Elias-delta-coded sorted list,
// plus an offset array giving each list's header bit position.
type Hybrid struct {
	numDocs     uint32
	vector      *bits.Vector
	listOffsets []int // length N+1; listOffsets[N] == vector.Len()
}

// NumColorClasses returns N.
func (h *Hybrid) NumColorClasses() int { return len(h.listOffsets) - 1 }

// NumDocs returns D.
func (h *Hybrid) NumDocs() int { return int(h.numDocs) }

// Colors returns an iterator over class id's sorted document list.
// Panics if id is out of range (§4.6: a contract violation, not a runtime
// error the reader must handle).
func (h *Hybrid) Colors(id int) ListIterator {
	if id < 0 || id >= h.NumColorClasses() {
		panic(fmt.Sprintf("store: color class id %d out of range [0,%d)", id, h.NumColorClasses()))
	}
	it := &hybridIterator{vector: h.vector, start: h.listOffsets[id], numDocs: h.numDocs}
	it.Rewind()
	return it
}

type hybridIterator struct {
	vector  *bits.Vector
	start   int
	numDocs uint32

	r       bits.Reader
	size    int
	idx     int
	cur     uint32
	started bool
}

func (it *hybridIterator) Rewind() {
	it.r = *bits.NewReader(it.vector, it.start)
	it.size = int(bits.ReadDelta(&it.r))
	it.idx = 0
	it.started = false
	it.cur = 0
}

func (it *hybridIterator) Size() int { return it.size }

func (it *hybridIterator) Value() uint32 { return it.cur }

func (it *hybridIterator) Next() bool {
	if it.idx >= it.size {
		it.cur = it.numDocs
		return false
	}
	gap := bits.ReadDelta(&it.r)
	if !it.started {
		it.cur = uint32(gap)
		it.started = true
	} else {
		it.cur = it.cur + uint32(gap) + 1
	}
	it.idx++
	return true
}

// HybridBuilder accumulates color classes and produces an immutable Hybrid.
type HybridBuilder struct {
	numDocs uint32
	lists   [][]uint32
}

// NewHybridBuilder starts a builder for a universe of numDocs documents.
func NewHybridBuilder(numDocs uint32) *HybridBuilder {
	return &HybridBuilder{numDocs: numDocs}
}

// ProcessColors appends a new class made of the given sorted, deduplicated
// document ids. The caller owns list; the builder copies it.
func (b *HybridBuilder) ProcessColors(list []uint32) {
	owned := make([]uint32, len(list))
	copy(owned, list)
	b.lists = append(b.lists, owned)
}

// NumColorClasses reports how many classes have been appended so far.
func (b *HybridBuilder) NumColorClasses() int { return len(b.lists) }

// Build finalizes the builder into an immutable Hybrid store.
func (b *HybridBuilder) Build() *Hybrid {
	w := bits.NewWriter(0)
	offsets := make([]int, len(b.lists)+1)
	for i, list := range b.lists {
		offsets[i] = w.Len()
		bits.WriteSortedList(w, list)
	}
	offsets[len(b.lists)] = w.Len()
	return &Hybrid{numDocs: b.numDocs, vector: w.Freeze(), listOffsets: offsets}
}

// Materialize drains an iterator into a plain slice; a convenience used by
// tests and by the reference synthesizer's histogram walk.
func Materialize(it ListIterator) []uint32 {
	out := make([]uint32, 0, it.Size())
	for it.Next() {
		out = append(out, it.Value())
	}
	return out
}

// WriteTo serializes h as §6's hybrid wire format: u32 num_docs, the
// list_offsets array, then the raw bit vector.
func (h *Hybrid) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, h.numDocs); err != nil {
		return fmt.Errorf("store: write hybrid num_docs: %w", err)
	}
	if err := bits.WriteIntSlice(w, h.listOffsets); err != nil {
		return fmt.Errorf("store: write hybrid list_offsets: %w", err)
	}
	if _, err := h.vector.WriteTo(w); err != nil {
		return fmt.Errorf("store: write hybrid vector: %w", err)
	}
	return nil
}

// ReadHybrid is the inverse of Hybrid.WriteTo.
func ReadHybrid(r io.Reader) (*Hybrid, error) {
	var numDocs uint32
	if err := binary.Read(r, binary.LittleEndian, &numDocs); err != nil {
		return nil, fmt.Errorf("store: read hybrid num_docs: %w", err)
	}
	offsets, err := bits.ReadIntSlice(r)
	if err != nil {
		return nil, fmt.Errorf("store: read hybrid list_offsets: %w", err)
	}
	v, err := bits.ReadVector(r)
	if err != nil {
		return nil, fmt.Errorf("store: read hybrid vector: %w", err)
	}
	return &Hybrid{numDocs: numDocs, vector: v, listOffsets: offsets}, nil
}
