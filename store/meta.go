// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/fulgor-go/fulgor/cluster"
	"github.com/fulgor-go/fulgor/sketch"
)

// Meta is the two-level color store of §4.7: the doc universe is clustered
// into partitions by *document* sketches (the transpose of the color
// lists), each class becomes a sequence of (partition_id, partial_color_id)
// pairs, and each partition owns a small Hybrid store of its deduplicated
// partial colors.
//
// Meta relabels the doc universe via the document permutation discovered
// at build time: Colors(id) composes partition.begin (in permuted doc
// space) with each partial color's local offsets directly, with no
// un-permutation step, exactly as §4.7's iterator description states.
// Round-tripping therefore reproduces each input list *permuted* by
// DocPermutation, not the verbatim original ordering — the wording
// scenario 6 uses ("round-trip yields original permuted lists").
type Meta struct {
	numDocs           uint32
	docPerm           []uint32 // original doc id -> permuted doc id
	partitionBegin    []uint32 // len numPartitions+1, permuted doc space
	partitions        []*Hybrid
	numPartialsBefore []uint32 // len numPartitions+1
	entries           [][]metaEntry
}

type metaEntry struct {
	PartitionID    uint32
	PartialColorID uint32 // globalized
}

// NumColorClasses returns N.
func (m *Meta) NumColorClasses() int { return len(m.entries) }

// NumDocs returns D.
func (m *Meta) NumDocs() int { return int(m.numDocs) }

// NumPartitions returns the number of document partitions produced at build.
func (m *Meta) NumPartitions() int { return len(m.partitions) }

// DocPermutation returns the original->permuted doc id mapping discovered
// during build (docPerm[original] == permuted).
func (m *Meta) DocPermutation() []uint32 { return m.docPerm }

// PartitionBegin returns partition p's starting offset in permuted doc
// space; PartitionBegin(NumPartitions()) is D in permuted space.
func (m *Meta) PartitionBegin(p int) uint32 { return m.partitionBegin[p] }

// Colors returns an iterator over class id's reconstructed (permuted) doc
// list. Panics on an out-of-range id.
func (m *Meta) Colors(id int) ListIterator {
	n := len(m.entries)
	if id < 0 || id >= n {
		panic(fmt.Sprintf("store: color class id %d out of range [0,%d)", id, n))
	}
	it := &metaIterator{meta: m, entries: m.entries[id]}
	it.Rewind()
	return it
}

// metaIterator composes the current (partition_id, partial_color_id) pair's
// inner Hybrid iterator with the partition's base offset, advancing to the
// next pair once the current partial color is exhausted (§4.7).
type metaIterator struct {
	meta     *Meta
	entries  []metaEntry
	entryIdx int
	inner    ListIterator
	cur      uint32
}

func (it *metaIterator) localID(e metaEntry) int {
	return int(e.PartialColorID - it.meta.numPartialsBefore[e.PartitionID])
}

func (it *metaIterator) openEntry(i int) {
	e := it.entries[i]
	it.inner = it.meta.partitions[e.PartitionID].Colors(it.localID(e))
}

func (it *metaIterator) Rewind() {
	it.entryIdx = 0
	it.inner = nil
	it.cur = 0
	if len(it.entries) > 0 {
		it.openEntry(0)
	}
}

func (it *metaIterator) Size() int {
	total := 0
	for _, e := range it.entries {
		total += it.meta.partitions[e.PartitionID].Colors(it.localID(e)).Size()
	}
	return total
}

func (it *metaIterator) Value() uint32 { return it.cur }

func (it *metaIterator) Next() bool {
	for {
		if it.inner == nil {
			it.cur = it.meta.numDocs
			return false
		}
		if it.inner.Next() {
			base := it.meta.partitionBegin[it.entries[it.entryIdx].PartitionID]
			it.cur = base + it.inner.Value()
			return true
		}
		it.entryIdx++
		if it.entryIdx >= len(it.entries) {
			it.inner = nil
			it.cur = it.meta.numDocs
			return false
		}
		it.openEntry(it.entryIdx)
	}
}

// MetaBuilder drives the two-level build of §4.7.
type MetaBuilder struct {
	Sketch  sketch.Config
	Cluster cluster.Config
	// SpillDir is the directory the document-sketch spill file is created
	// in (os.TempDir() if empty, §6).
	SpillDir string
}

// DefaultMetaBuilder returns a builder with full doc coverage and the
// canonical clustering parameters of §4.4.
func DefaultMetaBuilder() MetaBuilder {
	return MetaBuilder{
		Sketch:  sketch.Config{P: 10, Left: -1, Right: 1},
		Cluster: cluster.DefaultConfig(),
	}
}

// Build partitions src's doc universe by document sketches, extracts
// deduplicated partial colors per partition, and globalizes their ids.
func (b MetaBuilder) Build(ctx context.Context, src ColorSource) (*Meta, error) {
	numDocs := src.NumDocs()
	numClasses := src.NumColorClasses()

	docView := transpose(src)
	sketcher := sketch.New(docView, b.Sketch)
	set, err := sketcher.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: document sketch phase: %w", err)
	}

	spill, err := sketch.NewSpillFile(b.SpillDir, set)
	if err != nil {
		return nil, fmt.Errorf("store: spill document sketches: %w", err)
	}
	defer spill.Close()
	slog.Debug("spilled document sketches", "path", spill.Name(), "points", set.NumPoints())
	set, err = spill.Load()
	if err != nil {
		return nil, fmt.Errorf("store: reload spilled document sketches: %w", err)
	}

	if set.NumPoints() != numDocs {
		return nil, fmt.Errorf("store: density filter must cover all %d docs for a meta build, got %d", numDocs, set.NumPoints())
	}

	km := cluster.New(set.Sketches, b.Cluster)
	assignment, err := km.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: document cluster phase: %w", err)
	}
	perm := cluster.BuildPermutation(assignment)
	numPartitions := assignment.NumClusters

	docPerm := make([]uint32, numDocs)
	for orig, slot := range perm.Perm {
		docPerm[orig] = uint32(slot)
	}
	partitionBegin := make([]uint32, numPartitions+1)
	for i, v := range perm.Boundaries {
		partitionBegin[i] = uint32(v)
	}

	partitionBuilders := make([]*HybridBuilder, numPartitions)
	dedup := make([]map[string]uint32, numPartitions)
	for p := 0; p < numPartitions; p++ {
		partitionBuilders[p] = NewHybridBuilder(partitionBegin[p+1] - partitionBegin[p])
		dedup[p] = make(map[string]uint32)
	}

	entries := make([][]metaEntry, numClasses)
	for classID := 0; classID < numClasses; classID++ {
		list := Materialize(src.Colors(classID))
		permuted := make([]uint32, len(list))
		for i, d := range list {
			permuted[i] = docPerm[d]
		}
		sort.Slice(permuted, func(i, j int) bool { return permuted[i] < permuted[j] })

		var classEntries []metaEntry
		p, i := 0, 0
		for i < len(permuted) {
			for permuted[i] >= partitionBegin[p+1] {
				p++
			}
			start := i
			for i < len(permuted) && permuted[i] < partitionBegin[p+1] {
				i++
			}
			local := make([]uint32, i-start)
			for k := start; k < i; k++ {
				local[k-start] = permuted[k] - partitionBegin[p]
			}
			key := partialColorKey(local)
			localID, ok := dedup[p][key]
			if !ok {
				localID = uint32(partitionBuilders[p].NumColorClasses())
				partitionBuilders[p].ProcessColors(local)
				dedup[p][key] = localID
			}
			classEntries = append(classEntries, metaEntry{PartitionID: uint32(p), PartialColorID: localID})
		}
		entries[classID] = classEntries
	}

	partitions := make([]*Hybrid, numPartitions)
	numPartialsBefore := make([]uint32, numPartitions+1)
	for p := 0; p < numPartitions; p++ {
		partitions[p] = partitionBuilders[p].Build()
		numPartialsBefore[p+1] = numPartialsBefore[p] + uint32(partitions[p].NumColorClasses())
	}

	// Globalize: rewrite every entry's locally-scoped partial_color_id by
	// adding its partition's running total of partial colors (§4.7 step 4).
	for _, classEntries := range entries {
		for i := range classEntries {
			classEntries[i].PartialColorID += numPartialsBefore[classEntries[i].PartitionID]
		}
	}

	return &Meta{
		numDocs:           uint32(numDocs),
		docPerm:           docPerm,
		partitionBegin:    partitionBegin,
		partitions:        partitions,
		numPartialsBefore: numPartialsBefore,
		entries:           entries,
	}, nil
}

// partialColorKey builds a dedup key for a sorted, partition-local offset
// list; partitions are small enough that a delimited decimal join is
// cheaper to reason about than a binary packing scheme.
func partialColorKey(local []uint32) string {
	var sb strings.Builder
	for _, v := range local {
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
		sb.WriteByte(',')
	}
	return sb.String()
}

// transpose builds the document-sketch view of §4.7 step 1: a ColorSource
// whose "class" ids are original doc ids and whose lists are the original
// class ids that doc belongs to, i.e. the transpose of src's color lists.
func transpose(src ColorSource) *Hybrid {
	n := src.NumColorClasses()
	d := src.NumDocs()
	membership := make([][]uint32, d)
	for classID := 0; classID < n; classID++ {
		it := src.Colors(classID)
		for it.Next() {
			doc := it.Value()
			membership[doc] = append(membership[doc], uint32(classID))
		}
	}
	b := NewHybridBuilder(uint32(n))
	for doc := 0; doc < d; doc++ {
		b.ProcessColors(membership[doc])
	}
	return b.Build()
}
