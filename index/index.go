// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

// Package index implements the façade of §4's component 9: it composes one
// color store (differential or meta-differential) with the opaque K2U/U2C
// collaborators and a filename catalog, and exposes the build and
// iteration entry points the rest of the system consumes.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fulgor-go/fulgor/cluster"
	"github.com/fulgor-go/fulgor/store"
)

// Kind selects which color store backs an Index.
type Kind int

const (
	// KindFull backs the index with a plain Differential store (§4.6).
	KindFull Kind = iota
	// KindMeta backs the index with the two-level MetaDifferential store
	// (§4.7/4.8).
	KindMeta
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindMeta:
		return "meta"
	default:
		return fmt.Sprintf("index.Kind(%d)", int(k))
	}
}

// Collaborators are the opaque, pass-through external interfaces of §6: the
// core never interprets their contents.
type Collaborators struct {
	K2U             []byte
	U2C             []byte
	FilenameCatalog []byte
}

// Config parameterizes a build. The zero value is not valid; use
// DefaultConfig.
type Config struct {
	Kind             Kind
	Differential     store.DifferentialBuilder
	MetaDifferential store.MetaDifferentialBuilder
}

// DefaultConfig returns the canonical build parameters for the requested
// Kind.
func DefaultConfig(kind Kind) Config {
	return Config{
		Kind:             kind,
		Differential:     store.DefaultDifferentialBuilder(),
		MetaDifferential: store.DefaultMetaDifferentialBuilder(),
	}
}

// Validate checks the parameter-infeasibility error kind of §7 before any
// expensive work starts: an empty source, or a min_cluster_size that can
// never be reached by any split, fail fast with a specific diagnostic.
func (c Config) Validate(src store.ColorSource) error {
	n := src.NumColorClasses()
	if n == 0 {
		return fmt.Errorf("index: empty color source: num_color_classes is 0")
	}
	if src.NumDocs() <= 0 {
		return fmt.Errorf("index: invalid doc universe: num_docs must be positive, got %d", src.NumDocs())
	}
	minClusterSize := c.Differential.Cluster.MinClusterSize
	if c.Kind == KindMeta {
		minClusterSize = c.MetaDifferential.Meta.Cluster.MinClusterSize
	}
	if minClusterSize > n {
		return fmt.Errorf("index: min_cluster_size %d exceeds num_color_classes %d; clustering can never split", minClusterSize, n)
	}
	return nil
}

// Index is the immutable, built artifact: exactly one of Full or Meta is
// populated, selected by Kind.
type Index struct {
	Kind          Kind
	Collaborators Collaborators

	full     *store.Differential
	fullPerm *cluster.Permutation
	meta     *store.MetaDifferential
}

// NumColorClasses returns N.
func (x *Index) NumColorClasses() int {
	if x.Kind == KindMeta {
		return x.meta.NumColorClasses()
	}
	return x.full.NumColorClasses()
}

// NumDocs returns D.
func (x *Index) NumDocs() int {
	if x.Kind == KindMeta {
		return x.meta.NumDocs()
	}
	return x.full.NumDocs()
}

// Colors returns an iterator over class id's reconstructed doc list,
// addressed by the id the caller's upstream color source used — the
// façade applies the differential store's build permutation internally so
// callers never see storage-order ids. For a KindMeta index the returned doc
// ids are in the meta store's permuted doc space, not the original one.
func (x *Index) Colors(classID int) store.ListIterator {
	if x.Kind == KindMeta {
		return x.meta.Colors(classID)
	}
	return x.full.Colors(x.fullPerm.Perm[classID])
}

// Build runs the configured pipeline to completion over src, emitting
// step-N progress markers (§5) via slog. A build either runs to completion
// or returns the first error encountered; cancelling ctx is such an error,
// since the sketch and clustering phases check ctx and return ctx.Err().
func Build(ctx context.Context, src store.ColorSource, collab Collaborators, cfg Config) (*Index, error) {
	slog.Info("step 1: validating parameters", "kind", cfg.Kind, "classes", src.NumColorClasses(), "docs", src.NumDocs())
	if err := cfg.Validate(src); err != nil {
		return nil, err
	}

	idx := &Index{Kind: cfg.Kind, Collaborators: collab}
	switch cfg.Kind {
	case KindFull:
		slog.Info("step 2: building differential store")
		st, perm, err := cfg.Differential.Build(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("index: build: %w", err)
		}
		idx.full, idx.fullPerm = st, perm
	case KindMeta:
		slog.Info("step 2: building meta-differential store")
		st, err := cfg.MetaDifferential.Build(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("index: build: %w", err)
		}
		idx.meta = st
	default:
		return nil, fmt.Errorf("index: unknown kind %v", cfg.Kind)
	}
	slog.Info("step 3: build complete", "clusters_or_partitions", summaryCount(idx))
	return idx, nil
}

func summaryCount(idx *Index) int {
	if idx.Kind == KindMeta {
		return idx.meta.NumColorClasses()
	}
	return idx.full.NumClusters()
}

// WriteFile serializes idx to path atomically: it writes to a temp file in
// the same directory, syncs, then renames over the destination (§5's
// "written then renamed" discipline). Only KindFull indexes are supported
// today; a KindMeta index's on-disk layout is left to a future revision.
func WriteFile(idx *Index, path string) (err error) {
	if idx.Kind != KindFull {
		return fmt.Errorf("index: WriteFile: serialization for kind %v not implemented", idx.Kind)
	}
	dir := "."
	if d := dirOf(path); d != "" {
		dir = d
	}
	tmp, err := os.CreateTemp(dir, ".fulgor-index-*.tmp")
	if err != nil {
		return fmt.Errorf("index: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = idx.full.WriteTo(tmp, idx.fullPerm); err != nil {
		return fmt.Errorf("index: serialize: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("index: sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("index: close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("index: rename into place: %w", err)
	}
	return nil
}

// ReadFile is the inverse of WriteFile for a KindFull index.
func ReadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	defer f.Close()

	st, perm, err := store.ReadDifferential(f)
	if err != nil {
		return nil, fmt.Errorf("index: deserialize: %w", err)
	}
	return &Index{Kind: KindFull, full: st, fullPerm: perm}, nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}
