// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package bits

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteTo serializes v as u64 length (in bits), u64 word count, then its
// backing words, little-endian, matching the raw-bit-vector convention §6's final
// serialized index format calls for.
func (v *Vector) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, uint64(v.length)); err != nil {
		return 0, fmt.Errorf("bits: write vector length: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(v.words))); err != nil {
		return 0, fmt.Errorf("bits: write vector word count: %w", err)
	}
	n := int64(16)
	if len(v.words) > 0 {
		if err := binary.Write(w, binary.LittleEndian, v.words); err != nil {
			return n, fmt.Errorf("bits: write vector words: %w", err)
		}
		n += int64(len(v.words)) * 8
	}
	return n, nil
}

// ReadVector is the inverse of Vector.WriteTo.
func ReadVector(r io.Reader) (*Vector, error) {
	var header [2]uint64
	if err := binary.Read(r, binary.LittleEndian, header[:]); err != nil {
		return nil, fmt.Errorf("bits: read vector header: %w", err)
	}
	v := &Vector{length: int(header[0])}
	numWords := int(header[1])
	if numWords > 0 {
		v.words = make([]uint64, numWords)
		if err := binary.Read(r, binary.LittleEndian, v.words); err != nil {
			return nil, fmt.Errorf("bits: read vector words: %w", err)
		}
	}
	return v, nil
}

// WriteTo serializes a RankVector as its underlying Vector; the rank index
// itself is rebuilt on load rather than persisted, since NewRankVector is
// linear and the index is a small fraction of the vector's own size.
func (rv *RankVector) WriteTo(w io.Writer) (int64, error) {
	return rv.v.WriteTo(w)
}

// ReadRankVector is the inverse of RankVector.WriteTo.
func ReadRankVector(r io.Reader) (*RankVector, error) {
	v, err := ReadVector(r)
	if err != nil {
		return nil, err
	}
	return NewRankVector(v), nil
}

// WriteIntSlice writes a length-prefixed array of u64 values, the same
// convention used for offset tables (reference_offsets, list_offsets, §6).
func WriteIntSlice(w io.Writer, values []int) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(values))); err != nil {
		return fmt.Errorf("bits: write slice length: %w", err)
	}
	if len(values) == 0 {
		return nil
	}
	u64s := make([]uint64, len(values))
	for i, v := range values {
		u64s[i] = uint64(v)
	}
	if err := binary.Write(w, binary.LittleEndian, u64s); err != nil {
		return fmt.Errorf("bits: write slice values: %w", err)
	}
	return nil
}

// ReadIntSlice is the inverse of WriteIntSlice.
func ReadIntSlice(r io.Reader) ([]int, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("bits: read slice length: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	u64s := make([]uint64, n)
	if err := binary.Read(r, binary.LittleEndian, u64s); err != nil {
		return nil, fmt.Errorf("bits: read slice values: %w", err)
	}
	out := make([]int, n)
	for i, v := range u64s {
		out[i] = int(v)
	}
	return out, nil
}
