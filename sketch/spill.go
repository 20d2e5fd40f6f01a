// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package sketch

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// SpillFile owns a temporary on-disk copy of a Set, created and removed by
// exactly one build invocation (§5: shared resources). Acquire with
// NewSpillFile; Close always removes the backing file, on every exit path.
type SpillFile struct {
	f *os.File
}

// NewSpillFile creates a temp file in dir (os.TempDir() if empty) and
// writes set to it in the §6 wire format.
func NewSpillFile(dir string, set *Set) (_ *SpillFile, err error) {
	f, err := os.CreateTemp(dir, "fulgor-sketches-*.bin")
	if err != nil {
		return nil, fmt.Errorf("sketch: create spill file: %w", err)
	}
	sf := &SpillFile{f: f}
	defer func() {
		if err != nil {
			sf.Close()
		}
	}()

	w := bufio.NewWriter(f)
	if err = WriteSpill(w, set); err != nil {
		return nil, err
	}
	if err = w.Flush(); err != nil {
		return nil, fmt.Errorf("sketch: flush spill file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return nil, fmt.Errorf("sketch: sync spill file: %w", err)
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("sketch: rewind spill file: %w", err)
	}
	return sf, nil
}

// Load reads the spill file's contents back into a Set.
func (sf *SpillFile) Load() (*Set, error) {
	if _, err := sf.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return ReadSpill(bufio.NewReader(sf.f))
}

// Name returns the backing file's path, for diagnostics.
func (sf *SpillFile) Name() string { return sf.f.Name() }

// Close removes the backing file unconditionally. Safe to call once the
// caller is done reading; idempotent against a nil receiver's file.
func (sf *SpillFile) Close() error {
	if sf.f == nil {
		return nil
	}
	name := sf.f.Name()
	closeErr := sf.f.Close()
	removeErr := os.Remove(name)
	if closeErr != nil {
		return closeErr
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return removeErr
	}
	return nil
}

// WriteSpill writes set in the §6 wire format:
//
//	u64 num_bytes_per_point
//	u64 num_docs
//	u64 num_points
//	u64 color_ids[num_points]
//	u8  sketches[num_points][num_bytes_per_point]
func WriteSpill(w io.Writer, set *Set) error {
	header := []uint64{
		uint64(set.NumBytesPerPoint),
		uint64(set.NumDocs),
		uint64(set.NumPoints()),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("sketch: write header: %w", err)
	}
	ids := make([]uint64, len(set.ClassIDs))
	for i, id := range set.ClassIDs {
		ids[i] = uint64(id)
	}
	if len(ids) > 0 {
		if err := binary.Write(w, binary.LittleEndian, ids); err != nil {
			return fmt.Errorf("sketch: write class ids: %w", err)
		}
	}
	for _, s := range set.Sketches {
		if _, err := w.Write(s); err != nil {
			return fmt.Errorf("sketch: write sketch bytes: %w", err)
		}
	}
	return nil
}

// ReadSpill is the inverse of WriteSpill.
func ReadSpill(r io.Reader) (*Set, error) {
	var header [3]uint64
	if err := binary.Read(r, binary.LittleEndian, header[:]); err != nil {
		return nil, fmt.Errorf("sketch: read header: %w", err)
	}
	numBytesPerPoint := int(header[0])
	numDocs := int(header[1])
	numPoints := int(header[2])

	set := &Set{NumBytesPerPoint: numBytesPerPoint, NumDocs: numDocs}
	if numPoints == 0 {
		return set, nil
	}

	ids := make([]uint64, numPoints)
	if err := binary.Read(r, binary.LittleEndian, ids); err != nil {
		return nil, fmt.Errorf("sketch: read class ids: %w", err)
	}
	set.ClassIDs = make([]uint32, numPoints)
	for i, id := range ids {
		set.ClassIDs[i] = uint32(id)
	}

	set.Sketches = make([][]byte, numPoints)
	for i := range set.Sketches {
		buf := make([]byte, numBytesPerPoint)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("sketch: read sketch %d: %w", i, err)
		}
		set.Sketches[i] = buf
	}
	return set, nil
}
