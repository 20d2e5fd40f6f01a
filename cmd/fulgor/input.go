// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fulgor-go/fulgor/store"
)

// readColorSource parses a plain-text color list: the first line is the
// document universe size, and every following non-empty line is one
// sorted, space-separated color class.
func readColorSource(path string) (*store.Hybrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fulgor: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	if !sc.Scan() {
		return nil, fmt.Errorf("fulgor: %s: missing num_docs header line", path)
	}
	numDocs, err := strconv.ParseUint(strings.TrimSpace(sc.Text()), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("fulgor: %s: invalid num_docs header: %w", path, err)
	}

	b := store.NewHybridBuilder(uint32(numDocs))
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		list := make([]uint32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("fulgor: %s:%d: invalid document id %q: %w", path, lineNo, f, err)
			}
			list[i] = uint32(v)
		}
		b.ProcessColors(list)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fulgor: %s: %w", path, err)
	}
	return b.Build(), nil
}
