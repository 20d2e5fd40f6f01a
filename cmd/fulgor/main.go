// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

// Command fulgor builds and inspects color-class compression indexes.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
