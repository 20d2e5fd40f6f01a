// Copyright 2025 The fulgor Authors. SPDX-License-Identifier: Apache-2.0

package cluster

// The original fulgor edit-list builder marked reference-only entries with
// a sign bit (-R[j]) instead of emitting them unsigned, so a decoder could
// tell "doc present only in the reference" apart from "doc present only in
// the member list" without replaying the merge against the reference a
// second time. This repo always uses the unsigned symmetric-difference
// variant (store.symmetricDifference): decoding already walks the
// reference and the edit list together, so the sign distinction carries no
// information the merge doesn't already have, and a signed encoding would
// cost an extra bit per edit for nothing. Kept here only as a note in case
// a future on-disk format needs to interoperate with the signed variant.
