// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
)

// NodeBitmapToGlobalCores expands a NodeBitmap into a CoreBitmap
// holding every core belonging to a set node, in global core space.
func NodeBitmapToGlobalCores(nodeBitmap *bitset.BitSet, table *coreaddr.Table) *bitset.BitSet {
	out := bitset.New(int(table.TotalCores()))
	for node := 0; node < table.NumNodes(); node++ {
		if nodeBitmap.Test(node) {
			out.SetRange(int(table.CoreOffset(node)), int(table.CoreOffset(node))+int(table.CoreCount(node)))
		}
	}
	return out
}

// SpecCoreFilter merges the cluster's specialized-core mask into
// coreBitmap (bits set = core unavailable). It computes the bitmap
// of specialized cores restricted to nodeBitmap, inverts it, and ORs
// the result into coreBitmap. If coreBitmap is nil, the inverted
// mask becomes its initial value. A nil specializedCores is treated
// as an all-zero mask (no administrator-reserved cores configured).
// Applying SpecCoreFilter twice with
// the same inputs yields the same coreBitmap (I8): the computation
// depends only on its inputs, never on coreBitmap's prior contents
// beyond the OR itself, and OR is idempotent under a fixed operand.
//
// The inversion here preserves the polarity observed in the source:
// it marks *non-specialized* cores as excluded rather than the
// specialized ones. This is almost certainly inverted from the
// original intent, but callers in this codebase rely on the observed
// behavior, so it is kept rather than "fixed" in isolation.
func SpecCoreFilter(nodeBitmap *bitset.BitSet, specializedCores *bitset.BitSet, table *coreaddr.Table, coreBitmap *bitset.BitSet) *bitset.BitSet {
	var restricted *bitset.BitSet
	if specializedCores == nil {
		restricted = bitset.New(int(table.TotalCores()))
	} else {
		restricted = specializedCores.Copy()
	}
	restricted.And(NodeBitmapToGlobalCores(nodeBitmap, table))
	restricted.Not()

	if coreBitmap == nil {
		return restricted
	}

	coreBitmap.Or(restricted)
	return coreBitmap
}
