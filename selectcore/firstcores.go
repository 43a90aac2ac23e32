// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/errors"
)

// FirstCoresPick selects, for each node in avail (ascending index
// order), exactly the literal first coreCnt[node_offset] cores of
// that node — never a different subset. A node that cannot supply
// its quota from its lowest-indexed free cores is skipped without
// consuming a coreCnt slot. The walk stops once a zero entry in
// coreCnt is reached; it fails if the sequence is not fully satisfied
// by the time avail is exhausted (I6).
func FirstCoresPick(table *coreaddr.Table, avail *bitset.BitSet, coreCnt CoreCntRequest, specializedCores *bitset.BitSet, coreBitmap **bitset.BitSet) (*bitset.BitSet, error) {
	if len(coreCnt) == 0 || coreCnt[0] == 0 {
		return nil, errors.NewValidationError(errors.ErrorCodeInvalidRequest, "first-cores pick requires a nonempty core count list", "core_cnt", coreCnt, nil)
	}

	result := bitset.New(avail.Len())

	filtered := SpecCoreFilter(avail, specializedCores, table, *coreBitmap)
	*coreBitmap = filtered

	tmpcore := filtered.Copy()
	tmpcore.Not()
	filtered.And(tmpcore)

	firstNode := avail.FindFirstSet()
	lastNode := firstNode - 1
	if firstNode >= 0 {
		lastNode = avail.FindLastSet()
	}

	nodeOffset := 0
	for inx := firstNode; inx <= lastNode; inx++ {
		if !avail.Test(inx) {
			continue
		}

		offset := int(table.CoreOffset(inx))
		localCores := int(table.CoreCount(inx))

		avail.Clear(inx)

		want := int(coreCnt[nodeOffset])
		satisfiable := localCores >= want

		placed := 0
		if satisfiable {
			for jnx := 0; jnx < want; jnx++ {
				if !tmpcore.Test(offset + jnx) {
					break
				}
				filtered.Set(offset + jnx)
				placed++
			}
		}

		if placed < want {
			// Drop the partial prefix so a skipped node leaves no bits.
			filtered.ClearRange(offset, offset+placed)
			continue
		}

		for jnx := want; jnx < localCores; jnx++ {
			tmpcore.Clear(offset + jnx)
		}
		result.Set(inx)

		nodeOffset++
		if nodeOffset >= len(coreCnt) || coreCnt[nodeOffset] == 0 {
			break
		}
	}

	if nodeOffset < len(coreCnt) && coreCnt[nodeOffset] != 0 {
		return nil, errors.NewUnsatisfiableError("resv_test", "first-cores reservation request cannot be satisfied")
	}

	return result, nil
}

// getAvailCoreInNode returns the number of free cores in node
// (according to excluded, where set bits mean unavailable). If that
// count is below coresPerNode, it zeroes every exclusion bit for the
// node's core range — marking the node as having zero availability —
// and returns 0.
func getAvailCoreInNode(table *coreaddr.Table, excluded *bitset.BitSet, node int, coresPerNode int) int {
	offset := int(table.CoreOffset(node))
	totalCores := int(table.CoreCount(node))

	if excluded == nil {
		return totalCores
	}

	avail := 0
	for i := 0; i < totalCores; i++ {
		if !excluded.Test(offset + i) {
			avail++
		}
	}

	if avail >= coresPerNode {
		return avail
	}

	excluded.ClearRange(offset, offset+totalCores)
	return 0
}
