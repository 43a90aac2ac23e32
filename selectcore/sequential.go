// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/errors"
)

// CoreCntRequest expresses a reservation's core-count shape: nil for
// full-node reservations, a single-element slice for an aggregate
// partial-node request, or a per-node slice (one entry per node in
// ascending index order, terminated implicitly by the first zero
// entry) for a per-node partial request.
type CoreCntRequest []uint32

// IsAggregate reports whether this request names one aggregate core
// total rather than a per-node list.
func (c CoreCntRequest) IsAggregate() bool {
	return len(c) == 1
}

// SequentialPick selects nodeCnt nodes (and, if coreCnt is given,
// specific cores within them) from avail, in ascending node-index
// order, consuming the fewest nodes that satisfy the request. avail
// is mutated: bits for nodes considered (successful or not, in the
// full-node regime) are cleared as the picker walks it.
//
// On success it returns the chosen node bitmap and writes the chosen
// cores into coreBitmap (which may start nil). On failure it returns
// an Unsatisfiable error and leaves coreBitmap in a partially
// modified state — callers that need avail and coreBitmap unmodified
// on failure must pass copies.
func SequentialPick(table *coreaddr.Table, avail *bitset.BitSet, nodeCnt uint32, coreCnt CoreCntRequest, specializedCores *bitset.BitSet, coreBitmap **bitset.BitSet) (*bitset.BitSet, error) {
	result := bitset.New(avail.Len())

	if coreCnt == nil {
		return sequentialPickFullNode(avail, nodeCnt, result)
	}

	return sequentialPickPartialNode(table, avail, nodeCnt, coreCnt, specializedCores, coreBitmap, result)
}

func sequentialPickFullNode(avail *bitset.BitSet, nodeCnt uint32, result *bitset.BitSet) (*bitset.BitSet, error) {
	for nodeCnt > 0 {
		inx := avail.FindFirstSet()
		if inx < 0 {
			return nil, errors.NewUnsatisfiableError("resv_test", "not enough available nodes for full-node sequential reservation")
		}
		result.Set(inx)
		avail.Clear(inx)
		nodeCnt--
	}
	return result, nil
}

func sequentialPickPartialNode(table *coreaddr.Table, avail *bitset.BitSet, nodeCnt uint32, coreCnt CoreCntRequest, specializedCores *bitset.BitSet, coreBitmap **bitset.BitSet, result *bitset.BitSet) (*bitset.BitSet, error) {
	var coresPerNode, extraCoresNeeded, total uint32
	nodeListInx := 0

	if nodeCnt > 0 {
		total = coreCnt[0]
		denom := nodeCnt
		coresPerNode = total / denom
		extraCoresNeeded = total - coresPerNode*nodeCnt
	} else {
		numNodes := avail.PopCount()
		for i := 0; i < numNodes && i < len(coreCnt) && coreCnt[i] != 0; i++ {
			total += coreCnt[i]
		}
	}

	filtered := SpecCoreFilter(avail, specializedCores, table, *coreBitmap)
	*coreBitmap = filtered

	tmpcore := filtered.Copy()
	tmpcore.Not() // tmpcore now holds the currently free cores

	filtered.And(tmpcore) // clear coreBitmap back to empty, sized correctly

	for total > 0 {
		if nodeCnt == 0 {
			if nodeListInx >= len(coreCnt) {
				break
			}
			coresPerNode = coreCnt[nodeListInx]
			if coresPerNode == 0 {
				break
			}
		}

		inx := avail.FindFirstSet()
		if inx < 0 {
			break
		}
		avail.Clear(inx)

		localCores := int(table.CoreCount(inx))
		if uint32(localCores) < coresPerNode {
			continue
		}

		offset := int(table.CoreOffset(inx))
		freeInNode := tmpcore.PopCountRange(offset, offset+localCores)
		if uint32(freeInNode) < coresPerNode {
			continue
		}

		coresInNode := uint32(0)
		for i := 0; i < localCores; i++ {
			if !tmpcore.Test(offset + i) {
				continue
			}
			filtered.Set(offset + i)
			total--
			coresInNode++
			if coresInNode > coresPerNode {
				extraCoresNeeded--
			}
			if total == 0 || (extraCoresNeeded == 0 && coresInNode >= coresPerNode) {
				break
			}
		}

		if coresInNode > 0 {
			result.Set(inx)
		}
		nodeListInx++
	}

	if total > 0 {
		return nil, errors.NewUnsatisfiableError("resv_test", "reservation request cannot be satisfied by sequential partial-node pick")
	}

	return result, nil
}
