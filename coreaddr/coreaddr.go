// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package coreaddr implements the flat core-address arithmetic that
// every other package in the node-selection core builds on: the
// bijection between (node, local core) pairs and a single global
// core index.
package coreaddr

import "fmt"

// Table is the static node inventory: an ordered sequence of nodes,
// each contributing a contiguous range of global core indices. It is
// built once at partition init and never mutated afterward; readers
// need no synchronization.
type Table struct {
	coreCount  []uint16
	coreOffset []uint32
	totalCores uint32
	nodeOfCore []int32
}

// NewTable builds a Table from per-node core counts, in node order.
// coreOffset[0] is always 0 and coreOffset[i+1] = coreOffset[i] +
// coreCount[i].
func NewTable(coreCounts []uint16) *Table {
	t := &Table{
		coreCount:  append([]uint16(nil), coreCounts...),
		coreOffset: make([]uint32, len(coreCounts)+1),
	}

	var offset uint32
	for i, count := range coreCounts {
		t.coreOffset[i] = offset
		offset += uint32(count)
	}
	t.coreOffset[len(coreCounts)] = offset
	t.totalCores = offset

	t.nodeOfCore = make([]int32, offset)
	for i, count := range coreCounts {
		base := t.coreOffset[i]
		for k := uint32(0); k < uint32(count); k++ {
			t.nodeOfCore[base+k] = int32(i)
		}
	}

	return t
}

// NumNodes returns the number of nodes in the table.
func (t *Table) NumNodes() int {
	return len(t.coreCount)
}

// TotalCores returns the total number of global core slots.
func (t *Table) TotalCores() uint32 {
	return t.totalCores
}

// CoreOffset returns the global index of node's first core.
func (t *Table) CoreOffset(node int) uint32 {
	return t.coreOffset[node]
}

// CoreCount returns the number of cores belonging to node.
func (t *Table) CoreCount(node int) uint16 {
	return t.coreCount[node]
}

// NodeOf returns the node owning globalCore in O(1) via a
// precomputed reverse-lookup array. Panics if globalCore is out of
// range; this is an internal-invariant violation, not a request-time
// condition, so callers are expected to have validated the index
// already via TotalCores.
func (t *Table) NodeOf(globalCore uint32) int {
	if globalCore >= t.totalCores {
		panic(fmt.Sprintf("coreaddr: global core %d out of range [0,%d)", globalCore, t.totalCores))
	}
	return int(t.nodeOfCore[globalCore])
}
