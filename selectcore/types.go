// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package selectcore implements the consumable-resources
// node-selection core: the bitmap-based resource model, the
// row-packing algorithm that keeps a partition's concurrently
// running jobs compacted into the fewest disjoint rows, and the
// reservation resource pickers (sequential, first-cores, and
// topology-aware) that choose nodes and cores for a future
// reservation.
package selectcore

import (
	"github.com/google/uuid"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
)

// JobResources is the (nodes, cores, cpu-count) triple recording what
// a running or pending job holds. CoreBitmap is indexed in the job's
// own contiguous core space — the concatenation of the cores of the
// nodes set in NodeBitmap, in ascending node order — not the global
// core space; use ProjectToGlobal to convert. ID is a stable
// identifier stamped by the Engine and carried through its log fields;
// metrics are not labelled by job.
type JobResources struct {
	ID         uuid.UUID
	NodeBitmap *bitset.BitSet
	CoreBitmap *bitset.BitSet
	NCPUs      uint32
}

// ProjectToGlobal returns a CoreBitmap-sized-to-total_cores bitset
// with exactly the global bits this job occupies set, given the
// node inventory the job's bits are addressed against.
func (j *JobResources) ProjectToGlobal(table *coreaddr.Table) *bitset.BitSet {
	out := bitset.New(int(table.TotalCores()))

	jobCoreIdx := 0
	for node := 0; node < table.NumNodes(); node++ {
		if !j.NodeBitmap.Test(node) {
			continue
		}
		localCores := int(table.CoreCount(node))
		offset := int(table.CoreOffset(node))
		for local := 0; local < localCores; local++ {
			if j.CoreBitmap.Test(jobCoreIdx) {
				out.Set(offset + local)
			}
			jobCoreIdx++
		}
	}

	return out
}

// FirstGlobalCore returns the lowest global core index this job
// occupies, used by the row packer to compute jstart. Panics if the
// job holds no cores at all — an internal-invariant violation since
// every job in a row must own at least one core.
func (j *JobResources) FirstGlobalCore(table *coreaddr.Table) uint32 {
	jobCoreIdx := 0
	for node := 0; node < table.NumNodes(); node++ {
		if !j.NodeBitmap.Test(node) {
			continue
		}
		localCores := int(table.CoreCount(node))
		offset := uint32(table.CoreOffset(node))
		for local := 0; local < localCores; local++ {
			if j.CoreBitmap.Test(jobCoreIdx) {
				return offset + uint32(local)
			}
			jobCoreIdx++
		}
	}
	panic("selectcore: job holds no cores")
}

// PartitionRow is one parallel layer within a partition: jobs sharing
// a row must not share a global core bit.
type PartitionRow struct {
	JobList []*JobResources

	// RowBitmap is the OR of the global-core projections of every
	// job in JobList. FirstRowBitmap is kept as an alias for O(1)
	// access by callers that only ever look at row 0; both point at
	// the same *bitset.BitSet for the lifetime of the row.
	RowBitmap      *bitset.BitSet
	FirstRowBitmap *bitset.BitSet
}

// NumJobs returns the number of jobs currently placed in the row.
func (r *PartitionRow) NumJobs() int {
	return len(r.JobList)
}

// newRow allocates an empty row sized to totalCores.
func newRow(totalCores int) *PartitionRow {
	bm := bitset.New(totalCores)
	return &PartitionRow{
		JobList:        nil,
		RowBitmap:      bm,
		FirstRowBitmap: bm,
	}
}

// PartitionState holds the ordered rows of concurrently running jobs
// for one partition. Rows are conventionally ordered densest-first
// after SortPartRows. A partition with a single row is the
// sharing-disabled case.
type PartitionState struct {
	Topology *coreaddr.Table
	Rows     []*PartitionRow
}

// NewPartitionState creates a partition with numRows empty rows over
// the given node inventory.
func NewPartitionState(topology *coreaddr.Table, numRows int) *PartitionState {
	rows := make([]*PartitionRow, numRows)
	for i := range rows {
		rows[i] = newRow(int(topology.TotalCores()))
	}
	return &PartitionState{
		Topology: topology,
		Rows:     rows,
	}
}

// NumRows returns the number of rows in the partition.
func (p *PartitionState) NumRows() int {
	return len(p.Rows)
}

// TotalJobs returns the number of jobs across every row.
func (p *PartitionState) TotalJobs() int {
	total := 0
	for _, row := range p.Rows {
		total += row.NumJobs()
	}
	return total
}

// Switch is one node in the static topology tree. Level 0 is a leaf;
// leaves partition the node set, non-leaves are supersets of their
// descendant leaves.
type Switch struct {
	Name       string
	Level      int
	NodeBitmap *bitset.BitSet
}

// Topology is the static switch table consulted by TopologyPicker. A
// nil or empty Topology means no topology-aware placement is
// available and callers fall back to SequentialPicker/FirstCoresPicker.
type Topology struct {
	Switches []*Switch
}
