// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"sort"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/errors"
)

// JobFitsIntoCores reports whether job's global-core projection has
// an empty intersection with rowBitmap, i.e. whether job can be
// added to a row currently occupying rowBitmap without a conflict.
func JobFitsIntoCores(job *JobResources, table *coreaddr.Table, rowBitmap *bitset.BitSet) bool {
	projection := job.ProjectToGlobal(table)
	return !projection.Intersects(rowBitmap)
}

// AddJobToRow appends job to row's list and ORs its global-core
// projection into row.RowBitmap. The precondition
// JobFitsIntoCores(job, table, row.RowBitmap) must already hold; this
// is the caller's responsibility, not re-validated here, matching the
// source's callback contract.
func AddJobToRow(job *JobResources, table *coreaddr.Table, row *PartitionRow) {
	row.JobList = append(row.JobList, job)
	row.RowBitmap.Or(job.ProjectToGlobal(table))
}

// RemoveJobFromCores clears, for each global core job occupies, the
// corresponding bit in rowBitmap. Safe even when other jobs remain
// in the row: per-job core ownership within a row is disjoint by
// invariant I1, so clearing job's bits never touches a bit another
// job in the row still needs.
func RemoveJobFromCores(job *JobResources, table *coreaddr.Table, rowBitmap *bitset.BitSet) {
	rowBitmap.AndNot(job.ProjectToGlobal(table))
}

// SortPartRows stable-sorts rows by descending RowBitmap popcount so
// the densest rows come first; ties keep their existing relative
// order (stable sort over the original row index).
func SortPartRows(p *PartitionState) {
	sort.SliceStable(p.Rows, func(i, j int) bool {
		return p.Rows[i].RowBitmap.PopCount() > p.Rows[j].RowBitmap.PopCount()
	})
}

// DupRowData deep-copies a row slice, including cloned row bitmaps,
// without touching the referenced job records. The returned rows
// share JobResources pointers with the original but own independent
// RowBitmap/FirstRowBitmap bitsets and JobList backing arrays.
func DupRowData(rows []*PartitionRow) []*PartitionRow {
	out := make([]*PartitionRow, len(rows))
	for i, row := range rows {
		bm := row.RowBitmap.Copy()
		out[i] = &PartitionRow{
			JobList:        append([]*JobResources(nil), row.JobList...),
			RowBitmap:      bm,
			FirstRowBitmap: bm,
		}
	}
	return out
}

// DestroyRowData releases a snapshot produced by DupRowData. Go's
// garbage collector reclaims the bitsets once unreferenced; this
// exists as the single named point of ownership transfer that
// RowPacker relies on, mirroring the source's explicit free call so
// that a snapshot is either installed or destroyed on every path,
// never both.
func DestroyRowData(rows []*PartitionRow) {
	for _, row := range rows {
		row.JobList = nil
		row.RowBitmap = nil
		row.FirstRowBitmap = nil
	}
}

// rebuildRowBitmap clears row.RowBitmap and ORs every job's
// projection back in. Used when a full rebuild (rather than an
// incremental removal) is required.
func rebuildRowBitmap(row *PartitionRow, table *coreaddr.Table) {
	row.RowBitmap.ClearAll()
	for _, job := range row.JobList {
		row.RowBitmap.Or(job.ProjectToGlobal(table))
	}
}

// checkRowInvariant panics with an internal-invariant violation if
// row.RowBitmap disagrees with the OR of its jobs' projections (I2).
// Callers invoke this only from internal consistency checks, not on
// every mutation, since it is O(jobs-in-row).
func checkRowInvariant(row *PartitionRow, table *coreaddr.Table) {
	want := bitset.New(row.RowBitmap.Len())
	for _, job := range row.JobList {
		want.Or(job.ProjectToGlobal(table))
	}
	if !want.Equal(row.RowBitmap) {
		panic(errors.InvariantViolation("row bitmap %s disagrees with job list projection %s", row.RowBitmap.BitFmt(), want.BitFmt()))
	}
}
