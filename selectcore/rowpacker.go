// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"sort"
)

// sortSupport pairs a job with its precomputed sort key: the global
// core index of its lowest occupied core. Packing orders jobs by
// ascending jstart so that, in the common case of block-allocated
// jobs, first-fit placement tends to keep each row's occupied range
// contiguous.
type sortSupport struct {
	job    *JobResources
	jstart uint32
}

// BuildRowBitmaps re-packs the surviving jobs of a partition into the
// minimum number of rows such that no two jobs in the same row share
// a core, falling back to the pre-call layout whenever the repack
// attempt cannot place every job. removedJob is the job that was
// just removed from the partition, if any; it is consulted only in
// the single-row fast path — in the multi-row case the caller is
// expected to have already dropped removedJob from its row's
// JobList before calling BuildRowBitmaps.
//
// BuildRowBitmaps never fails externally: worst case, it restores
// the input partition bit-for-bit (I4).
func BuildRowBitmaps(p *PartitionState, removedJob *JobResources) {
	if len(p.Rows) == 0 {
		return
	}

	// Case A: single-row partition.
	if len(p.Rows) == 1 {
		row := p.Rows[0]
		if row.NumJobs() == 0 {
			row.RowBitmap.ClearAll()
			return
		}
		if removedJob != nil {
			RemoveJobFromCores(removedJob, p.Topology, row.RowBitmap)
		} else {
			rebuildRowBitmap(row, p.Topology)
		}
		return
	}

	// Case B: multi-row partition, no jobs anywhere.
	totalJobs := p.TotalJobs()
	if totalJobs == 0 {
		for _, row := range p.Rows {
			row.RowBitmap.ClearAll()
		}
		return
	}

	// Case C: multi-row partition, repack attempt.
	orig := DupRowData(p.Rows)

	support := make([]sortSupport, 0, totalJobs)
	for _, row := range p.Rows {
		for _, job := range row.JobList {
			support = append(support, sortSupport{
				job:    job,
				jstart: job.FirstGlobalCore(p.Topology),
			})
		}
		row.JobList = nil
		row.RowBitmap.ClearAll()
	}

	// Strict weak ordering: (jstart, ncpus) ascending. The source's
	// comparator returns only {0,1} with no strictly-less branch,
	// which is not a valid comparator for a generic sort; this uses
	// proper < semantics instead.
	sort.Slice(support, func(i, j int) bool {
		a, b := support[i], support[j]
		if a.jstart != b.jstart {
			return a.jstart < b.jstart
		}
		return a.job.NCPUs < b.job.NCPUs
	})

	placed := make([]bool, len(support))
	for i, s := range support {
		for _, row := range p.Rows {
			if JobFitsIntoCores(s.job, p.Topology, row.RowBitmap) {
				AddJobToRow(s.job, p.Topology, row)
				placed[i] = true
				break
			}
		}
		SortPartRows(p)
	}

	dangling := false
	for _, ok := range placed {
		if !ok {
			dangling = true
			break
		}
	}

	if dangling {
		// The packing attempt could not improve on the existing
		// layout: restore it verbatim.
		p.Rows = orig
		for _, row := range p.Rows {
			rebuildRowBitmap(row, p.Topology)
		}
		return
	}

	DestroyRowData(orig)
}

// rowBitmapsEqual reports whether two partitions' row bitmaps are
// bit-identical in row order, used by tests asserting I4.
func rowBitmapsEqual(a, b *PartitionState) bool {
	if len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Rows {
		if !a.Rows[i].RowBitmap.Equal(b.Rows[i].RowBitmap) {
			return false
		}
	}
	return true
}
