// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
)

func job(table *coreaddr.Table, node int, cores ...int) *JobResources {
	nodeBitmap := bitset.New(table.NumNodes())
	nodeBitmap.Set(node)

	coreBitmap := bitset.New(int(table.CoreCount(node)))
	for _, c := range cores {
		coreBitmap.Set(c)
	}

	return &JobResources{
		NodeBitmap: nodeBitmap,
		CoreBitmap: coreBitmap,
		NCPUs:      uint32(len(cores)),
	}
}

func TestJobFitsIntoCores(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	rowBitmap := bitset.New(4)
	rowBitmap.Set(0)

	disjoint := job(table, 0, 1, 2)
	assert.True(t, JobFitsIntoCores(disjoint, table, rowBitmap))

	overlapping := job(table, 0, 0, 1)
	assert.False(t, JobFitsIntoCores(overlapping, table, rowBitmap))
}

func TestAddJobToRow(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	row := newRow(4)

	j := job(table, 0, 0, 1)
	AddJobToRow(j, table, row)

	assert.Equal(t, 1, row.NumJobs())
	assert.True(t, row.RowBitmap.Test(0))
	assert.True(t, row.RowBitmap.Test(1))
	assert.False(t, row.RowBitmap.Test(2))
}

func TestRemoveJobFromCores(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	rowBitmap := bitset.New(4)
	rowBitmap.SetRange(0, 4)

	j := job(table, 0, 0, 1)
	RemoveJobFromCores(j, table, rowBitmap)

	assert.False(t, rowBitmap.Test(0))
	assert.False(t, rowBitmap.Test(1))
	assert.True(t, rowBitmap.Test(2))
	assert.True(t, rowBitmap.Test(3))
}

func TestSortPartRowsDescendingPopCount(t *testing.T) {
	p := &PartitionState{Rows: []*PartitionRow{
		{RowBitmap: func() *bitset.BitSet { b := bitset.New(4); b.Set(0); return b }()},
		{RowBitmap: func() *bitset.BitSet { b := bitset.New(4); b.SetRange(0, 3); return b }()},
		{RowBitmap: bitset.New(4)},
	}}

	SortPartRows(p)

	assert.Equal(t, 3, p.Rows[0].RowBitmap.PopCount())
	assert.Equal(t, 1, p.Rows[1].RowBitmap.PopCount())
	assert.Equal(t, 0, p.Rows[2].RowBitmap.PopCount())
}

func TestDupAndDestroyRowData(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	row := newRow(4)
	j := job(table, 0, 0)
	AddJobToRow(j, table, row)

	dup := DupRowData([]*PartitionRow{row})
	require.Len(t, dup, 1)
	assert.True(t, dup[0].RowBitmap.Equal(row.RowBitmap))
	assert.NotSame(t, dup[0].RowBitmap, row.RowBitmap)
	assert.Same(t, dup[0].JobList[0], row.JobList[0])

	row.RowBitmap.Clear(0)
	assert.True(t, dup[0].RowBitmap.Test(0), "dup must not alias the original bitmap")

	DestroyRowData(dup)
	assert.Nil(t, dup[0].JobList)
	assert.Nil(t, dup[0].RowBitmap)
}

func TestCheckRowInvariantPanicsOnMismatch(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	row := newRow(4)
	j := job(table, 0, 0)
	row.JobList = append(row.JobList, j)
	// RowBitmap deliberately left empty, disagreeing with the job list.

	assert.Panics(t, func() { checkRowInvariant(row, table) })
}

func TestCheckRowInvariantPassesWhenConsistent(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	row := newRow(4)
	j := job(table, 0, 0, 1)
	AddJobToRow(j, table, row)

	assert.NotPanics(t, func() { checkRowInvariant(row, table) })
}
