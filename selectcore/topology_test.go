// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/errors"
)

func twoLeafTopology(numNodes int) *Topology {
	leafA := bitset.New(numNodes)
	leafA.Set(0)
	leafA.Set(1)

	leafB := bitset.New(numNodes)
	leafB.Set(2)
	leafB.Set(3)

	root := bitset.New(numNodes)
	root.SetRange(0, numNodes)

	return &Topology{Switches: []*Switch{
		{Name: "leaf-a", Level: 0, NodeBitmap: leafA},
		{Name: "leaf-b", Level: 0, NodeBitmap: leafB},
		{Name: "root", Level: 1, NodeBitmap: root},
	}}
}

// S6: best-fit must pick a single sufficient leaf, never a
// cross-leaf pair.
func TestTopologyPickNeverCrossesLeaves(t *testing.T) {
	table := coreaddr.NewTable([]uint16{2, 2, 2, 2})
	topology := twoLeafTopology(4)

	avail := bitset.New(4)
	avail.SetRange(0, 4)

	var coreBitmap *bitset.BitSet
	result, err := TopologyPick(table, topology, avail, 2, nil, nil, &coreBitmap)
	require.NoError(t, err)

	assert.Equal(t, 2, result.PopCount())

	leftLeaf := result.Test(0) && result.Test(1) && !result.Test(2) && !result.Test(3)
	rightLeaf := result.Test(2) && result.Test(3) && !result.Test(0) && !result.Test(1)
	assert.True(t, leftLeaf || rightLeaf, "result must be confined to a single leaf: got %s", result.BitFmt())
}

func TestTopologyPickInsufficientAvailNodes(t *testing.T) {
	table := coreaddr.NewTable([]uint16{2, 2, 2, 2})
	topology := twoLeafTopology(4)

	avail := bitset.New(4)
	avail.Set(0)

	var coreBitmap *bitset.BitSet
	_, err := TopologyPick(table, topology, avail, 2, nil, nil, &coreBitmap)
	require.Error(t, err)
	assert.True(t, errors.IsUnsatisfiable(err))
}

func TestTopologyPickFallsBackToRootSwitch(t *testing.T) {
	table := coreaddr.NewTable([]uint16{2, 2, 2, 2})
	topology := twoLeafTopology(4)

	avail := bitset.New(4)
	avail.SetRange(0, 4)

	var coreBitmap *bitset.BitSet
	// Each leaf only has 2 nodes; asking for 3 spans both leaves, and
	// only the root (level 1) can supply them, so the best-fit switch
	// choice must be the root and placement must still succeed.
	result, err := TopologyPick(table, topology, avail, 3, nil, nil, &coreBitmap)
	require.NoError(t, err)
	assert.Equal(t, 3, result.PopCount())
}

func TestTopologyPickWithPartialCores(t *testing.T) {
	table := coreaddr.NewTable([]uint16{2, 2, 2, 2})
	topology := twoLeafTopology(4)

	avail := bitset.New(4)
	avail.SetRange(0, 4)

	var coreBitmap *bitset.BitSet
	result, err := TopologyPick(table, topology, avail, 2, CoreCntRequest{2}, allFreeMask(int(table.TotalCores())), &coreBitmap)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PopCount())
	assert.Equal(t, 2, coreBitmap.PopCount())
}

// A per-node CoreCntRequest like {4, 2} must gate core selection on
// the minimum across the array (2), not the first element (4):
// node 1 only has 2 cores, and the first-element gate would wrongly
// skip it at the core-selection phase after descent already accepted
// it.
func TestTopologyPickPerNodeCoreCountUsesMinAcrossRequest(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4, 2})

	root := bitset.New(2)
	root.SetRange(0, 2)
	topology := &Topology{Switches: []*Switch{
		{Name: "root", Level: 0, NodeBitmap: root},
	}}

	avail := bitset.New(2)
	avail.SetRange(0, 2)

	var coreBitmap *bitset.BitSet
	result, err := TopologyPick(table, topology, avail, 2, CoreCntRequest{4, 2}, allFreeMask(int(table.TotalCores())), &coreBitmap)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PopCount())
	assert.Equal(t, 6, coreBitmap.PopCount())
}

func TestIsSuperset(t *testing.T) {
	superset := bitset.New(4)
	superset.SetRange(0, 4)

	subset := bitset.New(4)
	subset.Set(1)
	subset.Set(2)

	assert.True(t, isSuperset(superset, subset))
	assert.False(t, isSuperset(subset, superset))
}

func TestMaxInt(t *testing.T) {
	assert.Equal(t, 5, maxInt(5, 3))
	assert.Equal(t, 5, maxInt(3, 5))
}
