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

// I6: on success, for each selected node the selected core bits are
// exactly [0, core_cnt[i]) of that node.
func TestFirstCoresPickLocality(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4, 4})
	avail := bitset.New(2)
	avail.SetRange(0, 2)

	var coreBitmap *bitset.BitSet
	result, err := FirstCoresPick(table, avail, CoreCntRequest{2, 3, 0}, allFreeMask(int(table.TotalCores())), &coreBitmap)
	require.NoError(t, err)

	assert.True(t, result.Test(0))
	assert.True(t, result.Test(1))

	assert.True(t, coreBitmap.Test(0))
	assert.True(t, coreBitmap.Test(1))
	assert.False(t, coreBitmap.Test(2))
	assert.False(t, coreBitmap.Test(3))

	assert.True(t, coreBitmap.Test(4))
	assert.True(t, coreBitmap.Test(5))
	assert.True(t, coreBitmap.Test(6))
	assert.False(t, coreBitmap.Test(7))
}

func TestFirstCoresPickSkipsNodeThatCannotSupplyPrefix(t *testing.T) {
	// Node 0's first core is already taken (excluded), so it cannot
	// supply its literal first-2-cores quota even though it has
	// enough total free cores; the request must fail rather than
	// substitute a different pair of cores.
	table := coreaddr.NewTable([]uint16{4})
	avail := bitset.New(1)
	avail.Set(0)

	specialized := allFreeMask(int(table.TotalCores()))
	// Exclude global core 0 by clearing its "free" bit in the mask
	// the inverted-polarity contract expects.
	specialized.Clear(0)

	var coreBitmap *bitset.BitSet
	_, err := FirstCoresPick(table, avail, CoreCntRequest{2, 0}, specialized, &coreBitmap)
	require.Error(t, err)
	assert.True(t, errors.IsUnsatisfiable(err))
}

func TestFirstCoresPickEmptyCoreCntRejected(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	avail := bitset.New(1)
	avail.Set(0)

	var coreBitmap *bitset.BitSet
	_, err := FirstCoresPick(table, avail, nil, nil, &coreBitmap)
	assert.True(t, errors.IsValidationError(err))
}

func TestFirstCoresPickEmptyAvailUnsatisfiable(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	avail := bitset.New(1) // no bits set

	var coreBitmap *bitset.BitSet
	_, err := FirstCoresPick(table, avail, CoreCntRequest{2, 0}, allFreeMask(int(table.TotalCores())), &coreBitmap)
	require.Error(t, err)
	assert.True(t, errors.IsUnsatisfiable(err))
}

func TestGetAvailCoreInNode(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	excluded := bitset.New(4)
	excluded.Set(0)
	excluded.Set(1)

	avail := getAvailCoreInNode(table, excluded, 0, 2)
	assert.Equal(t, 2, avail)

	avail = getAvailCoreInNode(table, excluded, 0, 3)
	assert.Equal(t, 0, avail)
	assert.True(t, excluded.IsZero(), "insufficient node must have every exclusion bit cleared")
}

func TestGetAvailCoreInNodeNilExcluded(t *testing.T) {
	table := coreaddr.NewTable([]uint16{4})
	assert.Equal(t, 4, getAvailCoreInNode(table, nil, 0, 4))
}
