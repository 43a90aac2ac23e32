// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/errors"
)

// switchState is the per-switch scratch bookkeeping the topology
// picker threads through its passes: which of the switch's nodes
// remain candidates, how many cores they carry, and how many nodes
// remain. These four fields stand in for the parallel per-switch
// scratch arrays the source frees at its fini label; here they are
// simply function-local and collected by the garbage collector once
// TopologyPick returns.
type switchState struct {
	nodes    *bitset.BitSet
	cores    *bitset.BitSet
	cpuCount int
	nodeCnt  int
}

// TopologyPick selects nodeCnt nodes (and, if coreCnt is given,
// specific cores) via a best-fit descent through topology's switch
// tree. It activates only when topology is non-empty and nodeCnt > 0;
// callers otherwise fall back to SequentialPick.
func TopologyPick(table *coreaddr.Table, topology *Topology, avail *bitset.BitSet, nodeCnt uint32, coreCnt CoreCntRequest, specializedCores *bitset.BitSet, coreBitmap **bitset.BitSet) (*bitset.BitSet, error) {
	if avail.PopCount() < int(nodeCnt) {
		return nil, errors.NewUnsatisfiableError("resv_test", "fewer available nodes than requested")
	}

	if coreCnt != nil {
		filtered := SpecCoreFilter(avail, specializedCores, table, *coreBitmap)
		*coreBitmap = filtered
	}

	remNodes := int(nodeCnt)
	remCores := 0
	coresPerNode := 1
	aggregate := false

	switch {
	case coreCnt != nil && !coreCnt.IsAggregate():
		coresPerNode = int(coreCnt[0])
		for _, c := range coreCnt {
			if c == 0 {
				break
			}
			remCores += int(c)
			if int(c) < coresPerNode {
				coresPerNode = int(c)
			}
		}
	case coreCnt != nil:
		remCores = int(coreCnt[0])
		coresPerNode = int(coreCnt[0]) / maxInt(int(nodeCnt), 1)
		aggregate = true
	default:
		if table.NumNodes() > 0 {
			coresPerNode = int(table.CoreCount(0))
		}
	}
	remCoresSave := remCores

	states := make([]*switchState, len(topology.Switches))
	for i, sw := range topology.Switches {
		nodes := sw.NodeBitmap.Copy()
		nodes.And(avail)

		cores := NodeBitmapToGlobalCores(nodes, table)
		if *coreBitmap != nil {
			cores.AndNot(*coreBitmap)
		}

		states[i] = &switchState{
			nodes:    nodes,
			cores:    cores,
			nodeCnt:  nodes.PopCount(),
			cpuCount: cores.PopCount(),
		}
	}

	if coreCnt != nil {
		pruneInsufficientNodes(table, topology, states, *coreBitmap, coresPerNode, aggregate, coreCnt)
	}

	bestFit := -1
	for j, sw := range topology.Switches {
		if states[j].nodeCnt < remNodes {
			continue
		}
		if coreCnt != nil && states[j].cpuCount < remCores {
			continue
		}
		if bestFit == -1 ||
			sw.Level < topology.Switches[bestFit].Level ||
			(sw.Level == topology.Switches[bestFit].Level && states[j].nodeCnt < states[bestFit].nodeCnt) {
			bestFit = j
		}
	}
	if bestFit == -1 {
		return nil, errors.NewUnsatisfiableError("resv_test", "no switch subtree can satisfy the topology-aware reservation")
	}

	for j, sw := range topology.Switches {
		if sw.Level != 0 || !isSuperset(states[bestFit].nodes, states[j].nodes) {
			states[j].nodeCnt = 0
		}
	}

	availNodes := bitset.New(avail.Len())
	for remNodes > 0 {
		bestLoc, bestNodes, bestSufficient := -1, 0, false

		for j := range topology.Switches {
			if states[j].nodeCnt == 0 {
				continue
			}
			var sufficient bool
			if coreCnt != nil {
				sufficient = states[j].nodeCnt >= remNodes && states[j].cpuCount >= remCores
			} else {
				sufficient = states[j].nodeCnt >= remNodes
			}

			if bestNodes == 0 ||
				(sufficient && !bestSufficient) ||
				(sufficient && states[j].nodeCnt < bestNodes) ||
				(!sufficient && !bestSufficient && states[j].nodeCnt > bestNodes) {
				bestNodes = states[j].nodeCnt
				bestLoc = j
				bestSufficient = sufficient
			}
		}
		if bestNodes == 0 {
			break
		}

		leaf := states[bestLoc]
		first := leaf.nodes.FindFirstSet()
		last := first - 1
		if first >= 0 {
			last = leaf.nodes.FindLastSet()
		}

		for i := first; i <= last; i++ {
			if !leaf.nodes.Test(i) {
				continue
			}
			leaf.nodes.Clear(i)
			leaf.nodeCnt--

			if availNodes.Test(i) {
				continue
			}

			availCoresInNode := 0
			if *coreBitmap != nil {
				offset := int(table.CoreOffset(i))
				for k := 0; k < int(table.CoreCount(i)); k++ {
					if !(*coreBitmap).Test(offset + k) {
						availCoresInNode++
					}
				}
				if availCoresInNode < coresPerNode {
					continue
				}
			}

			availNodes.Set(i)
			remCores -= availCoresInNode
			remNodes--
			if remNodes <= 0 {
				break
			}
		}
		leaf.nodeCnt = 0
	}

	if remNodes > 0 || remCores > 0 {
		return nil, errors.NewUnsatisfiableError("resv_test", "topology-aware reservation exhausted candidate leaves without satisfying the request")
	}

	if coreCnt == nil {
		return availNodes, nil
	}

	return topologySelectCores(table, availNodes, coreCnt, aggregate, coresPerNode, remCoresSave, coreBitmap)
}

func pruneInsufficientNodes(table *coreaddr.Table, topology *Topology, states []*switchState, excluded *bitset.BitSet, coresPerNode int, aggregate bool, coreCnt CoreCntRequest) {
	n := 0
	for j, sw := range topology.Switches {
		_ = sw
		first := states[j].nodes.FindFirstSet()
		last := first - 1
		if first >= 0 {
			last = states[j].nodes.FindLastSet()
		}

		for i := first; i <= last; i++ {
			if !states[j].nodes.Test(i) {
				continue
			}

			c := getAvailCoreInNode(table, excluded, i, coresPerNode)

			clear := false
			switch {
			case aggregate && c < coresPerNode:
				clear = true
			case aggregate:
				// sufficient; nothing to do
			case n < len(coreCnt) && c < int(coreCnt[n]):
				clear = true
			case n < len(coreCnt) && coreCnt[n] != 0:
				n++
			}

			if !clear {
				continue
			}
			for k := range topology.Switches {
				if states[k].nodes == nil || !states[k].nodes.Test(i) {
					continue
				}
				states[k].nodes.Clear(i)
				states[k].nodeCnt--
				states[k].cpuCount -= c
			}
		}
	}
}

func topologySelectCores(table *coreaddr.Table, availNodes *bitset.BitSet, coreCnt CoreCntRequest, aggregate bool, coresPerNode int, remCoresSave int, coreBitmap **bitset.BitSet) (*bitset.BitSet, error) {
	spAvail := bitset.New(availNodes.Len())

	excluded := *coreBitmap
	out := bitset.New(int(table.TotalCores()))
	*coreBitmap = out

	remCores := remCoresSave
	n := 0
	prevRemCores := -1

	remaining := availNodes.Copy()

	for remCores > 0 {
		inx := remaining.FindFirstSet()
		if inx < 0 && aggregate && remCores > 0 && remCores != prevRemCores {
			remaining.Or(spAvail)
			inx = remaining.FindFirstSet()
			prevRemCores = remCores
			coresPerNode = 1
		}
		if inx < 0 {
			break
		}

		remaining.Clear(inx)

		if int(table.CoreCount(inx)) < coresPerNode {
			continue
		}

		offset := int(table.CoreOffset(inx))
		availCoresInNode := 0
		for i := 0; i < int(table.CoreCount(inx)); i++ {
			if excluded == nil || !excluded.Test(offset+i) {
				availCoresInNode++
			}
		}
		if availCoresInNode < coresPerNode {
			continue
		}

		availCoresInNode = 0
		for i := 0; i < int(table.CoreCount(inx)); i++ {
			if excluded != nil && excluded.Test(offset+i) {
				continue
			}
			out.Set(offset + i)
			if excluded != nil {
				excluded.Set(offset + i)
			}
			remCores--
			availCoresInNode++

			if remCores == 0 {
				break
			}
			if aggregate && availCoresInNode >= coresPerNode {
				break
			}
			if !aggregate && n < len(coreCnt) && availCoresInNode >= int(coreCnt[n]) {
				break
			}
		}

		spAvail.Set(inx)
		n++
	}

	if remCores > 0 {
		return nil, errors.NewUnsatisfiableError("resv_test", "topology-aware reservation could not satisfy its core count after node selection")
	}

	return spAvail, nil
}

func isSuperset(superset, subset *bitset.BitSet) bool {
	tmp := subset.Copy()
	tmp.AndNot(superset)
	return tmp.IsZero()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
