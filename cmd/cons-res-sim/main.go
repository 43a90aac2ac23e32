// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command cons-res-sim replays the worked scenarios from the
// node-selection core's specification (S1-S6: row packing and each of
// the three reservation pickers) against an in-process Engine and
// prints the resulting bitmaps, the way a fixture-driven smoke test
// would, but as a standalone CLI for manual exploration.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/logging"
	"github.com/hpcsched/cons-res-select/pkg/metrics"
	"github.com/hpcsched/cons-res-select/selectcore"
)

func main() {
	var scenario string
	flag.StringVar(&scenario, "scenario", "all", "scenario to run: s1, s2, s3, s4, s5, s6, or all")
	flag.Parse()

	scenarios := map[string]func(){
		"s1": scenarioS1,
		"s2": scenarioS2,
		"s3": scenarioS3,
		"s4": scenarioS4,
		"s5": scenarioS5,
		"s6": scenarioS6,
	}

	if scenario == "all" {
		for _, name := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
			fmt.Printf("=== %s ===\n", name)
			scenarios[name]()
			fmt.Println()
		}
		return
	}

	run, ok := scenarios[scenario]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", scenario)
		os.Exit(1)
	}
	run()
}

// fourNodeTable builds the [2,2,2,4] node inventory S1, S2, S4 and S5
// share; S3 and S6 use four 2-core nodes instead.
func fourNodeTable() *coreaddr.Table {
	return coreaddr.NewTable([]uint16{2, 2, 2, 4})
}

// buildJob constructs a job occupying the given global core indices,
// restricted to nodeBitmap, by projecting each global index back into
// the job's own contiguous core space (the inverse of
// JobResources.ProjectToGlobal).
func buildJob(table *coreaddr.Table, nodeBitmap *bitset.BitSet, globalCores ...int) *selectcore.JobResources {
	globalSet := bitset.New(int(table.TotalCores()))
	for _, c := range globalCores {
		globalSet.Set(c)
	}

	jobCores := 0
	for node := 0; node < table.NumNodes(); node++ {
		if nodeBitmap.Test(node) {
			jobCores += int(table.CoreCount(node))
		}
	}
	coreBitmap := bitset.New(jobCores)

	jobCoreIdx := 0
	for node := 0; node < table.NumNodes(); node++ {
		if !nodeBitmap.Test(node) {
			continue
		}
		offset := int(table.CoreOffset(node))
		for local := 0; local < int(table.CoreCount(node)); local++ {
			if globalSet.Test(offset + local) {
				coreBitmap.Set(jobCoreIdx)
			}
			jobCoreIdx++
		}
	}

	return &selectcore.JobResources{
		NodeBitmap: nodeBitmap,
		CoreBitmap: coreBitmap,
		NCPUs:      uint32(len(globalCores)),
	}
}

func fourNodeJobs(table *coreaddr.Table) (j1, j2, j3, j4 *selectcore.JobResources) {
	allNodes := bitset.New(4)
	allNodes.SetRange(0, 4)
	firstThreeNodes := bitset.New(4)
	firstThreeNodes.SetRange(0, 3)
	nodeThree := bitset.New(4)
	nodeThree.Set(3)

	j1 = buildJob(table, allNodes, 0, 2, 4, 6)
	j2 = buildJob(table, firstThreeNodes, 0, 2, 4)
	j3 = buildJob(table, nodeThree, 6)
	j4 = buildJob(table, nodeThree, 7, 8, 9)
	return
}

func scenarioS1() {
	table := fourNodeTable()
	collector := metrics.NewInMemoryCollector()
	engine := selectcore.NewEngine(table, 2, selectcore.WithMetrics(collector))

	j1, j2, j3, j4 := fourNodeJobs(table)
	engine.AddJob(j1)
	engine.AddJob(j2)
	engine.AddJob(j3)
	engine.AddJob(j4)

	dumpRows(engine.State())
}

func scenarioS2() {
	table := fourNodeTable()
	engine := selectcore.NewEngine(table, 2)

	j1, j2, j3, j4 := fourNodeJobs(table)
	engine.AddJob(j1)
	engine.AddJob(j2)
	engine.AddJob(j3)
	engine.AddJob(j4)

	engine.RemoveJob(j1)

	dumpRows(engine.State())
}

func scenarioS3() {
	table := coreaddr.NewTable([]uint16{2, 2, 2, 2})
	engine := selectcore.NewEngine(table, 1)

	avail := bitset.New(4)
	avail.SetRange(0, 4)

	var coreBitmap *bitset.BitSet
	result, err := engine.Pick(avail, 2, nil, false, nil, &coreBitmap)
	report("full-node pick(node_cnt=2)", result, err)
}

func scenarioS4() {
	table := fourNodeTable()
	engine := selectcore.NewEngine(table, 1)

	avail := bitset.New(4)
	avail.SetRange(0, 4)

	specialized := bitset.New(int(table.TotalCores()))
	specialized.SetRange(0, int(table.TotalCores()))

	var coreBitmap *bitset.BitSet
	result, err := engine.Pick(avail, 3, selectcore.CoreCntRequest{6}, false, specialized, &coreBitmap)
	report("aggregate partial pick(node_cnt=3, core_cnt=[6])", result, err)
	if err == nil {
		fmt.Printf("  cores: %s\n", coreBitmap.BitFmt())
	}
}

func scenarioS5() {
	table := fourNodeTable()
	engine := selectcore.NewEngine(table, 1)

	avail := bitset.New(4)
	avail.SetRange(0, 4)

	specialized := bitset.New(int(table.TotalCores()))
	specialized.SetRange(0, int(table.TotalCores()))

	var coreBitmap *bitset.BitSet
	_, err := engine.Pick(avail, 0, selectcore.CoreCntRequest{3, 2, 0}, false, specialized, &coreBitmap)
	report("per-node list pick(core_cnt=[3,2,0])", nil, err)
}

func scenarioS6() {
	table := coreaddr.NewTable([]uint16{2, 2, 2, 2})

	leafA := bitset.New(4)
	leafA.Set(0)
	leafA.Set(1)
	leafB := bitset.New(4)
	leafB.Set(2)
	leafB.Set(3)
	root := bitset.New(4)
	root.SetRange(0, 4)

	topology := &selectcore.Topology{Switches: []*selectcore.Switch{
		{Name: "leaf-a", Level: 0, NodeBitmap: leafA},
		{Name: "leaf-b", Level: 0, NodeBitmap: leafB},
		{Name: "root", Level: 1, NodeBitmap: root},
	}}

	engine := selectcore.NewEngine(table, 1, selectcore.WithTopology(topology), selectcore.WithLogger(logging.DefaultLogger))

	avail := bitset.New(4)
	avail.SetRange(0, 4)

	var coreBitmap *bitset.BitSet
	result, err := engine.Pick(avail, 2, nil, false, nil, &coreBitmap)
	report("topology-aware pick(node_cnt=2)", result, err)
}

func dumpRows(state *selectcore.PartitionState) {
	for i, row := range state.Rows {
		fmt.Printf("row %d: jobs=%d bitmap=%s\n", i, row.NumJobs(), row.RowBitmap.BitFmt())
	}
}

func report(label string, result *bitset.BitSet, err error) {
	if err != nil {
		fmt.Printf("%s: %v\n", label, err)
		return
	}
	fmt.Printf("%s: %s\n", label, result.BitFmt())
}
