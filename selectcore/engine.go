// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package selectcore

import (
	"time"

	"github.com/google/uuid"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/errors"
	"github.com/hpcsched/cons-res-select/pkg/logging"
	"github.com/hpcsched/cons-res-select/pkg/metrics"
)

// Engine wraps a PartitionState with the logging and metrics
// collaborators every repack and pick call reports through, the way
// the teacher's client wraps a factory-built transport with auth and
// retry collaborators.
type Engine struct {
	name      string
	state     *PartitionState
	topology  *Topology
	logger    logging.Logger
	collector metrics.Collector
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger sets the logger the Engine reports operation durations,
// infeasible requests and pick errors through. Defaults to a no-op
// logger. The Engine emits no verbose bitmap dumps.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithName attaches the partition name the Engine logs and records
// metrics under. Defaults to "default".
func WithName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// WithMetrics sets the collector repacks and picks are recorded
// against. Defaults to metrics.NoOpCollector.
func WithMetrics(collector metrics.Collector) Option {
	return func(e *Engine) { e.collector = collector }
}

// WithTopology attaches a static switch table so Pick can choose the
// topology-aware picker. Without one, Pick always falls back to the
// sequential/first-cores pickers.
func WithTopology(topology *Topology) Option {
	return func(e *Engine) { e.topology = topology }
}

// NewEngine creates an Engine over a fresh partition with numRows
// rows sized to table's core inventory.
func NewEngine(table *coreaddr.Table, numRows int, opts ...Option) *Engine {
	e := &Engine{
		name:      "default",
		state:     NewPartitionState(table, numRows),
		logger:    logging.NoOpLogger{},
		collector: metrics.NoOpCollector{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the partition state the Engine operates on, for
// callers that need direct row/bitmap access (dumps, tests).
func (e *Engine) State() *PartitionState {
	return e.state
}

// AddJob places a new job into the partition and repacks the rows to
// absorb it, recording the repack's duration. BuildRowBitmaps reports
// no outcome, so every repack is recorded as converged.
func (e *Engine) AddJob(job *JobResources) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	start := time.Now()
	opLogger := logging.LogOperation(e.logger, "add_job", "job_id", job.ID.String(), "ncpus", job.NCPUs)

	row := e.state.Rows[0]
	row.JobList = append(row.JobList, job)

	BuildRowBitmaps(e.state, nil)
	SortPartRows(e.state)

	e.collector.RecordRepack(e.name, time.Since(start), true)
	logging.LogDuration(opLogger, start, "add_job")
}

// RemoveJob removes a job from the partition and repacks the rows,
// mirroring BuildRowBitmaps's removedJob argument.
func (e *Engine) RemoveJob(job *JobResources) {
	start := time.Now()
	opLogger := logging.LogOperation(e.logger, "remove_job", "job_id", job.ID.String())

	for _, row := range e.state.Rows {
		for i, j := range row.JobList {
			if j == job {
				row.JobList = append(row.JobList[:i], row.JobList[i+1:]...)
				break
			}
		}
	}

	BuildRowBitmaps(e.state, job)
	SortPartRows(e.state)

	e.collector.RecordRepack(e.name, time.Since(start), true)
	logging.LogDuration(opLogger, start, "remove_job")
}

// Pick runs the reservation resource picker appropriate to the
// request: TopologyPick when a topology is attached, nodeCnt > 0, and
// the request is not first-cores-only; FirstCoresPick when firstCores
// is set; SequentialPick otherwise. avail and coreBitmap follow the
// picker functions' own mutation contract (see SequentialPick).
func (e *Engine) Pick(avail *bitset.BitSet, nodeCnt uint32, coreCnt CoreCntRequest, firstCores bool, specializedCores *bitset.BitSet, coreBitmap **bitset.BitSet) (*bitset.BitSet, error) {
	start := time.Now()
	mode := "sequential"
	reqLogger := logging.LogRequest(e.logger, "resv_test", e.name, "node_cnt", nodeCnt)

	var result *bitset.BitSet
	var err error

	switch {
	case firstCores:
		mode = "first_cores"
		result, err = FirstCoresPick(e.state.Topology, avail, coreCnt, specializedCores, coreBitmap)
	case e.topology != nil && len(e.topology.Switches) > 0 && nodeCnt > 0:
		mode = "topology"
		result, err = TopologyPick(e.state.Topology, e.topology, avail, nodeCnt, coreCnt, specializedCores, coreBitmap)
	default:
		result, err = SequentialPick(e.state.Topology, avail, nodeCnt, coreCnt, specializedCores, coreBitmap)
	}

	// RecordPick with satisfied=false records the unsatisfiable outcome
	// itself; errors other than Unsatisfiable are not counted as one.
	e.collector.RecordPick(mode, time.Since(start), !errors.IsUnsatisfiable(err))
	switch {
	case err == nil:
		logging.LogDuration(reqLogger, start, "resv_test:"+mode)
	case errors.IsUnsatisfiable(err):
		reqLogger.Info("reservation request infeasible", "mode", mode)
	default:
		logging.LogError(reqLogger, err, "resv_test", "mode", mode)
	}
	return result, err
}
