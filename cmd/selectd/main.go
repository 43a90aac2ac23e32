// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command selectd is a diagnostic HTTP+WebSocket server sitting
// alongside a node-selection core: it exposes each partition's
// row-packed state over HTTP and streams change events over a
// WebSocket feed, without itself taking part in any scheduling
// decision. It is the "external collaborator" SPEC_FULL.md calls out
// as living outside the core's own scope, the way the teacher keeps
// its REST transport alongside (not inside) its client logic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hpcsched/cons-res-select/coreaddr"
	"github.com/hpcsched/cons-res-select/pkg/config"
	"github.com/hpcsched/cons-res-select/pkg/logging"
	"github.com/hpcsched/cons-res-select/pkg/metrics"
	"github.com/hpcsched/cons-res-select/pkg/streaming"
	"github.com/hpcsched/cons-res-select/pkg/watch"
	"github.com/hpcsched/cons-res-select/selectcore"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":8080", "HTTP listen address")
	flag.Parse()

	cfg := config.NewDefault()
	cfg.Load()

	logger := logging.NewLogger(logging.DefaultConfig())

	registry := newPartitionRegistry()
	registry.seedDemoPartition()

	poller := watch.NewPoller(registry.snapshot).WithPollInterval(2 * time.Second)
	wsServer := streaming.NewWebSocketServer(poller)

	router := mux.NewRouter()
	router.HandleFunc("/partitions", registry.handleList).Methods(http.MethodGet)
	router.HandleFunc("/partitions/{name}", registry.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/partitions/{name}/rows", registry.handleRows).Methods(http.MethodGet)
	router.HandleFunc("/ws", wsServer.HandleWebSocket)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("selectd listening", "addr", addr, "scratch_pool_size", cfg.ScratchPoolSize)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("selectd listen error", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("selectd shutdown error", "error", err.Error())
	}
}

// partitionRegistry is the in-memory map of named partitions this
// diagnostic server exposes. Production deployments would populate it
// from whatever component owns the real scheduling state; here it
// holds whatever selectcore.Engine instances the process was started
// with.
type partitionRegistry struct {
	mu         sync.RWMutex
	engines    map[string]*selectcore.Engine
	collectors map[string]metrics.Collector
	titleCaser cases.Caser
}

func newPartitionRegistry() *partitionRegistry {
	return &partitionRegistry{
		engines:    make(map[string]*selectcore.Engine),
		collectors: make(map[string]metrics.Collector),
		titleCaser: cases.Title(language.English),
	}
}

// seedDemoPartition gives the server something to show on first
// request; a real deployment would call Register from whatever code
// owns the cluster's actual partitions instead.
func (r *partitionRegistry) seedDemoPartition() {
	r.Register("demo partition", demoTable(), 3)
}

// Register installs a fresh partition built over table, available
// for HTTP/WS inspection under name.
func (r *partitionRegistry) Register(name string, table *coreaddr.Table, numRows int) {
	collector := metrics.NewInMemoryCollector()
	engine := selectcore.NewEngine(table, numRows, selectcore.WithName(name), selectcore.WithMetrics(collector))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = engine
	r.collectors[name] = collector
}

// demoTable is the node inventory the seeded demo partition runs
// over: four 2-core nodes, the inventory cmd/cons-res-sim uses for its
// S3 and S6 scenarios.
func demoTable() *coreaddr.Table {
	return coreaddr.NewTable([]uint16{2, 2, 2, 2})
}

func (r *partitionRegistry) snapshot(ctx context.Context) (map[string]watch.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]watch.Snapshot, len(r.engines))
	for name, engine := range r.engines {
		state := engine.State()

		// A multi-row (sharing-enabled) partition's genuine free-core
		// count depends on a scheduling policy this diagnostic surface
		// has no opinion on; densest-row occupancy is reported instead
		// as the conservative figure.
		freeCores := 0
		if len(state.Rows) > 0 {
			densest := state.Rows[0].RowBitmap
			freeCores = densest.Len() - densest.PopCount()
		}

		out[name] = watch.Snapshot{
			NumRows:   state.NumRows(),
			TotalJobs: state.TotalJobs(),
			FreeCores: freeCores,
		}
	}
	return out, nil
}

func (r *partitionRegistry) handleList(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, r.titleCaser.String(name))
	}
	r.mu.RUnlock()

	writeJSON(w, map[string]interface{}{"partitions": names})
}

func (r *partitionRegistry) handleGet(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]

	r.mu.RLock()
	engine, ok := r.engines[name]
	r.mu.RUnlock()
	if !ok {
		http.NotFound(w, req)
		return
	}

	state := engine.State()
	writeJSON(w, map[string]interface{}{
		"partition":  r.titleCaser.String(name),
		"num_rows":   state.NumRows(),
		"total_jobs": state.TotalJobs(),
	})
}

func (r *partitionRegistry) handleRows(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]

	r.mu.RLock()
	engine, ok := r.engines[name]
	r.mu.RUnlock()
	if !ok {
		http.NotFound(w, req)
		return
	}

	state := engine.State()
	rows := make([]map[string]interface{}, len(state.Rows))
	for i, row := range state.Rows {
		rows[i] = map[string]interface{}{
			"row":    i,
			"jobs":   row.NumJobs(),
			"bitmap": row.RowBitmap.BitFmt(),
			"popcnt": row.RowBitmap.PopCount(),
		}
	}
	writeJSON(w, map[string]interface{}{"partition": r.titleCaser.String(name), "rows": rows})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "selectd: encode response: %v\n", err)
	}
}
