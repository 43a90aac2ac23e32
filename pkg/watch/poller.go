// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package watch provides polling-based change notification over
// partition state, for diagnostic consumers (cmd/selectd's websocket
// hub) that want to react to repacks without hooking into the row
// packer directly.
package watch

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is the default interval between snapshot polls.
const DefaultPollInterval = 5 * time.Second

// Snapshot is a lightweight, comparable summary of one partition's
// row-packed state, cheap enough to take on every poll tick without
// copying full bitmaps.
type Snapshot struct {
	NumRows   int
	TotalJobs int
	FreeCores int
}

// Event reports a partition snapshot appearing for the first time or
// changing since the previous poll.
type Event struct {
	EventType     string // "partition_new" or "partition_changed"
	Partition     string
	PreviousState Snapshot
	NewState      Snapshot
	EventTime     time.Time
}

// SnapshotFunc returns the current snapshot for every partition the
// caller wants watched, keyed by partition name.
type SnapshotFunc func(ctx context.Context) (map[string]Snapshot, error)

// Poller implements partition-state change notification through
// polling, for deployments where selectcore runs embedded and has no
// push-based event source of its own.
type Poller struct {
	snapshotFunc SnapshotFunc
	pollInterval time.Duration
	bufferSize   int
	mu           sync.RWMutex
	states       map[string]Snapshot
}

// NewPoller creates a Poller that calls fn on every tick.
func NewPoller(fn SnapshotFunc) *Poller {
	return &Poller{
		snapshotFunc: fn,
		pollInterval: DefaultPollInterval,
		bufferSize:   100,
		states:       make(map[string]Snapshot),
	}
}

// WithPollInterval sets a custom poll interval.
func (p *Poller) WithPollInterval(interval time.Duration) *Poller {
	p.pollInterval = interval
	return p
}

// WithBufferSize sets a custom buffer size for the event channel.
func (p *Poller) WithBufferSize(size int) *Poller {
	p.bufferSize = size
	return p
}

// Watch starts polling and returns a channel of change events. The
// channel closes when ctx is cancelled.
func (p *Poller) Watch(ctx context.Context) (<-chan Event, error) {
	eventChan := make(chan Event, p.bufferSize)
	go p.pollLoop(ctx, eventChan)
	return eventChan, nil
}

func (p *Poller) pollLoop(ctx context.Context, eventChan chan<- Event) {
	defer close(eventChan)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.performPoll(ctx, eventChan, true)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.performPoll(ctx, eventChan, false)
		}
	}
}

func (p *Poller) performPoll(ctx context.Context, eventChan chan<- Event, isInitial bool) {
	current, err := p.snapshotFunc(ctx)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for name, snap := range current {
		previous, exists := p.states[name]
		p.states[name] = snap

		if !exists {
			if !isInitial {
				eventChan <- Event{
					EventType: "partition_new",
					Partition: name,
					NewState:  snap,
					EventTime: time.Now(),
				}
			}
			continue
		}
		if previous != snap {
			eventChan <- Event{
				EventType:     "partition_changed",
				Partition:     name,
				PreviousState: previous,
				NewState:      snap,
				EventTime:     time.Now(),
			}
		}
	}
}
