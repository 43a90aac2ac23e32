// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerEmitsNewOnSubsequentTick(t *testing.T) {
	var mu sync.Mutex
	tick := 0

	fn := func(ctx context.Context) (map[string]Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()
		tick++
		if tick == 1 {
			return map[string]Snapshot{}, nil
		}
		return map[string]Snapshot{"debug": {NumRows: 1, TotalJobs: 1, FreeCores: 4}}, nil
	}

	poller := NewPoller(fn).WithPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	events, err := poller.Watch(ctx)
	require.NoError(t, err)

	var got *Event
	for ev := range events {
		e := ev
		if e.EventType == "partition_new" {
			got = &e
			break
		}
	}

	require.NotNil(t, got)
	assert.Equal(t, "debug", got.Partition)
	assert.Equal(t, 1, got.NewState.NumRows)
}

func TestPollerEmitsChangedOnStateDrift(t *testing.T) {
	var mu sync.Mutex
	tick := 0

	fn := func(ctx context.Context) (map[string]Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()
		tick++
		free := 4
		if tick > 1 {
			free = 2
		}
		return map[string]Snapshot{"debug": {NumRows: 1, TotalJobs: 1, FreeCores: free}}, nil
	}

	poller := NewPoller(fn).WithPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	events, err := poller.Watch(ctx)
	require.NoError(t, err)

	var got *Event
	for ev := range events {
		e := ev
		if e.EventType == "partition_changed" {
			got = &e
			break
		}
	}

	require.NotNil(t, got)
	assert.Equal(t, 4, got.PreviousState.FreeCores)
	assert.Equal(t, 2, got.NewState.FreeCores)
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	fn := func(ctx context.Context) (map[string]Snapshot, error) {
		return map[string]Snapshot{}, nil
	}

	poller := NewPoller(fn).WithPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := poller.Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("poller did not close event channel after cancel")
	}
}
