// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package scratchpool pools scratch bitsets by size, so that repeated
// callers do not re-allocate and zero the same handful of sizes over
// and over. TopologyPick does not draw from it; it allocates its
// switch node/core masks with bitset.New on every call.
package scratchpool

import (
	"sync"
	"time"

	"github.com/hpcsched/cons-res-select/bitset"
	"github.com/hpcsched/cons-res-select/pkg/logging"
)

// Pool manages a bounded set of scratch bitsets keyed by size.
type Pool struct {
	mu       sync.Mutex
	buckets  map[int]*bucket
	maxIdle  int
	logger   logging.Logger
}

type bucket struct {
	free     []*pooledBitSet
	created  int64
	acquired int64
}

type pooledBitSet struct {
	bits     *bitset.BitSet
	lastUsed time.Time
}

// New creates a scratch pool that keeps at most maxIdle bitsets idle
// per size. A maxIdle of 0 disables pooling: every Get allocates and
// every Put is discarded.
func New(maxIdle int, logger logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Pool{
		buckets: make(map[int]*bucket),
		maxIdle: maxIdle,
		logger:  logger,
	}
}

// Get returns a zeroed *bitset.BitSet of the given size, reusing a
// pooled one if available.
func (p *Pool) Get(size int) *bitset.BitSet {
	if p.maxIdle <= 0 {
		return bitset.New(size)
	}

	p.mu.Lock()
	b, exists := p.buckets[size]
	if !exists {
		b = &bucket{}
		p.buckets[size] = b
	}
	b.acquired++

	if len(b.free) > 0 {
		pb := b.free[len(b.free)-1]
		b.free = b.free[:len(b.free)-1]
		p.mu.Unlock()
		pb.bits.ClearAll()
		return pb.bits
	}
	b.created++
	p.mu.Unlock()

	return bitset.New(size)
}

// Put returns a scratch bitset to the pool for reuse. Callers must
// not touch bits after calling Put.
func (p *Pool) Put(bits *bitset.BitSet) {
	if p.maxIdle <= 0 || bits == nil {
		return
	}

	size := bits.Len()
	p.mu.Lock()
	defer p.mu.Unlock()

	b, exists := p.buckets[size]
	if !exists {
		b = &bucket{}
		p.buckets[size] = b
	}
	if len(b.free) >= p.maxIdle {
		return
	}
	b.free = append(b.free, &pooledBitSet{bits: bits, lastUsed: time.Now()})
}

// Stats reports pool usage per bitset size.
type Stats struct {
	BySize map[int]SizeStats
}

// SizeStats reports usage counters for one bitset size.
type SizeStats struct {
	Idle     int
	Created  int64
	Acquired int64
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{BySize: make(map[int]SizeStats, len(p.buckets))}
	for size, b := range p.buckets {
		stats.BySize[size] = SizeStats{
			Idle:     len(b.free),
			Created:  b.created,
			Acquired: b.acquired,
		}
	}
	return stats
}

// Clear discards every pooled bitset.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = make(map[int]*bucket)
}
