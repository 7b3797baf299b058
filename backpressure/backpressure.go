// File: backpressure/backpressure.go
// Package backpressure implements the per-lane, per-thread counter set
// (C7) of spec.md §4.6. Every field is a relaxed atomic: exactly one
// thread writes each counter set, readers (metrics snapshotting, tests)
// accept slightly stale values.
//
// Grounded on control/metrics.go's registry+snapshot shape, narrowed to
// the fixed counter set spec.md names rather than a generic label map.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package backpressure

import "sync/atomic"

// Counters holds one lane's drop/throughput accounting. The zero value is
// ready to use.
type Counters struct {
	eventsWritten       atomic.Uint64
	eventsDropped       atomic.Uint64
	bytesWritten        atomic.Uint64
	ringFullCount       atomic.Uint64
	poolExhaustionCount atomic.Uint64
	allocationFailures  atomic.Uint64
	maxQueueDepth       atomic.Uint64
	ringSwaps           atomic.Uint64
	totalSwapDurationNs atomic.Uint64
}

// RecordWrite accounts for a successful event write of n bytes.
func (c *Counters) RecordWrite(n int) {
	c.eventsWritten.Add(1)
	c.bytesWritten.Add(uint64(n))
}

// RecordDrop accounts for an event that could not be written.
func (c *Counters) RecordDrop() { c.eventsDropped.Add(1) }

// RecordRingFull accounts for a write that found the active ring full,
// triggering the swap protocol.
func (c *Counters) RecordRingFull() { c.ringFullCount.Add(1) }

// RecordPoolExhaustion accounts for a swap that found no free ring and
// fell back to soft rotation.
func (c *Counters) RecordPoolExhaustion() { c.poolExhaustionCount.Add(1) }

// RecordAllocationFailure accounts for a failed allocation on the hot
// path (e.g. a detail payload that could not be captured).
func (c *Counters) RecordAllocationFailure() { c.allocationFailures.Add(1) }

// RecordSwap accounts for a completed ring swap of the given duration.
func (c *Counters) RecordSwap(durationNs uint64) {
	c.ringSwaps.Add(1)
	c.totalSwapDurationNs.Add(durationNs)
}

// ObserveQueueDepth updates the high-water mark for submit queue depth.
func (c *Counters) ObserveQueueDepth(depth uint64) {
	for {
		cur := c.maxQueueDepth.Load()
		if depth <= cur {
			return
		}
		if c.maxQueueDepth.CompareAndSwap(cur, depth) {
			return
		}
	}
}

// Snapshot is an immutable point-in-time read of Counters, safe to copy
// and hand to a metrics aggregator.
type Snapshot struct {
	EventsWritten       uint64
	EventsDropped       uint64
	BytesWritten        uint64
	RingFullCount       uint64
	PoolExhaustionCount uint64
	AllocationFailures  uint64
	MaxQueueDepth       uint64
	RingSwaps           uint64
	TotalSwapDurationNs uint64
}

// Snapshot reads all counters into an immutable struct.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		EventsWritten:       c.eventsWritten.Load(),
		EventsDropped:       c.eventsDropped.Load(),
		BytesWritten:        c.bytesWritten.Load(),
		RingFullCount:       c.ringFullCount.Load(),
		PoolExhaustionCount: c.poolExhaustionCount.Load(),
		AllocationFailures:  c.allocationFailures.Load(),
		MaxQueueDepth:       c.maxQueueDepth.Load(),
		RingSwaps:           c.ringSwaps.Load(),
		TotalSwapDurationNs: c.totalSwapDurationNs.Load(),
	}
}

// AverageSwapDurationNs returns TotalSwapDurationNs / RingSwaps, or 0 if
// no swaps have occurred yet.
func (s Snapshot) AverageSwapDurationNs() uint64 {
	if s.RingSwaps == 0 {
		return 0
	}
	return s.TotalSwapDurationNs / s.RingSwaps
}
