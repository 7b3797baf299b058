// File: backpressure/backpressure_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package backpressure

import "testing"

func TestCountersRecordWriteAndDrop(t *testing.T) {
	var c Counters
	c.RecordWrite(32)
	c.RecordWrite(32)
	c.RecordDrop()
	snap := c.Snapshot()
	if snap.EventsWritten != 2 || snap.BytesWritten != 64 || snap.EventsDropped != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestCountersObserveQueueDepthKeepsMax(t *testing.T) {
	var c Counters
	c.ObserveQueueDepth(3)
	c.ObserveQueueDepth(1)
	c.ObserveQueueDepth(7)
	if got := c.Snapshot().MaxQueueDepth; got != 7 {
		t.Fatalf("expected max depth 7, got %d", got)
	}
}

func TestAverageSwapDurationNs(t *testing.T) {
	var c Counters
	c.RecordSwap(100)
	c.RecordSwap(300)
	snap := c.Snapshot()
	if snap.RingSwaps != 2 {
		t.Fatalf("expected 2 swaps, got %d", snap.RingSwaps)
	}
	if got := snap.AverageSwapDurationNs(); got != 200 {
		t.Fatalf("expected average 200, got %d", got)
	}
}

func TestAverageSwapDurationNsZeroSwaps(t *testing.T) {
	var s Snapshot
	if got := s.AverageSwapDurationNs(); got != 0 {
		t.Fatalf("expected 0 with no swaps, got %d", got)
	}
}
