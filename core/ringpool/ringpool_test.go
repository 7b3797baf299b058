// File: core/ringpool/ringpool_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ringpool

import (
	"testing"

	"github.com/momentics/ada-trace/wire"
)

func TestIndexPoolBasicWriteAndDrain(t *testing.T) {
	p := NewIndexPool(3)
	if p.K() != 3 {
		t.Fatalf("expected K=3, got %d", p.K())
	}
	e := wire.IndexEvent{TimestampNs: 1, DetailSeq: wire.NoDetail}
	if !p.WriteIndex(&e) {
		t.Fatalf("write into fresh active ring should succeed")
	}
	if _, pending := p.TakeSubmitted(); pending {
		t.Fatalf("no ring should be submitted yet")
	}
}

func TestIndexPoolRotatesOnExhaustion(t *testing.T) {
	p := NewIndexPool(2)
	active := p.ActiveIndex()
	for i := 0; i < ring_IndexRingSlotsPlusOne(); i++ {
		e := wire.IndexEvent{TimestampNs: uint64(i), DetailSeq: wire.NoDetail}
		p.WriteIndex(&e)
	}
	if p.ActiveIndex() == active {
		t.Fatalf("expected active ring to rotate after exhaustion")
	}
	idx, ok := p.TakeSubmitted()
	if !ok {
		t.Fatalf("expected exhausted ring queued for drain")
	}
	if idx != active {
		t.Fatalf("expected submitted ring to be the original active ring, got %d want %d", idx, active)
	}
}

func TestIndexPoolSoftRotateWhenNoFreeRings(t *testing.T) {
	p := NewIndexPool(1) // single ring: no free ring ever available
	for i := 0; i < ring_IndexRingSlotsPlusOne(); i++ {
		e := wire.IndexEvent{TimestampNs: uint64(i), DetailSeq: wire.NoDetail}
		p.WriteIndex(&e)
	}
	if p.ExhaustionCount() == 0 {
		t.Fatalf("expected pool exhaustion to be recorded")
	}
	if p.SoftRotateCount() == 0 {
		t.Fatalf("expected a soft rotate to have occurred")
	}
}

func TestDetailPoolPreRollElection(t *testing.T) {
	p := NewDetailPool(2)
	if p.PreRollElected() {
		t.Fatalf("pre-roll should start unelected")
	}
	p.MarkPreRollElected()
	if !p.PreRollElected() {
		t.Fatalf("expected pre-roll election to stick")
	}
	p.ResetPreRoll()
	if p.PreRollElected() {
		t.Fatalf("expected reset to clear election")
	}
}

func TestReleaseReturnsRingToFreeQueue(t *testing.T) {
	p := NewIndexPool(2)
	active := p.ActiveIndex()
	for i := 0; i < ring_IndexRingSlotsPlusOne(); i++ {
		e := wire.IndexEvent{TimestampNs: uint64(i), DetailSeq: wire.NoDetail}
		p.WriteIndex(&e)
	}
	idx, ok := p.TakeSubmitted()
	if !ok {
		t.Fatalf("expected a submitted ring")
	}
	p.Release(idx)
	if _, onFree := p.free.Dequeue(); !onFree {
		t.Fatalf("expected released ring back on free queue")
	}
	_ = active
}

func TestIndexPoolReclaimsFromSubmitQueueOnExhaustion(t *testing.T) {
	p := NewIndexPool(2)
	first := p.ActiveIndex()

	fill := func() {
		for i := 0; i < ring_IndexRingSlotsPlusOne(); i++ {
			e := wire.IndexEvent{TimestampNs: uint64(i), DetailSeq: wire.NoDetail}
			p.WriteIndex(&e)
		}
	}

	// First exhaustion: rotates onto the one free ring, leaving the free
	// queue empty and the original ring queued for drain.
	fill()
	second := p.ActiveIndex()
	if second == first {
		t.Fatalf("expected rotation onto the free ring")
	}

	// Second exhaustion: no free ring remains, so the pool must reclaim
	// the oldest submitted ring (first) rather than soft-rotating.
	fill()
	if p.ExhaustionCount() != 0 {
		t.Fatalf("expected reclaim-from-submit to avoid counting as exhaustion, got %d", p.ExhaustionCount())
	}
	if p.SoftRotateCount() != 0 {
		t.Fatalf("expected reclaim-from-submit to avoid a soft rotate, got %d", p.SoftRotateCount())
	}
	if got := p.ActiveIndex(); got != first {
		t.Fatalf("expected reclaimed ring %d to become active, got %d", first, got)
	}
	idx, ok := p.TakeSubmitted()
	if !ok || idx != second {
		t.Fatalf("expected the second ring (%d) queued for drain, got %d ok=%v", second, idx, ok)
	}
	if _, pending := p.TakeSubmitted(); pending {
		t.Fatalf("expected only one ring queued for drain")
	}
}

// ring_IndexRingSlotsPlusOne mirrors core/ring.IndexRingSlots+1 as a
// literal, one more write than a single index ring can hold.
func ring_IndexRingSlotsPlusOne() int { return 1<<16 + 1 }
