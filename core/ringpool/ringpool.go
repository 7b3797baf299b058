// File: core/ringpool/ringpool.go
// Package ringpool implements the ring pool (C2) of spec.md §4.2: K
// interchangeable rings per lane, a single atomically-swapped "active"
// ring absorbing writes while the previously active ring drains, and
// submit/free queues of ring indices carrying ownership between producer
// and drain threads.
//
// Grounded on pool/slab_pool.go's queue-backed free-list allocation
// pattern, generalized from buffer objects to ring slot indices, and on
// core/concurrency/lock_free_queue.go for the bounded SPSC queue itself.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ringpool

import (
	"sync/atomic"
	"time"

	"github.com/momentics/ada-trace/backpressure"
	"github.com/momentics/ada-trace/core/concurrency"
	"github.com/momentics/ada-trace/core/ring"
	"github.com/momentics/ada-trace/wire"
)

// Kind selects the lane's wire format, determining each ring's slot size.
type Kind int

const (
	// KindIndex pools fixed-width wire.IndexEvent rings.
	KindIndex Kind = iota
	// KindDetail pools variable-width wire.DetailRecord rings.
	KindDetail
)

// Pool manages K rings of the same Kind for one lane. Exactly one ring is
// "active" at a time and receives writes from the hot path; the rest are
// queued as free (ready to become active) or submitted (full/rotated,
// awaiting drain).
//
// Swap-and-submit protocol (spec.md §4.2): the hot path calls Write; if
// the active ring is full, Pool atomically swaps in a free ring, pushes
// the exhausted ring's index onto submitQueue, and retries the write
// once. If no free ring is available the pool first reclaims the oldest
// ring queued for drain (resetting it). Only if the submit queue is empty
// too does it "soft rotate": count a pool exhaustion event, then move to
// the next ring and DropOldest there (K>1), or DropOldest on the active
// ring itself (K==1).
type Pool struct {
	kind Kind

	index      []*ring.IndexRing  // only populated for KindIndex
	detail     []*ring.DetailRing // only populated for KindDetail
	activeIdx  atomic.Uint32
	submit     *concurrency.LockFreeQueue[uint32]
	free       *concurrency.LockFreeQueue[uint32]
	k          int
	exhaustion atomic.Uint64 // pool_exhaustion_count
	softRotate atomic.Uint64 // soft rotations performed
	markedSeen atomic.Bool   // detail lane pre-roll gate (spec.md §4.3)

	// counters mirrors swap/exhaustion events into the lane's canonical
	// back-pressure counters (spec.md §4.6). Optional: nil until
	// SetCounters is called, so a standalone Pool (e.g. in tests) never
	// needs one wired up.
	counters *backpressure.Counters
}

// SetCounters wires c as the destination for this pool's swap and
// exhaustion accounting. Called once by lane.newIndexLane/newDetailLane
// right after construction.
func (p *Pool) SetCounters(c *backpressure.Counters) { p.counters = c }

// NewIndexPool allocates a K-ring pool for an index lane. Ring 0 starts
// active; rings 1..K-1 start on the free queue.
func NewIndexPool(k int) *Pool {
	p := &Pool{kind: KindIndex, k: k}
	p.index = make([]*ring.IndexRing, k)
	for i := 0; i < k; i++ {
		p.index[i] = ring.NewIndexRing()
	}
	p.initQueues()
	return p
}

// NewDetailPool allocates a K-ring pool for a detail lane.
func NewDetailPool(k int) *Pool {
	p := &Pool{kind: KindDetail, k: k}
	p.detail = make([]*ring.DetailRing, k)
	for i := 0; i < k; i++ {
		p.detail[i] = ring.NewDetailRing()
	}
	p.initQueues()
	return p
}

func (p *Pool) initQueues() {
	p.submit = concurrency.NewLockFreeQueue[uint32](p.k + 1)
	p.free = concurrency.NewLockFreeQueue[uint32](p.k + 1)
	p.activeIdx.Store(0)
	for i := 1; i < p.k; i++ {
		p.free.Enqueue(uint32(i))
	}
}

// WriteIndex writes e into the active ring, swapping in a free ring (or
// soft-rotating) on exhaustion. Only valid on a KindIndex pool.
func (p *Pool) WriteIndex(e *wire.IndexEvent) bool {
	for attempt := 0; attempt < 2; attempt++ {
		idx := p.activeIdx.Load()
		if p.index[idx].Write(e) {
			return true
		}
		if attempt == 0 {
			p.rotate(idx)
		}
	}
	return false
}

// WriteDetail writes rec into the active ring, swapping in a free ring
// (or soft-rotating) on exhaustion. Only valid on a KindDetail pool.
func (p *Pool) WriteDetail(rec *wire.DetailRecord) bool {
	for attempt := 0; attempt < 2; attempt++ {
		idx := p.activeIdx.Load()
		if p.detail[idx].Write(rec) {
			return true
		}
		if attempt == 0 {
			p.rotate(idx)
		}
	}
	return false
}

// rotate implements the swap-and-submit protocol of spec.md §4.2 for a
// ring that the hot path just found full. For a KindIndex pool the
// exhausted ring always goes to submitQueue: every index event must
// reach the writer. For a KindDetail pool, pre-roll selective persistence
// (spec.md §4.2, §4.5) applies: the exhausted window is only submitted if
// a marked event has elected it; otherwise it is recycled in place
// (discarded, returned straight to the free queue) so the detail ring
// keeps overwriting itself until something worth keeping happens.
//
// On exhaustion (no free ring available), spec.md §4.2 prefers reclaiming
// the oldest ring already queued for drain over dropping events from the
// still-active ring: the drain side will eventually fall behind the
// producer anyway, so stealing its oldest backlog entry loses less than
// truncating what is currently being written. Only once the submit queue
// is also empty does the pool fall back to a round-robin swap (K>1) or a
// local drop-in-place (K==1).
func (p *Pool) rotate(exhausted uint32) {
	start := time.Now()
	if next, ok := p.free.Dequeue(); ok {
		p.swapIn(exhausted, next, start)
		return
	}
	if reclaimed, ok := p.reclaimOldestSubmitted(); ok {
		p.swapIn(exhausted, reclaimed, start)
		return
	}
	p.softRotate.Add(1)
	p.exhaustion.Add(1)
	if p.counters != nil {
		p.counters.RecordPoolExhaustion()
	}
	if p.k > 1 {
		next := (exhausted + 1) % uint32(p.k)
		if p.activeIdx.CompareAndSwap(exhausted, next) {
			if p.kind == KindIndex {
				p.index[next].DropOldest()
			} else {
				p.detail[next].DropOldest()
			}
			return
		}
	}
	if p.kind == KindIndex {
		p.index[exhausted].DropOldest()
	} else {
		p.detail[exhausted].DropOldest()
	}
}

// reclaimOldestSubmitted pops the oldest ring already queued for drain and
// resets it for reuse, stealing drain backlog capacity instead of losing
// hot-path writes (spec.md §4.2).
func (p *Pool) reclaimOldestSubmitted() (uint32, bool) {
	idx, ok := p.submit.Dequeue()
	if !ok {
		return 0, false
	}
	if p.kind == KindIndex {
		p.index[idx].Raw().Reset()
	} else {
		p.detail[idx].Raw().Reset()
	}
	return idx, true
}

// swapIn installs next as the active ring in place of exhausted, applying
// the detail lane's pre-roll gate, and records the swap's duration.
func (p *Pool) swapIn(exhausted, next uint32, start time.Time) {
	if p.activeIdx.CompareAndSwap(exhausted, next) {
		if p.kind == KindDetail && !p.markedSeen.Load() {
			p.detail[exhausted].Raw().Reset()
			p.free.Enqueue(exhausted)
		} else {
			p.submit.Enqueue(exhausted)
			if p.kind == KindDetail {
				p.markedSeen.Store(false)
			}
		}
		if p.counters != nil {
			p.counters.RecordSwap(uint64(time.Since(start).Nanoseconds()))
			p.counters.ObserveQueueDepth(uint64(p.submit.Len()))
		}
		return
	}
	// someone else already rotated; the ring we picked up is unused, so
	// return it to the free pool.
	p.free.Enqueue(next)
}

// ForceRotate rotates the active ring out even if it is not full, through
// the same path as a full ring: an index ring is submitted for drain; a
// detail ring is submitted only if a marked event elected it, otherwise
// it is reset and returned to the free queue. Used by the drain
// scheduler's final-drain
// (spec.md §4.10 step 3: "forced swap once for each lane") so any events
// sitting in the still-active ring at shutdown time reach the writer.
func (p *Pool) ForceRotate() {
	p.rotate(p.activeIdx.Load())
}

// TakeSubmitted pops the next ring index queued for drain, or false if
// none are pending.
func (p *Pool) TakeSubmitted() (uint32, bool) { return p.submit.Dequeue() }

// Release returns a drained ring index to the free queue, making it
// available for the next rotation.
func (p *Pool) Release(idx uint32) { p.free.Enqueue(idx) }

// IndexRingAt returns the ring.IndexRing at idx, for the drain scheduler
// to read from directly. Only valid on a KindIndex pool.
func (p *Pool) IndexRingAt(idx uint32) *ring.IndexRing { return p.index[idx] }

// DetailRingAt returns the ring.DetailRing at idx. Only valid on a
// KindDetail pool.
func (p *Pool) DetailRingAt(idx uint32) *ring.DetailRing { return p.detail[idx] }

// ExhaustionCount reports how many times the pool had no free ring
// available and fell back to soft rotation (spec.md §4.2 back-pressure
// signal).
func (p *Pool) ExhaustionCount() uint64 { return p.exhaustion.Load() }

// SoftRotateCount reports how many soft rotations (drop-oldest-in-place)
// occurred. A soft rotate is only reachable once ExhaustionCount has
// incremented at least once.
func (p *Pool) SoftRotateCount() uint64 { return p.softRotate.Load() }

// MarkPreRollElected flips the detail lane's pre-roll gate: once a
// marked event is seen, the active detail window is no longer recycled
// in place and is instead queued for persistence on its next rotation
// (spec.md §4.3).
func (p *Pool) MarkPreRollElected() { p.markedSeen.Store(true) }

// PreRollElected reports whether a marked event has elected the current
// detail window for persistence.
func (p *Pool) PreRollElected() bool { return p.markedSeen.Load() }

// ResetPreRoll clears the pre-roll election gate, e.g. after the elected
// window has been drained and a new recycle-in-place window begins.
func (p *Pool) ResetPreRoll() { p.markedSeen.Store(false) }

// ActiveIndex reports the index of the ring currently receiving writes.
func (p *Pool) ActiveIndex() uint32 { return p.activeIdx.Load() }

// K reports the number of rings in the pool.
func (p *Pool) K() int { return p.k }
