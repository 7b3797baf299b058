// File: drain/scheduler.go
// Package drain implements the drain scheduler (C8) of spec.md §4.7: a
// background goroutine that round-robins every registered thread's index
// and detail lanes, draining submitted rings into per-thread trace files
// and backing off adaptively when a pass finds nothing to do.
//
// Grounded on the teacher's (now-deleted) core/concurrency/eventloop.go
// for the poll-drain-backoff loop shape, and on registry.Registry.Slots
// plus core/ringpool.Pool's submit/free queue protocol for the work it
// drains.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package drain

import (
	"time"

	"github.com/momentics/ada-trace/lane"
	"github.com/momentics/ada-trace/pool"
	"github.com/momentics/ada-trace/registry"
	"github.com/momentics/ada-trace/trace"
	"github.com/momentics/ada-trace/wire"
)

const (
	// DefaultBatchSize bounds one ReadBatch call against an index ring.
	DefaultBatchSize = 256
	// DefaultQuantum bounds how many submitted rings a single pass drains
	// per lane per thread, so one very busy thread cannot starve others
	// within a pass.
	DefaultQuantum = 4
)

// Waker unblocks an idle Scheduler.Run poll; satisfied by shm's
// eventfd/IOCP-backed wake primitive, or left nil to fall back to a
// plain sleep.
type Waker interface {
	Wait(timeout time.Duration) bool
}

// Scheduler owns the background drain loop for every thread known to a
// registry.Registry, and the per-thread trace.Writer set it feeds.
type Scheduler struct {
	registry   *registry.Registry
	sessionDir string
	writers    map[uint64]*trace.Writer

	batchSize int
	quantum   int
	waker     Waker
	back      *backoff

	pending   *PendingRingQueue
	finalizer Finalizer

	// links holds, per thread, the correlation state resolving the
	// agent's opaque link tokens (lane.Set.NextToken) into the writer's
	// real gapless idx_seq/det_seq pair (spec.md §4.9). Either side of a
	// marked call can drain first, so an entry waits here until its
	// counterpart arrives.
	links map[uint64]*linkState

	// indexBatchPool recycles the []wire.IndexEvent scratch buffer
	// drainIndexRing decodes into, so a busy drain loop doesn't allocate
	// one per ring per pass.
	indexBatchPool *pool.SyncPool[[]wire.IndexEvent]

	writeFailures uint64
}

// linkState is one thread's outstanding correlation-token bookkeeping.
type linkState struct {
	// awaitingDetail holds tokens whose index event has already been
	// written; value is that event's real idxSeq.
	awaitingDetail map[uint32]uint32
	// awaitingIndex holds tokens whose detail record has already been
	// written; value is that record's real detSeq and its file offset,
	// needed to patch DetailEventHeader.IndexSeq once the index side
	// resolves.
	awaitingIndex map[uint32]detailSide
}

type detailSide struct {
	detSeq uint32
	offset uint64
}

func newLinkState() *linkState {
	return &linkState{
		awaitingDetail: make(map[uint32]uint32),
		awaitingIndex:  make(map[uint32]detailSide),
	}
}

// Finalizer overrides how writers are finalized once final-drain has
// emptied every lane. The default (finalizeAll) runs sequentially;
// shutdown.Coordinator installs one backed by core/concurrency.Executor
// to parallelize per-thread flush+fsync+footer-rewrite across many
// thread files within the bounded shutdown window (spec.md §4.10 step 4).
type Finalizer func(writers map[uint64]*trace.Writer) []trace.Summary

// SetFinalizer installs a custom Finalizer, or nil to restore the
// sequential default.
func (s *Scheduler) SetFinalizer(f Finalizer) { s.finalizer = f }

// NewScheduler returns a Scheduler draining reg's threads into sessionDir.
func NewScheduler(reg *registry.Registry, sessionDir string) *Scheduler {
	batchSize := DefaultBatchSize
	return &Scheduler{
		registry:   reg,
		sessionDir: sessionDir,
		writers:    make(map[uint64]*trace.Writer),
		batchSize:  batchSize,
		quantum:    DefaultQuantum,
		back:       newBackoff(minBackoff, maxBackoff),
		pending:    NewPendingRingQueue(),
		links:      make(map[uint64]*linkState),
		indexBatchPool: pool.NewSyncPool(func() []wire.IndexEvent {
			return make([]wire.IndexEvent, batchSize)
		}),
	}
}

func (s *Scheduler) linkStateFor(threadID uint64) *linkState {
	ls, ok := s.links[threadID]
	if !ok {
		ls = newLinkState()
		s.links[threadID] = ls
	}
	return ls
}

// SetWaker installs a wake primitive used instead of time.Sleep while
// idle. Passing nil reverts to plain sleeping.
func (s *Scheduler) SetWaker(w Waker) { s.waker = w }

// Run drains continuously until stop is closed, then performs a final
// forced drain of every lane and returns each thread's finalize summary.
func (s *Scheduler) Run(stop <-chan struct{}) []trace.Summary {
	for {
		select {
		case <-stop:
			return s.finalDrain()
		default:
		}
		if s.passOnce() {
			s.back.Reset()
			continue
		}
		if s.waker != nil {
			s.waker.Wait(s.back.Duration())
		} else {
			time.Sleep(s.back.Duration())
		}
		s.back.Grow()
	}
}

// passOnce drains at most quantum submitted rings per lane per thread,
// returning true if any ring was processed.
func (s *Scheduler) passOnce() bool {
	progressed := false
	for _, set := range s.registry.Slots() {
		if set == nil {
			continue
		}
		w := s.writerFor(set.ThreadID)
		if w == nil {
			continue
		}
		if s.drainLane(set.ThreadID, set.Index, w, s.drainIndexRing) {
			progressed = true
		}
		if s.drainLane(set.ThreadID, set.Detail, w, s.drainDetailRing) {
			progressed = true
		}
	}
	return progressed
}

func (s *Scheduler) writerFor(threadID uint64) *trace.Writer {
	if w, ok := s.writers[threadID]; ok {
		return w
	}
	w, err := trace.NewWriter(s.sessionDir, threadID)
	if err != nil {
		s.writeFailures++
		return nil
	}
	s.writers[threadID] = w
	return w
}

// drainLane pulls up to quantum submitted ring indices for one lane into
// the scheduler's pending queue, then processes them in arrival order via
// drainOne. Buffering through PendingRingQueue decouples popping from the
// lane's submit queue (which must stay fast, it runs under hot-path
// back-pressure) from the slower per-record file write loop.
func (s *Scheduler) drainLane(threadID uint64, l *lane.Lane, w *trace.Writer, drainOne func(threadID uint64, ringIdx uint32, l *lane.Lane, w *trace.Writer)) bool {
	if l == nil {
		return false
	}
	drained := false
	for i := 0; i < s.quantum; i++ {
		idx, ok := l.Pool.TakeSubmitted()
		if !ok {
			break
		}
		s.pending.Push(idx)
	}
	for {
		idx, ok := s.pending.Pop()
		if !ok {
			break
		}
		drainOne(threadID, idx, l, w)
		drained = true
	}
	return drained
}

func (s *Scheduler) drainIndexRing(threadID uint64, ringIdx uint32, l *lane.Lane, w *trace.Writer) {
	r := l.Pool.IndexRingAt(ringIdx)
	buf := s.indexBatchPool.Get()
	defer s.indexBatchPool.Put(buf)
	for {
		n := r.ReadBatch(buf)
		if n == 0 {
			break
		}
		for j := 0; j < n; j++ {
			e := buf[j]
			token := e.DetailSeq
			hasToken := token != wire.NoDetail
			idxSeq, err := w.WriteIndex(&e)
			if err != nil {
				s.writeFailures++
				continue
			}
			if hasToken {
				s.resolveIndexSide(threadID, w, token, idxSeq)
			}
		}
	}
	l.Pool.Release(ringIdx)
}

func (s *Scheduler) drainDetailRing(threadID uint64, ringIdx uint32, l *lane.Lane, w *trace.Writer) {
	r := l.Pool.DetailRingAt(ringIdx)
	for {
		rec, ok := r.Read()
		if !ok {
			break
		}
		token := rec.Header.IndexSeq
		detSeq, offset, err := w.WriteDetail(&rec)
		if err != nil {
			s.writeFailures++
			continue
		}
		s.resolveDetailSide(threadID, w, token, detSeq, offset)
	}
	l.Pool.Release(ringIdx)
}

// resolveIndexSide is called once an index event carrying link token has
// been written with idxSeq. If the paired detail record already arrived,
// both files are patched immediately; otherwise the index side waits for
// the detail side to show up in a later (or the same) pass.
func (s *Scheduler) resolveIndexSide(threadID uint64, w *trace.Writer, token, idxSeq uint32) {
	ls := s.linkStateFor(threadID)
	if ds, ok := ls.awaitingIndex[token]; ok {
		delete(ls.awaitingIndex, token)
		s.patchLink(w, idxSeq, ds.detSeq, ds.offset)
		return
	}
	ls.awaitingDetail[token] = idxSeq
}

// resolveDetailSide is the symmetric counterpart for a just-written detail
// record.
func (s *Scheduler) resolveDetailSide(threadID uint64, w *trace.Writer, token, detSeq uint32, offset uint64) {
	ls := s.linkStateFor(threadID)
	if idxSeq, ok := ls.awaitingDetail[token]; ok {
		delete(ls.awaitingDetail, token)
		s.patchLink(w, idxSeq, detSeq, offset)
		return
	}
	ls.awaitingIndex[token] = detailSide{detSeq: detSeq, offset: offset}
}

func (s *Scheduler) patchLink(w *trace.Writer, idxSeq, detSeq uint32, detailOffset uint64) {
	if err := w.PatchIndexDetailSeq(idxSeq, detSeq); err != nil {
		s.writeFailures++
	}
	if err := w.PatchDetailIndexSeq(detailOffset, idxSeq); err != nil {
		s.writeFailures++
	}
}

// finalDrain forces every lane's active ring into its submit queue
// (spec.md §4.10 step 3), drains until nothing is left, then finalizes
// every writer that was touched.
func (s *Scheduler) finalDrain() []trace.Summary {
	for _, set := range s.registry.Slots() {
		if set == nil {
			continue
		}
		if set.Index != nil {
			set.Index.Pool.ForceRotate()
		}
		if set.Detail != nil {
			set.Detail.Pool.ForceRotate()
		}
	}
	for s.passOnce() {
	}
	if s.finalizer != nil {
		return s.finalizer(s.writers)
	}
	return s.finalizeAll()
}

func (s *Scheduler) finalizeAll() []trace.Summary {
	out := make([]trace.Summary, 0, len(s.writers))
	for _, w := range s.writers {
		sum, err := w.Finalize()
		if err != nil {
			s.writeFailures++
		}
		out = append(out, sum)
	}
	return out
}

// WriteFailures reports the cumulative FileWriteFailed count (spec.md §7)
// observed across this scheduler's lifetime.
func (s *Scheduler) WriteFailures() uint64 { return s.writeFailures }
