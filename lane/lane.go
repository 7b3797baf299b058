// File: lane/lane.go
// Package lane implements the thread lane set (C3) of spec.md §4.3: one
// index lane and one detail lane per thread, each backed by a ring pool,
// plus the per-lane counters that feed back-pressure accounting.
//
// Grounded on internal/session's per-connection state struct shape
// (identity + lifecycle flags + child resources owned for the session's
// duration), adapted from a network session to a per-thread trace
// session.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package lane

import (
	"sync/atomic"

	"github.com/momentics/ada-trace/backpressure"
	"github.com/momentics/ada-trace/core/ringpool"
)

// Index lane and detail lane ring counts, per spec.md §4.2.
const (
	IndexLaneRings  = 4
	DetailLaneRings = 2
)

// Lane pairs a ring pool with the back-pressure counters for one
// (thread, direction) stream.
type Lane struct {
	Pool     *ringpool.Pool
	Counters backpressure.Counters
}

func newIndexLane() *Lane {
	l := &Lane{Pool: ringpool.NewIndexPool(IndexLaneRings)}
	l.Pool.SetCounters(&l.Counters)
	return l
}

func newDetailLane() *Lane {
	l := &Lane{Pool: ringpool.NewDetailPool(DetailLaneRings)}
	l.Pool.SetCounters(&l.Counters)
	return l
}

// SymbolInfo is one thread-local symbol cache entry: the interned
// function id plus the exclude/marking verdicts computed for it, each
// tagged with the generation counter it was computed against so a
// config hot-reload (spec.md §4.7) can be detected cheaply without a
// lock (hook.ExcludeSet.Generation, hook.Policy.Generation).
type SymbolInfo struct {
	FunctionID uint64
	Excluded   bool
	Marked     bool
	ExcludeGen uint64
	MarkingGen uint64
}

// Set is the per-thread lane set: an index lane (always on) and a detail
// lane (selectively persisted), plus the thread's handler-reentrancy and
// call-depth state used on the agent hot path.
type Set struct {
	ThreadID  uint64
	SlotIndex uint32
	active    atomic.Bool

	Index  *Lane
	Detail *Lane

	// InHandler guards against allocator/interceptor hooks reentering the
	// agent's own instrumentation path (spec.md §4.4).
	InHandler atomic.Bool
	CallDepth atomic.Int32

	// ReentrancyBlocked counts InHandler guard trips.
	ReentrancyBlocked atomic.Uint64

	// StackCaptureFailures counts faulted/short stack reads during detail
	// capture, never propagated as hard errors (spec.md §4.4).
	StackCaptureFailures atomic.Uint64

	// Symbols is the thread-exclusive symbol cache, keyed first by module
	// path and then by symbol name. Nesting the map this way lets a cache
	// hit look itself up using the two strings Call already carries,
	// without concatenating a combined key (which would allocate on
	// every hot-path lookup). It is touched only by the one goroutine/
	// thread this Set belongs to, always under the InHandler reentrancy
	// guard, so a plain map is safe without locking (spec.md §5 hot-path
	// invariant).
	Symbols map[string]map[string]SymbolInfo

	// NextLinkToken hands out the single opaque per-thread correlation
	// token (spec.md §4.9) the drain scheduler uses to resolve a marked
	// call's real (idx_seq, det_seq) pair once both sides have landed.
	NextLinkToken atomic.Uint64
}

// New allocates a lane set for threadID at the given registry slot,
// active immediately.
func New(threadID uint64, slotIndex uint32) *Set {
	s := &Set{
		ThreadID:  threadID,
		SlotIndex: slotIndex,
		Index:     newIndexLane(),
		Detail:    newDetailLane(),
		Symbols:   make(map[string]map[string]SymbolInfo),
	}
	s.active.Store(true)
	return s
}

// Active reports whether this slot still belongs to a live, registered
// thread.
func (s *Set) Active() bool { return s.active.Load() }

// Deactivate marks the slot inactive; it is never reused within a
// session (slot assignment is monotonic, spec.md §4.3 invariant).
func (s *Set) Deactivate() { s.active.Store(false) }

// LookupSymbol returns the cached SymbolInfo for (modulePath, symbol), if
// any. The two-string lookup never allocates: both strings already exist
// on the caller's Call, so no combined key needs building.
func (s *Set) LookupSymbol(modulePath, symbol string) (SymbolInfo, bool) {
	bySymbol, ok := s.Symbols[modulePath]
	if !ok {
		return SymbolInfo{}, false
	}
	info, ok := bySymbol[symbol]
	return info, ok
}

// StoreSymbol caches info for (modulePath, symbol), allocating the
// per-module inner map on first sight of modulePath.
func (s *Set) StoreSymbol(modulePath, symbol string, info SymbolInfo) {
	bySymbol, ok := s.Symbols[modulePath]
	if !ok {
		bySymbol = make(map[string]SymbolInfo, 8)
		s.Symbols[modulePath] = bySymbol
	}
	bySymbol[symbol] = info
}

// NextToken hands out the next opaque correlation token for a marked
// call. Tokens are only ever compared for equality by the drain
// scheduler, never interpreted as sequence numbers themselves.
func (s *Set) NextToken() uint64 {
	return s.NextLinkToken.Add(1)
}
