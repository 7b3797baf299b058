// File: agent/agent.go
// Package agent implements the instrumentation hot path (C5) of spec.md
// §4.4: per-call enter/leave handling, reentrancy guarding, index/detail
// event construction, and handoff into the owning thread's lanes.
//
// The symbol-hook attachment mechanism itself (Mach-O parsing, Swift/ObjC
// classification, the interceptor library) is an external collaborator
// per spec.md's Non-goals; Agent's entry points accept an already-
// resolved (modulePath, symbol) pair and an optional ABI payload captured
// by that collaborator, mirroring the chain/guard dispatch style of the
// teacher's handler adapters: a cheap guard up front, a constructed event
// record, a handoff to the next stage, never building anything the guard
// already rejected.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package agent

import (
	"sync/atomic"
	"time"

	"github.com/momentics/ada-trace/hook"
	"github.com/momentics/ada-trace/lane"
	"github.com/momentics/ada-trace/pool"
	"github.com/momentics/ada-trace/registry"
	"github.com/momentics/ada-trace/wire"
)

// payloadCapacity is the largest ABI payload a detail slot can carry,
// matching the clamp a detail record's payload is bounded to.
const payloadCapacity = wire.DetailSlotSize - wire.DetailHeaderSize - 4

// payloadPoolSize bounds how many payload buffers Agent keeps warm. A
// handful per expected concurrent thread is enough: buffers are held only
// for the duration of one writeDetail call.
const payloadPoolSize = 256

// Agent wires the thread registry, hook registry, exclude set, and
// marking policy into the per-call hot path.
type Agent struct {
	Registry *registry.Registry
	Hooks    *hook.Registry
	Excludes *hook.ExcludeSet
	Marking  *hook.Policy

	// AcceptingEvents gates new writes during shutdown (spec.md §4.10
	// step 2): once cleared, OnEnter/OnLeave count a dropped-shutdown
	// event instead of attempting a write.
	acceptingEvents atomic.Bool

	// payloadPool recycles detail-record payload buffers so the hot path
	// never allocates one per marked call (spec.md §5).
	payloadPool *pool.SimpleBytePool
}

// New wires a fresh Agent around the given registry, hook registry,
// exclude set, and marking policy. Pass nil for Excludes or Marking to
// use empty (pass-through) instances.
func New(reg *registry.Registry, hooks *hook.Registry, excludes *hook.ExcludeSet, marking *hook.Policy) *Agent {
	if hooks == nil {
		hooks = hook.NewRegistry()
	}
	if excludes == nil {
		excludes = hook.NewExcludeSet()
	}
	if marking == nil {
		marking = hook.NewPolicy(nil)
	}
	a := &Agent{
		Registry:    reg,
		Hooks:       hooks,
		Excludes:    excludes,
		Marking:     marking,
		payloadPool: pool.NewSimpleBytePool(payloadPoolSize, payloadCapacity),
	}
	a.acceptingEvents.Store(true)
	return a
}

// StopAcceptingEvents is called as part of shutdown phase 2 (spec.md
// §4.10): subsequent OnEnter/OnLeave calls are counted as dropped rather
// than written.
func (a *Agent) StopAcceptingEvents() { a.acceptingEvents.Store(false) }

// ResolveThread returns the lane set for threadID, registering it on
// first sight. The interceptor collaborator calls this once per thread
// and caches the result in its own thread-local storage, supplying it
// back as Call.Handle on every subsequent call so the hot path never
// re-searches the registry (spec.md §4.3).
func (a *Agent) ResolveThread(threadID uint64) (*lane.Set, error) {
	return a.Registry.Register(threadID)
}

// Call captures everything the hot path needs about one function
// invocation, resolved by the (external) interceptor before Agent sees
// it.
type Call struct {
	ThreadID   uint64
	ModulePath string
	Symbol     string
	// ABIPayload, when non-nil, is captured verbatim as the detail
	// record's payload (argument/return registers plus any stack
	// window the interceptor already captured and bounded).
	ABIPayload []byte
	// Handle, when non-nil, is the lane set previously returned by
	// ResolveThread for ThreadID. Supplying it lets record skip the
	// registry lookup entirely; omit it (nil) to fall back to a registry
	// lookup keyed by ThreadID.
	Handle *lane.Set
}

// nowNanos reads a monotonic timestamp; isolated behind a function value
// so tests can substitute a deterministic clock.
var nowNanos = func() uint64 { return uint64(time.Now().UnixNano()) }

// OnEnter records a CALL event for c, returning false if the event was
// dropped (exclude-set hit, reentrancy guard, shutdown, or ring
// exhaustion past the swap retry).
func (a *Agent) OnEnter(c Call) bool {
	return a.record(c, wire.EventCall, +1)
}

// OnLeave records a RETURN event for c, symmetric to OnEnter.
func (a *Agent) OnLeave(c Call) bool {
	return a.record(c, wire.EventReturn, -1)
}

func (a *Agent) record(c Call, kind uint32, depthDelta int32) bool {
	set := c.Handle
	if set == nil || !set.Active() {
		var err error
		set, err = a.Registry.Register(c.ThreadID)
		if err != nil || !set.Active() {
			return false
		}
	}

	if !set.InHandler.CompareAndSwap(false, true) {
		set.ReentrancyBlocked.Add(1)
		return false
	}
	defer set.InHandler.Store(false)

	if !a.acceptingEvents.Load() {
		set.Index.Counters.RecordDrop()
		return false
	}

	info := a.resolveSymbol(set, c.ModulePath, c.Symbol)
	if info.Excluded {
		return false
	}

	set.CallDepth.Add(depthDelta)
	ts := nowNanos()

	// The agent assigns a single opaque correlation token per marked
	// call, embedded into both the index event and the detail header.
	// The drain scheduler, which owns the real gapless idx_seq/det_seq
	// counters (spec.md §4.9), resolves the token once both sides have
	// landed and patches whichever side arrived first.
	var linkTok uint32 = wire.NoDetail
	if info.Marked {
		if linkTok = uint32(set.NextToken()); linkTok == wire.NoDetail {
			linkTok = uint32(set.NextToken())
		}
	}

	evt := wire.IndexEvent{
		TimestampNs: ts,
		FunctionID:  info.FunctionID,
		ThreadID:    uint32(c.ThreadID),
		EventKind:   kind,
		CallDepth:   uint32(set.CallDepth.Load()),
		DetailSeq:   linkTok,
	}

	ok := a.writeIndexWithSwap(set, &evt)
	if !ok {
		set.Index.Counters.RecordDrop()
		return false
	}
	set.Index.Counters.RecordWrite(wire.IndexEventSize)

	if info.Marked {
		a.writeDetail(set, kind, c, linkTok, ts)
	}
	return true
}

// resolveSymbol returns the cached SymbolInfo for (modulePath, symbol) on
// set, the thread's own lane set. A cache hit never touches Hooks,
// Excludes, or Marking, so a call on an already-seen symbol takes no
// locks at all past the first sighting (spec.md §4.3, §5). A hit is only
// valid while both the exclude set's and the marking policy's generation
// counters match what they were when the entry was computed; either one
// bumping (hot-reload) invalidates the entry on its next lookup.
func (a *Agent) resolveSymbol(set *lane.Set, modulePath, symbol string) lane.SymbolInfo {
	excludeGen := a.Excludes.Generation()
	markingGen := a.Marking.Generation()
	if info, ok := set.LookupSymbol(modulePath, symbol); ok &&
		info.ExcludeGen == excludeGen && info.MarkingGen == markingGen {
		return info
	}
	info := lane.SymbolInfo{
		FunctionID: a.Hooks.Intern(modulePath, symbol),
		Excluded:   a.Excludes.Contains(symbol),
		Marked:     a.Marking.Matches(symbol),
		ExcludeGen: excludeGen,
		MarkingGen: markingGen,
	}
	set.StoreSymbol(modulePath, symbol, info)
	return info
}

func (a *Agent) writeIndexWithSwap(set *lane.Set, evt *wire.IndexEvent) bool {
	if set.Index.Pool.WriteIndex(evt) {
		return true
	}
	set.Index.Counters.RecordRingFull()
	return false
}

// writeDetail builds and writes the detail record paired with an index
// event carrying linkTok. The payload buffer comes from a.payloadPool and
// is returned immediately after WriteDetail returns: core/ring.DetailRing
// synchronously copies the payload into the ring, so the buffer is free
// for reuse regardless of whether the write succeeded.
func (a *Agent) writeDetail(set *lane.Set, kind uint32, c Call, linkTok uint32, ts uint64) {
	detailKind := uint16(wire.DetailFunctionCall)
	if kind == wire.EventReturn {
		detailKind = wire.DetailFunctionReturn
	}
	buf := a.payloadPool.Get()
	n := copy(buf, c.ABIPayload)
	truncated := len(c.ABIPayload) > n
	rec := wire.DetailRecord{
		Header: wire.DetailEventHeader{
			EventType: detailKind,
			IndexSeq:  linkTok,
			ThreadID:  uint32(c.ThreadID),
			Timestamp: ts,
		},
		Payload: buf[:n],
	}
	if set.Detail.Pool.WriteDetail(&rec) {
		set.Detail.Counters.RecordWrite(len(rec.Payload) + wire.DetailHeaderSize)
		set.Detail.Pool.MarkPreRollElected()
	} else {
		set.Detail.Counters.RecordRingFull()
	}
	if truncated {
		set.Detail.Counters.RecordAllocationFailure()
	}
	a.payloadPool.Put(buf)
}
