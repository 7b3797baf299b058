// File: registry/registry.go
// Package registry implements the thread registry (C4) of spec.md §4.3:
// a bounded slot table of thread lane sets, monotonic slot assignment,
// and the accepting/shutdown flags governing registration.
//
// Grounded on core/concurrency/executor.go's bounded worker slice with
// atomic count and resize-safe shutdown, narrowed from worker goroutines
// to thread lane set registrations.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/ada-trace/api"
	"github.com/momentics/ada-trace/lane"
)

// Capacity is the maximum number of concurrently tracked threads per
// spec.md §4.3 ("bounded array (capacity <= 64)").
const Capacity = 64

// Registry is the bounded, append-only table of per-thread lane sets.
// Registration is a bounded linear scan followed by an atomic slot
// reservation; lookups on the hot path should instead use the
// thread-local handle returned at registration time, never re-scanning
// the registry (spec.md §4.3).
type Registry struct {
	mu                      sync.Mutex // guards the linear scan + reserve sequence
	slots                   [Capacity]atomic.Pointer[entry]
	threadCount             atomic.Uint32
	acceptingRegistrations  atomic.Bool
	shutdownRequested       atomic.Bool
}

type entry struct {
	threadID uint64
	set      *lane.Set
}

// New returns an empty registry, open for registrations.
func New() *Registry {
	r := &Registry{}
	r.acceptingRegistrations.Store(true)
	return r
}

// Register returns the existing lane set for threadID if already
// present, or reserves a new slot and lane set otherwise. Returns
// (nil, api.ErrNotAcceptingRegistration) during shutdown, and
// (nil, api.ErrRegistryFull) once Capacity slots are in use.
func (r *Registry) Register(threadID uint64) (*lane.Set, error) {
	if got := r.lookupActive(threadID); got != nil {
		return got, nil
	}
	if !r.acceptingRegistrations.Load() {
		return nil, api.ErrNotAcceptingRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under lock: another thread may have registered threadID
	// between the optimistic lookup above and acquiring mu.
	for i := uint32(0); i < r.threadCount.Load(); i++ {
		if e := r.slots[i].Load(); e != nil && e.threadID == threadID && e.set.Active() {
			return e.set, nil
		}
	}
	if !r.acceptingRegistrations.Load() {
		return nil, api.ErrNotAcceptingRegistration
	}

	slot := r.threadCount.Load()
	if slot >= Capacity {
		return nil, api.ErrRegistryFull
	}
	set := lane.New(threadID, slot)
	r.slots[slot].Store(&entry{threadID: threadID, set: set})
	r.threadCount.Add(1)
	return set, nil
}

func (r *Registry) lookupActive(threadID uint64) *lane.Set {
	n := r.threadCount.Load()
	for i := uint32(0); i < n; i++ {
		if e := r.slots[i].Load(); e != nil && e.threadID == threadID && e.set.Active() {
			return e.set
		}
	}
	return nil
}

// Unregister deactivates the lane set for threadID, if present. The slot
// itself is never reclaimed or reassigned within a session.
func (r *Registry) Unregister(threadID uint64) {
	n := r.threadCount.Load()
	for i := uint32(0); i < n; i++ {
		if e := r.slots[i].Load(); e != nil && e.threadID == threadID {
			e.set.Deactivate()
			return
		}
	}
}

// StopAccepting rejects future registrations; existing lane sets are
// unaffected. Called at the start of shutdown.
func (r *Registry) StopAccepting() {
	r.acceptingRegistrations.Store(false)
	r.shutdownRequested.Store(true)
}

// ShutdownRequested reports whether StopAccepting has been called; the
// drain scheduler polls this to know when to begin final-drain.
func (r *Registry) ShutdownRequested() bool { return r.shutdownRequested.Load() }

// ThreadCount reports the number of slots ever assigned, not the number
// currently active.
func (r *Registry) ThreadCount() uint32 { return r.threadCount.Load() }

// ActiveCount scans all assigned slots and counts those still active,
// per spec.md §4.3 ("computed by a scan of active flags").
func (r *Registry) ActiveCount() int {
	n := r.threadCount.Load()
	count := 0
	for i := uint32(0); i < n; i++ {
		if e := r.slots[i].Load(); e != nil && e.set.Active() {
			count++
		}
	}
	return count
}

// Slots returns an iterator-friendly snapshot of lane sets assigned so
// far, in slot order, for the drain scheduler's round-robin pass.
func (r *Registry) Slots() []*lane.Set {
	n := r.threadCount.Load()
	out := make([]*lane.Set, 0, n)
	for i := uint32(0); i < n; i++ {
		if e := r.slots[i].Load(); e != nil {
			out = append(out, e.set)
		}
	}
	return out
}
