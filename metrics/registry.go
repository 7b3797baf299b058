// File: metrics/registry.go
// Registry aggregates per-thread backpressure.Snapshot + Window pairs
// into the system-wide totals of spec.md §4.11.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package metrics

import (
	"sync"

	"github.com/momentics/ada-trace/backpressure"
)

// ThreadMetrics bundles one thread's index/detail lane counters with
// its throughput windows.
type ThreadMetrics struct {
	ThreadID     uint64
	IndexWindow  *Window
	DetailWindow *Window
}

// Registry tracks ThreadMetrics per thread ID, registered as threads
// join and read concurrently by a periodic system-snapshot poller.
type Registry struct {
	mu      sync.RWMutex
	threads map[uint64]*ThreadMetrics
}

// NewRegistry returns an empty metrics Registry.
func NewRegistry() *Registry {
	return &Registry{threads: make(map[uint64]*ThreadMetrics)}
}

// ForThread returns the ThreadMetrics for threadID, creating it on first
// use.
func (r *Registry) ForThread(threadID uint64) *ThreadMetrics {
	r.mu.RLock()
	tm, ok := r.threads[threadID]
	r.mu.RUnlock()
	if ok {
		return tm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tm, ok := r.threads[threadID]; ok {
		return tm
	}
	tm = &ThreadMetrics{ThreadID: threadID, IndexWindow: NewWindow(), DetailWindow: NewWindow()}
	r.threads[threadID] = tm
	return tm
}

// ThreadSnapshot is one thread's point-in-time rate and counter view.
type ThreadSnapshot struct {
	ThreadID           uint64
	Index              backpressure.Snapshot
	Detail             backpressure.Snapshot
	IndexEventsPerSec  float64
	IndexBytesPerSec   float64
	DetailEventsPerSec float64
	DetailBytesPerSec  float64
}

// SystemSnapshot sums every thread's counters as of the interval poll
// that produced threads, per spec.md §4.11 ("System totals: sum of
// per-thread snapshots taken at interval").
type SystemSnapshot struct {
	Threads             []ThreadSnapshot
	TotalEventsWritten  uint64
	TotalEventsDropped  uint64
	TotalBytesWritten   uint64
	TotalEventsPerSec   float64
	TotalBytesPerSec    float64
}

// Snapshot builds a SystemSnapshot from indexCounters/detailCounters
// (keyed by thread ID, typically sourced from lane.Set.Index.Counters
// and lane.Set.Detail.Counters) evaluated at nowNs.
func (r *Registry) Snapshot(nowNs uint64, indexCounters, detailCounters map[uint64]*backpressure.Counters) SystemSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sys := SystemSnapshot{Threads: make([]ThreadSnapshot, 0, len(r.threads))}
	for tid, tm := range r.threads {
		ts := ThreadSnapshot{ThreadID: tid}
		if c, ok := indexCounters[tid]; ok {
			ts.Index = c.Snapshot()
			tm.IndexWindow.Observe(nowNs, ts.Index.EventsWritten, ts.Index.BytesWritten)
		}
		if c, ok := detailCounters[tid]; ok {
			ts.Detail = c.Snapshot()
			tm.DetailWindow.Observe(nowNs, ts.Detail.EventsWritten, ts.Detail.BytesWritten)
		}
		ts.IndexEventsPerSec, ts.IndexBytesPerSec = tm.IndexWindow.Rates(nowNs)
		ts.DetailEventsPerSec, ts.DetailBytesPerSec = tm.DetailWindow.Rates(nowNs)

		sys.TotalEventsWritten += ts.Index.EventsWritten + ts.Detail.EventsWritten
		sys.TotalEventsDropped += ts.Index.EventsDropped + ts.Detail.EventsDropped
		sys.TotalBytesWritten += ts.Index.BytesWritten + ts.Detail.BytesWritten
		sys.TotalEventsPerSec += ts.IndexEventsPerSec + ts.DetailEventsPerSec
		sys.TotalBytesPerSec += ts.IndexBytesPerSec + ts.DetailBytesPerSec

		sys.Threads = append(sys.Threads, ts)
	}
	return sys
}
