// File: metrics/window.go
// Package metrics implements C12 of spec.md §4.11: per-thread counters
// (backpressure.Counters) plus a bounded 1-second sliding window of
// (timestamp, events, bytes) samples, from which events_per_second and
// bytes_per_second are derived, and system totals taken as the sum of
// per-thread snapshots at an interval.
//
// Grounded on control/metrics.go's Set/GetSnapshot registry shape,
// specialized from an untyped string-keyed map to the fixed per-thread
// rate-window sample the spec names.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package metrics

import "sync"

// sample is one (timestamp, events, bytes) observation.
type sample struct {
	atNs   uint64
	events uint64
	bytes  uint64
}

// Window is a bounded 1-second sliding window of throughput samples for
// one thread. Observe and Rates both take mu, so the window is safe for
// concurrent use; Registry.Snapshot is what calls Observe.
type Window struct {
	mu      sync.Mutex
	samples []sample
}

// NewWindow returns an empty Window.
func NewWindow() *Window { return &Window{} }

// Observe records a (timestamp, events, bytes) sample and evicts entries
// older than 1 second relative to atNs.
func (w *Window) Observe(atNs uint64, events, bytes uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, sample{atNs: atNs, events: events, bytes: bytes})
	cutoff := int64(atNs) - int64(windowNs)
	i := 0
	for ; i < len(w.samples); i++ {
		if int64(w.samples[i].atNs) >= cutoff {
			break
		}
	}
	w.samples = w.samples[i:]
}

const windowNs = uint64(1_000_000_000)

// Rates reports the events-per-second and bytes-per-second derived from
// the current window's contents, spanning from the oldest retained
// sample to nowNs.
func (w *Window) Rates(nowNs uint64) (eventsPerSec, bytesPerSec float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return 0, 0
	}
	var totalEvents, totalBytes uint64
	oldest := w.samples[0].atNs
	for _, s := range w.samples {
		totalEvents += s.events
		totalBytes += s.bytes
	}
	spanNs := nowNs - oldest
	if spanNs == 0 {
		spanNs = 1
	}
	spanSec := float64(spanNs) / 1e9
	return float64(totalEvents) / spanSec, float64(totalBytes) / spanSec
}
