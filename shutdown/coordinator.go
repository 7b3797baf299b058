// File: shutdown/coordinator.go
// Package shutdown implements the phased shutdown coordinator (C11) of
// spec.md §4.10: signal the atomic shutdown flag, stop accepting new
// events, wake the drain thread for a final forced drain, finalize every
// thread's trace files, and report a session summary, all within a
// bounded soft deadline.
//
// Grounded on the teacher's core/concurrency.Executor for the parallel
// per-thread finalize step, and on control/hotreload.go's hook-dispatch
// shape for the phase signal itself.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package shutdown

import (
	"sync"
	"time"

	"github.com/momentics/ada-trace/api"
	"github.com/momentics/ada-trace/core/concurrency"
	"github.com/momentics/ada-trace/drain"
	"github.com/momentics/ada-trace/registry"
	"github.com/momentics/ada-trace/trace"
)

// DefaultBudget is the shutdown soft deadline spec.md §4.10 names:
// "100 ms for 64 threads under nominal load".
const DefaultBudget = 100 * time.Millisecond

// Report aggregates the per-thread summaries and whether shutdown
// finished clean (within budget) or was forced by the deadline (spec.md
// §4.10 step 5, §7's ShutdownDeadlineExceeded).
type Report struct {
	Threads        []trace.Summary
	EventsWritten  uint64
	BytesWritten   uint64
	WriteFailures  uint64
	DeadlineHit    bool
}

// Coordinator owns the single background drain loop for a session and
// drives its phased shutdown. The drain scheduler must not be run from
// anywhere else once a Coordinator has Start'd it, since Scheduler.Run
// is not safe to invoke concurrently with itself.
type Coordinator struct {
	registry *registry.Registry
	sched    *drain.Scheduler
	wake     drain.Waker
	budget   time.Duration
	executor *concurrency.Executor

	stop chan struct{}
	done chan []trace.Summary
}

// New returns a Coordinator for reg/sched, using DefaultBudget. wake may
// be nil if the scheduler has no installed Waker.
func New(reg *registry.Registry, sched *drain.Scheduler, wake drain.Waker) *Coordinator {
	return &Coordinator{
		registry: reg,
		sched:    sched,
		wake:     wake,
		budget:   DefaultBudget,
		stop:     make(chan struct{}),
		done:     make(chan []trace.Summary, 1),
	}
}

// Start launches the background drain loop. Call once per session,
// before any agent begins registering threads.
func (c *Coordinator) Start() {
	go func() { c.done <- c.sched.Run(c.stop) }()
}

// WithBudget overrides the default soft deadline.
func (c *Coordinator) WithBudget(d time.Duration) *Coordinator {
	c.budget = d
	return c
}

// WithExecutor installs a core/concurrency.Executor to parallelize the
// per-thread writer finalize step (spec.md §4.10 step 4), and wires it
// into the scheduler's Finalizer hook.
func (c *Coordinator) WithExecutor(exec *concurrency.Executor) *Coordinator {
	c.executor = exec
	c.sched.SetFinalizer(c.parallelFinalize)
	return c
}

// parallelFinalize runs trace.Writer.Finalize for every thread across
// the installed Executor's worker pool instead of sequentially, and waits
// for every finalize to finish; it has no deadline of its own.
func (c *Coordinator) parallelFinalize(writers map[uint64]*trace.Writer) []trace.Summary {
	var mu sync.Mutex
	out := make([]trace.Summary, 0, len(writers))
	var wg sync.WaitGroup
	for _, w := range writers {
		w := w
		wg.Add(1)
		task := func() {
			defer wg.Done()
			sum, _ := w.Finalize()
			mu.Lock()
			out = append(out, sum)
			mu.Unlock()
		}
		if err := c.executor.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
	return out
}

// Shutdown executes the phased shutdown (spec.md §4.10 steps 1-5): it
// sets the registry's shutdown_requested flag and stops registrations,
// wakes the drain loop so it performs a final forced drain instead of
// waiting out its back-off, waits up to budget for that drain to finish
// and every writer to finalize, and aggregates the per-thread report.
// Stopping new agent events is the caller's job (the controller calls
// agent.StopAcceptingEvents first). If the budget elapses first,
// DeadlineHit is set (spec.md §7 ShutdownDeadlineExceeded); the final
// drain itself has no internal timeout, so Shutdown still waits for it
// to actually finish rather than abandoning in-flight file writes.
func (c *Coordinator) Shutdown() Report {
	// Step 1-2: stop accepting new registrations. Existing threads
	// observe ShutdownRequested on their next relaxed poll.
	c.registry.StopAccepting()

	// Step 3: close the loop's stop channel and wake it so it doesn't
	// wait out its current back-off interval before noticing.
	close(c.stop)
	if c.wake != nil {
		c.wake.Signal()
	}

	var summaries []trace.Summary
	deadlineHit := false
	select {
	case summaries = <-c.done:
	case <-time.After(c.budget):
		deadlineHit = true
		summaries = <-c.done
	}

	report := Report{Threads: summaries, DeadlineHit: deadlineHit}
	for _, s := range summaries {
		report.EventsWritten += s.EventsWritten
		report.BytesWritten += s.BytesWritten
		report.WriteFailures += s.WriteFailures
	}
	return report
}

// ErrDeadlineExceeded is returned by callers that choose to treat a
// DeadlineHit report as an error rather than a soft warning (spec.md §7:
// "a non-zero file_write_failed is a session-level warning, not a
// process termination" — the same policy applies to a deadline overrun).
var ErrDeadlineExceeded = api.ErrShutdownDeadlineExceeded
