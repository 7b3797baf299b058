// File: shm/wake.go
// Wake is the cross-platform idle/shutdown wake primitive referenced by
// spec.md §5 ("A wake mechanism (eventfd/pipe/condvar) unblocks idle
// polls") and §4.10 step 3 ("Wake drain"). It satisfies drain.Waker so
// the drain scheduler can block efficiently instead of spin-polling, and
// the shutdown coordinator can force an immediate wake when it sets
// shutdown_requested.
//
// Grounded on the teacher's reactor package: epoll on Linux
// (reactor_linux.go), IOCP on Windows (reactor_windows.go), repurposed
// from many-socket multiplexing to a single-fd/handle wake signal.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package shm

import "time"

// Wake is implemented per-platform (wake_linux.go, wake_windows.go,
// wake_stub.go) and satisfies drain.Waker.
type Wake interface {
	// Wait blocks until either Signal is called or timeout elapses,
	// returning true if it was woken by Signal.
	Wait(timeout time.Duration) bool
	// Signal unblocks one pending or future Wait call.
	Signal()
	// Close releases the underlying OS resource.
	Close() error
}
