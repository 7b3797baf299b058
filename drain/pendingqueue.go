// File: drain/pendingqueue.go
// PendingRingQueue buffers ring indices popped from a lane's submit queue
// during one scheduler pass, decoupling "how many rings rotated this
// pass" from "in what order we process them" so a slow writer for one
// thread cannot starve the pop side of core/ringpool's submit queue.
//
// Grounded on github.com/eapache/queue's circular-buffer FIFO, the same
// dependency the teacher's go.mod already requires for the hot-path
// backlog structures.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package drain

import "github.com/eapache/queue"

// PendingRingQueue is a FIFO of ring indices awaiting processing.
type PendingRingQueue struct {
	q *queue.Queue
}

// NewPendingRingQueue returns an empty queue.
func NewPendingRingQueue() *PendingRingQueue {
	return &PendingRingQueue{q: queue.New()}
}

// Push enqueues a ring index.
func (p *PendingRingQueue) Push(ringIdx uint32) { p.q.Add(ringIdx) }

// Pop dequeues the oldest ring index, or returns ok=false if empty.
func (p *PendingRingQueue) Pop() (uint32, bool) {
	if p.q.Length() == 0 {
		return 0, false
	}
	v := p.q.Remove()
	return v.(uint32), true
}

// Len reports the number of pending ring indices.
func (p *PendingRingQueue) Len() int { return p.q.Length() }
