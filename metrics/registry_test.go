package metrics

import (
	"testing"

	"github.com/momentics/ada-trace/backpressure"
)

func TestRegistry_SnapshotAggregatesThreads(t *testing.T) {
	r := NewRegistry()
	r.ForThread(1)
	r.ForThread(2)

	var c1, c2 backpressure.Counters
	c1.RecordWrite(64)
	c2.RecordWrite(128)
	c2.RecordDrop()

	sys := r.Snapshot(1_000_000_000, map[uint64]*backpressure.Counters{1: &c1, 2: &c2}, nil)

	if sys.TotalEventsWritten != 2 {
		t.Errorf("TotalEventsWritten = %d, want 2", sys.TotalEventsWritten)
	}
	if sys.TotalBytesWritten != 192 {
		t.Errorf("TotalBytesWritten = %d, want 192", sys.TotalBytesWritten)
	}
	if sys.TotalEventsDropped != 1 {
		t.Errorf("TotalEventsDropped = %d, want 1", sys.TotalEventsDropped)
	}
	if len(sys.Threads) != 2 {
		t.Errorf("len(Threads) = %d, want 2", len(sys.Threads))
	}
}
