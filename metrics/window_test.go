package metrics

import "testing"

func TestWindow_RatesOverOneSecond(t *testing.T) {
	w := NewWindow()
	w.Observe(0, 100, 1000)
	w.Observe(500_000_000, 100, 1000)
	w.Observe(1_000_000_000, 100, 1000)

	eps, bps := w.Rates(1_000_000_000)
	if eps <= 0 {
		t.Errorf("eventsPerSec = %f, want > 0", eps)
	}
	if bps <= 0 {
		t.Errorf("bytesPerSec = %f, want > 0", bps)
	}
}

func TestWindow_EvictsOldSamples(t *testing.T) {
	w := NewWindow()
	w.Observe(0, 1000, 1000)
	// Past the 1-second retention: the first sample should be evicted.
	w.Observe(2_000_000_000, 10, 10)

	w.mu.Lock()
	n := len(w.samples)
	w.mu.Unlock()
	if n != 1 {
		t.Errorf("len(samples) = %d, want 1 after eviction", n)
	}
}

func TestWindow_EmptyRatesZero(t *testing.T) {
	w := NewWindow()
	eps, bps := w.Rates(12345)
	if eps != 0 || bps != 0 {
		t.Errorf("Rates on empty window = (%f, %f), want (0, 0)", eps, bps)
	}
}
