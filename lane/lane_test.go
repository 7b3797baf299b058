// File: lane/lane_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package lane

import "testing"

func TestNewSetStartsActiveWithFreshLanes(t *testing.T) {
	s := New(1234, 0)
	if !s.Active() {
		t.Fatalf("expected new lane set to start active")
	}
	if s.Index.Pool.K() != IndexLaneRings {
		t.Fatalf("expected index lane to have %d rings, got %d", IndexLaneRings, s.Index.Pool.K())
	}
	if s.Detail.Pool.K() != DetailLaneRings {
		t.Fatalf("expected detail lane to have %d rings, got %d", DetailLaneRings, s.Detail.Pool.K())
	}
}

func TestDeactivateIsSticky(t *testing.T) {
	s := New(1, 0)
	s.Deactivate()
	if s.Active() {
		t.Fatalf("expected deactivated lane set to stay inactive")
	}
}

func TestNextTokenMonotonic(t *testing.T) {
	s := New(1, 0)
	t1 := s.NextToken()
	t2 := s.NextToken()
	if t2 != t1+1 {
		t.Fatalf("expected monotonically increasing tokens: %d then %d", t1, t2)
	}
}

func TestSymbolCacheRoundTrips(t *testing.T) {
	s := New(1, 0)
	if _, ok := s.LookupSymbol("mod", "sym"); ok {
		t.Fatalf("expected empty cache to miss")
	}
	info := SymbolInfo{FunctionID: 42, Marked: true, ExcludeGen: 1, MarkingGen: 2}
	s.StoreSymbol("mod", "sym", info)
	got, ok := s.LookupSymbol("mod", "sym")
	if !ok || got != info {
		t.Fatalf("expected cached symbol info to round-trip, got %+v ok=%v", got, ok)
	}
	if _, ok := s.LookupSymbol("mod", "other"); ok {
		t.Fatalf("expected distinct symbol in the same module to miss")
	}
}

func TestInHandlerGuardsReentrancy(t *testing.T) {
	s := New(1, 0)
	if !s.InHandler.CompareAndSwap(false, true) {
		t.Fatalf("expected first entry to claim the guard")
	}
	if s.InHandler.CompareAndSwap(false, true) {
		t.Fatalf("expected reentrant entry to be blocked")
	}
	s.ReentrancyBlocked.Add(1)
	if s.ReentrancyBlocked.Load() != 1 {
		t.Fatalf("expected reentrancy counter to record the block")
	}
}
