// File: registry/registry_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import (
	"testing"

	"github.com/momentics/ada-trace/api"
)

func TestRegisterReturnsSameSetForSameThread(t *testing.T) {
	r := New()
	s1, err := r.Register(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := r.Register(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the same lane set for repeated registration of the same thread")
	}
	if r.ThreadCount() != 1 {
		t.Fatalf("expected thread count 1, got %d", r.ThreadCount())
	}
}

func TestRegisterAssignsMonotonicSlots(t *testing.T) {
	r := New()
	s1, _ := r.Register(1)
	s2, _ := r.Register(2)
	if s1.SlotIndex != 0 || s2.SlotIndex != 1 {
		t.Fatalf("expected monotonic slot assignment, got %d then %d", s1.SlotIndex, s2.SlotIndex)
	}
}

func TestRegisterRejectsAfterStopAccepting(t *testing.T) {
	r := New()
	r.StopAccepting()
	_, err := r.Register(5)
	if err != api.ErrNotAcceptingRegistration {
		t.Fatalf("expected ErrNotAcceptingRegistration, got %v", err)
	}
	if !r.ShutdownRequested() {
		t.Fatalf("expected shutdown requested flag to be set")
	}
}

func TestRegisterFailsAtCapacity(t *testing.T) {
	r := New()
	for i := 0; i < Capacity; i++ {
		if _, err := r.Register(uint64(i + 1)); err != nil {
			t.Fatalf("unexpected error filling registry: %v", err)
		}
	}
	if _, err := r.Register(uint64(Capacity + 1)); err != api.ErrRegistryFull {
		t.Fatalf("expected ErrRegistryFull, got %v", err)
	}
}

func TestUnregisterDeactivatesAndExcludesFromActiveCount(t *testing.T) {
	r := New()
	r.Register(1)
	r.Register(2)
	if r.ActiveCount() != 2 {
		t.Fatalf("expected 2 active, got %d", r.ActiveCount())
	}
	r.Unregister(1)
	if r.ActiveCount() != 1 {
		t.Fatalf("expected 1 active after unregister, got %d", r.ActiveCount())
	}
	if r.ThreadCount() != 2 {
		t.Fatalf("expected thread count to remain 2 (slots are never reclaimed), got %d", r.ThreadCount())
	}
}

func TestSlotsReturnsAssignedLaneSetsInOrder(t *testing.T) {
	r := New()
	r.Register(10)
	r.Register(20)
	slots := r.Slots()
	if len(slots) != 2 || slots[0].ThreadID != 10 || slots[1].ThreadID != 20 {
		t.Fatalf("unexpected slot order: %+v", slots)
	}
}
